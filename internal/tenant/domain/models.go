// Package domain contains the billing principal models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DefaultPersona is the pricing persona applied when a tenant has no
// classification or the lookup fails.
const DefaultPersona = "default"

// Tenant is a billing principal: one per business account.
type Tenant struct {
	ID           snowflake.ID  `gorm:"primaryKey"`
	Name         string        `gorm:"type:text;not null"`
	Persona      string        `gorm:"type:text;not null;default:'default'"`
	ReferralCode *string       `gorm:"type:text;uniqueIndex"`
	ReferredBy   *snowflake.ID `gorm:"index"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }
