// Package domain contains the analytics usage event models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// UsageEvent mirrors one successful metered deduction. It exists for
// analytics and audit only and is never the source of billing truth.
type UsageEvent struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	TenantID      snowflake.ID      `gorm:"not null;index:ix_usage_events_tenant_created,priority:1"`
	ActionType    string            `gorm:"type:text;not null;index"`
	TokensUsed    int64             `gorm:"not null"`
	CreditsUsed   decimal.Decimal   `gorm:"type:decimal(20,6);not null"`
	Model         string            `gorm:"type:text"`
	TransactionID snowflake.ID      `gorm:"not null;uniqueIndex"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_usage_events_tenant_created,priority:2"`
}

// TableName sets the database table name.
func (UsageEvent) TableName() string { return "usage_events" }
