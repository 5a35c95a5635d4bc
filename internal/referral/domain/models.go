// Package domain contains the referral linkage models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ReferralStatus is a two-state machine: pending -> rewarded, terminal.
type ReferralStatus string

const (
	StatusPending  ReferralStatus = "pending"
	StatusRewarded ReferralStatus = "rewarded"
)

// Referral links a referrer tenant to a referred tenant. The conditional
// pending->rewarded transition is what makes the reward exactly-once.
type Referral struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	ReferrerTenantID snowflake.ID    `gorm:"not null;index"`
	ReferredTenantID snowflake.ID    `gorm:"not null;uniqueIndex"`
	Status           ReferralStatus  `gorm:"type:text;not null;default:'pending';index"`
	RewardAmount     decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	RewardedAt       *time.Time
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Referral) TableName() string { return "referrals" }

// Stats summarizes a referrer's program state for the referral UI.
type Stats struct {
	ReferralCode  string          `json:"referral_code"`
	TotalReferred int64           `json:"total_referred"`
	TotalRewarded int64           `json:"total_rewarded"`
	TotalEarned   decimal.Decimal `json:"total_earned"`
}
