// Package domain contains the append-only credit transaction models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TransactionType classifies a ledger movement.
type TransactionType string

const (
	TypeTopUp           TransactionType = "top_up"
	TypeAIUsage         TransactionType = "ai_usage"
	TypeAdminAdjustment TransactionType = "admin_adjustment"
	TypeReferralBonus   TransactionType = "referral_bonus"
	TypeSignupBonus     TransactionType = "signup_bonus"
	TypeMemoryRead      TransactionType = "memory_read"
	TypeMemoryWrite     TransactionType = "memory_write"
)

// MeteredTypes are the deduction types mirrored into usage events and
// counted toward usage windows.
func MeteredTypes() []TransactionType {
	return []TransactionType{TypeAIUsage, TypeMemoryRead, TypeMemoryWrite}
}

// TypeForAction maps an AI action to its transaction type. Memory
// operations carry their own type; everything else is generic AI usage.
func TypeForAction(actionType string) TransactionType {
	switch actionType {
	case string(TypeMemoryRead):
		return TypeMemoryRead
	case string(TypeMemoryWrite):
		return TypeMemoryWrite
	default:
		return TypeAIUsage
	}
}

// CreditTransaction is an immutable ledger row. Credits are positive,
// debits negative. Rows are never updated or deleted; the wallet balance
// is the sum of a tenant's rows.
type CreditTransaction struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	TenantID    snowflake.ID      `gorm:"not null;index:ix_credit_transactions_tenant_created,priority:1;uniqueIndex:ux_credit_transactions_tenant_ref,priority:1"`
	Amount      decimal.Decimal   `gorm:"type:decimal(20,6);not null"`
	Type        TransactionType   `gorm:"type:text;not null;index"`
	Description *string           `gorm:"type:text"`
	ExternalRef *string           `gorm:"type:text;uniqueIndex:ux_credit_transactions_tenant_ref,priority:2"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_credit_transactions_tenant_created,priority:2"`
}

// TableName sets the database table name.
func (CreditTransaction) TableName() string { return "credit_transactions" }

// WalletBalance is the consistency-preserving aggregate of a tenant's
// transactions. It is only ever written inside the same database
// transaction as a ledger append; the CHECK constraint is what enforces
// the non-negative balance invariant under concurrent deductions.
type WalletBalance struct {
	TenantID  snowflake.ID    `gorm:"primaryKey"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,6);not null;check:chk_wallet_balances_non_negative,balance >= 0"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (WalletBalance) TableName() string { return "wallet_balances" }
