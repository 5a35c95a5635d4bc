// Package domain defines the wallet operation surface. The wallet is the
// only sanctioned entry point for balance mutation; nothing else writes
// credit transactions directly.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/kredo/internal/ledger/domain"
)

// DeductRequest charges an already-priced AI action. Amount is positive;
// the wallet writes the signed debit. The wallet does not re-price.
type DeductRequest struct {
	TenantID   snowflake.ID
	Amount     decimal.Decimal
	ActionType string
	TokensUsed int64
	Model      string
	Metadata   map[string]any
}

// TopUpRequest credits the wallet from a payment gateway. PaymentID is
// the idempotency key; duplicate webhook delivery is expected and must
// not double-credit.
type TopUpRequest struct {
	TenantID    snowflake.ID
	Amount      decimal.Decimal
	Description string
	PaymentID   string
	OrderID     string
	Metadata    map[string]any
}

type Service interface {
	// GetBalance returns the derived balance; zero for a tenant with no
	// transactions, never an error for an unknown tenant.
	GetBalance(ctx context.Context, tenantID snowflake.ID) (decimal.Decimal, error)

	// HasSufficientBalance is an advisory pre-check for UX only.
	// DeductCredits re-validates atomically; never rely on this for
	// correctness.
	HasSufficientBalance(ctx context.Context, tenantID snowflake.ID, estimatedCost decimal.Decimal) (bool, error)

	// DeductCredits charges the wallet. Returns (false, nil) when the
	// balance is insufficient; the caller decides whether that is fatal.
	// On success the deduction is mirrored into a usage event.
	DeductCredits(ctx context.Context, req DeductRequest) (bool, error)

	// TopUp credits the wallet, idempotent on PaymentID: a repeat
	// delivery is a no-op success.
	TopUp(ctx context.Context, req TopUpRequest) (bool, error)

	// AdjustBalance applies an administrative credit or debit outside
	// the metered path. Still subject to the non-negative invariant.
	AdjustBalance(ctx context.Context, tenantID snowflake.ID, amount decimal.Decimal, reason string) error

	// AddCredits is the generic positive-credit primitive used by
	// referral rewards and other bonus paths.
	AddCredits(ctx context.Context, tenantID snowflake.ID, amount decimal.Decimal, txnType ledgerdomain.TransactionType, metadata map[string]any) error

	// HasTransactionType gates one-time bonuses.
	HasTransactionType(ctx context.Context, tenantID snowflake.ID, txnType ledgerdomain.TransactionType) (bool, error)

	GetHistory(ctx context.Context, tenantID snowflake.ID, limit int) ([]ledgerdomain.CreditTransaction, error)

	// GetUsage24h returns the absolute sum of metered debits in the
	// trailing 24 hours.
	GetUsage24h(ctx context.Context, tenantID snowflake.ID) (decimal.Decimal, error)
}

var (
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidReason = errors.New("invalid_reason")
)
