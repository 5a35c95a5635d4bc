package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Repository is the append-only transaction log. Append enforces the
// non-negative balance invariant at the point of write; there is no
// read-then-write path through which concurrent debits can race.
type Repository interface {
	// Append writes a transaction and folds its amount into the balance
	// aggregate atomically. Returns ErrInsufficientFunds when a debit
	// would violate the invariant, ErrDuplicateExternalRef when the
	// idempotency key was already seen, ErrStorageUnavailable otherwise.
	Append(ctx context.Context, txn *CreditTransaction) error

	// BalanceOf computes the tenant balance server-side as the sum of
	// all transaction amounts. Zero for a tenant with no transactions.
	BalanceOf(ctx context.Context, tenantID snowflake.ID) (decimal.Decimal, error)

	// History returns the most recent transactions, newest first.
	History(ctx context.Context, tenantID snowflake.ID, limit int) ([]CreditTransaction, error)

	// SumDebitsByTypesSince totals the magnitude of debits of the given
	// types created at or after since. Credits carrying a metered type
	// do not offset the total. Used for 24h usage windows.
	SumDebitsByTypesSince(ctx context.Context, tenantID snowflake.ID, types []TransactionType, since time.Time) (decimal.Decimal, error)

	// HasType reports whether the tenant has any transaction of the type.
	HasType(ctx context.Context, tenantID snowflake.ID, txnType TransactionType) (bool, error)

	// FindByExternalRef returns the transaction carrying the idempotency
	// key, or nil when none exists.
	FindByExternalRef(ctx context.Context, tenantID snowflake.ID, ref string) (*CreditTransaction, error)
}
