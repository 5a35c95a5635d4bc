package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type RecordRequest struct {
	TenantID      snowflake.ID
	ActionType    string
	TokensUsed    int64
	CreditsUsed   decimal.Decimal
	Model         string
	TransactionID snowflake.ID
	Metadata      map[string]any
}

type Service interface {
	// Record appends a usage event for an already-committed metered
	// deduction. Best-effort: callers log failures and never roll back
	// the underlying ledger transaction.
	Record(context.Context, RecordRequest) (*UsageEvent, error)

	// List returns recent usage events for a tenant, newest first.
	List(ctx context.Context, tenantID snowflake.ID, limit int) ([]UsageEvent, error)
}

var (
	ErrInvalidTenant      = errors.New("invalid_tenant")
	ErrInvalidActionType  = errors.New("invalid_action_type")
	ErrInvalidTransaction = errors.New("invalid_transaction")
)
