package domain

import "errors"

var (
	// ErrInsufficientFunds means the debit would drive the wallet balance
	// below zero. Recoverable: callers surface a top-up prompt.
	ErrInsufficientFunds = errors.New("insufficient_funds")

	// ErrDuplicateExternalRef means a transaction with the same
	// idempotency key already exists for the tenant.
	ErrDuplicateExternalRef = errors.New("duplicate_external_ref")

	// ErrStorageUnavailable wraps any other persistence failure. Never
	// swallowed; retry policy belongs to the caller.
	ErrStorageUnavailable = errors.New("storage_unavailable")

	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidType   = errors.New("invalid_transaction_type")
)
