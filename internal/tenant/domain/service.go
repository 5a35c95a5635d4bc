package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	Name    string `json:"name"`
	Persona string `json:"persona"`
}

type Service interface {
	Create(context.Context, CreateRequest) (*Tenant, error)
	Get(ctx context.Context, id snowflake.ID) (*Tenant, error)
	GetByReferralCode(ctx context.Context, code string) (*Tenant, error)
	// PersonaOf resolves the pricing persona for a tenant. An unknown
	// tenant maps to DefaultPersona; a storage failure is returned so
	// the pricing engine can decide to fall back.
	PersonaOf(ctx context.Context, id snowflake.ID) (string, error)
	// EnsureReferralCode lazily generates and persists a referral code.
	EnsureReferralCode(ctx context.Context, id snowflake.ID) (string, error)
	// SetReferrer links the referred tenant to its referrer. Fails once set.
	SetReferrer(ctx context.Context, id, referrerID snowflake.ID) error
}

var (
	ErrTenantNotFound  = errors.New("tenant_not_found")
	ErrInvalidName     = errors.New("invalid_name")
	ErrAlreadyReferred = errors.New("already_referred")
)
