package domain

import (
	"context"
	"errors"

	tenantdomain "github.com/smallbiznis/kredo/internal/tenant/domain"
)

type Request struct {
	Name         string `json:"name"`
	Persona      string `json:"persona"`
	ReferralCode string `json:"referral_code"`
}

type Result struct {
	Tenant        *tenantdomain.Tenant `json:"tenant"`
	SignupBonus   string               `json:"signup_bonus,omitempty"`
	ReferralValid bool                 `json:"referral_valid"`
}

// Service provisions a new billing principal: the tenant row, referral
// attribution when a code was supplied, and the one-time signup bonus.
type Service interface {
	Signup(ctx context.Context, req Request) (*Result, error)
}

var ErrInvalidRequest = errors.New("invalid signup request")
