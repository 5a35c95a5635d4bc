package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ActivationPolicy decides whether a referred tenant has generated
// enough value to trigger the reward. The default policy trusts the
// activation event itself; deployments with richer signals swap in
// their own.
type ActivationPolicy interface {
	Activated(ctx context.Context, referredTenantID snowflake.ID) (bool, error)
}

type Service interface {
	// Attribute records the referral at signup time: the new tenant was
	// referred by whoever owns the code.
	Attribute(ctx context.Context, code string, referredTenantID snowflake.ID) error

	// HandleActivation runs after a qualifying tenant event (e.g. first
	// billable resource created). It rewards the referrer at most once.
	HandleActivation(ctx context.Context, referredTenantID snowflake.ID) error

	// Stats returns the referrer-facing summary, issuing a referral
	// code lazily if needed.
	Stats(ctx context.Context, tenantID snowflake.ID) (*Stats, error)
}

type Repository interface {
	Create(ctx context.Context, referral *Referral) error
	FindPendingByReferred(ctx context.Context, referredTenantID snowflake.ID) (*Referral, error)
	// MarkRewarded flips pending -> rewarded in one conditional update.
	// Returns false when the referral was not pending, i.e. the reward
	// was already granted.
	MarkRewarded(ctx context.Context, id snowflake.ID, amount decimal.Decimal, at time.Time) (bool, error)
	// Revert compensates a failed payout by returning the referral to
	// pending so one retry can pick it up.
	Revert(ctx context.Context, id snowflake.ID) error
	StatsByReferrer(ctx context.Context, referrerTenantID snowflake.ID) (*Stats, error)
}

var (
	ErrSelfReferral        = errors.New("self_referral")
	ErrAlreadyAttributed   = errors.New("already_attributed")
	ErrReferrerNotFound    = errors.New("referrer_not_found")
	ErrRewardPayoutFailed  = errors.New("reward_payout_failed")
	ErrInvalidReferralCode = errors.New("invalid_referral_code")
)
