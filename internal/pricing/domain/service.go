package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type UpdateRuleRequest struct {
	BaseRatePer1K      decimal.Decimal    `json:"base_rate_per_1k"`
	ActionMultipliers  map[string]float64 `json:"action_multipliers"`
	PersonaMultipliers map[string]float64 `json:"persona_multipliers"`
}

type Service interface {
	// CalculateCost converts (actionType, tokensUsed, tenant persona)
	// into a non-negative credit cost using the active rule. A failed
	// persona lookup falls back to the default persona multiplier; a
	// missing or malformed rule fails the calculation.
	CalculateCost(ctx context.Context, tenantID snowflake.ID, actionType string, tokensUsed int64) (decimal.Decimal, error)

	// ActiveRule returns the current rule version.
	ActiveRule(ctx context.Context) (*PricingRule, error)

	// UpdateRule writes a new rule version and deactivates the old one.
	// Admin-only path.
	UpdateRule(ctx context.Context, req UpdateRuleRequest) (*PricingRule, error)
}

var (
	// ErrPricingConfigInvalid means the rule set is missing or malformed.
	// The cost calculation fails rather than silently charging zero.
	ErrPricingConfigInvalid = errors.New("pricing_config_invalid")
)
