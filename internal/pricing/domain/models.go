// Package domain contains the versioned pricing rule models.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Precision is the fixed decimal precision of computed costs. Keeping
// ledger amounts exact and comparable depends on it.
const Precision = 6

// MinimumCost floors every computed cost so a rounding-to-zero action is
// never free.
var MinimumCost = decimal.RequireFromString("0.0001")

// PricingRule is a versioned configuration row. Mutation creates a new
// version and deactivates the old one; rules are never edited in place.
type PricingRule struct {
	ID                 snowflake.ID      `gorm:"primaryKey"`
	Version            int               `gorm:"not null;index"`
	BaseRatePer1K      decimal.Decimal   `gorm:"column:base_rate_per_1k;type:decimal(20,6);not null"`
	ActionMultipliers  datatypes.JSONMap `gorm:"type:jsonb;not null"`
	PersonaMultipliers datatypes.JSONMap `gorm:"type:jsonb;not null"`
	Active             bool              `gorm:"not null;default:true;index"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PricingRule) TableName() string { return "pricing_rules" }

// RuleSnapshot is an immutable, validated view of a pricing rule. Cost is
// a pure function of the snapshot, so a given snapshot and inputs always
// reproduce the same charge.
type RuleSnapshot struct {
	Version            int
	BaseRatePer1K      decimal.Decimal
	ActionMultipliers  map[string]decimal.Decimal
	PersonaMultipliers map[string]decimal.Decimal
}

// Snapshot validates the rule and converts it for computation. A rule
// without a positive base rate or without explicit "default" multiplier
// entries is invalid: missing keys must never silently price to zero.
func (r *PricingRule) Snapshot() (*RuleSnapshot, error) {
	if !r.BaseRatePer1K.IsPositive() {
		return nil, fmt.Errorf("%w: base_rate_per_1k must be positive", ErrPricingConfigInvalid)
	}

	actions, err := parseMultipliers(r.ActionMultipliers, "action_multipliers")
	if err != nil {
		return nil, err
	}
	personas, err := parseMultipliers(r.PersonaMultipliers, "persona_multipliers")
	if err != nil {
		return nil, err
	}

	return &RuleSnapshot{
		Version:            r.Version,
		BaseRatePer1K:      r.BaseRatePer1K,
		ActionMultipliers:  actions,
		PersonaMultipliers: personas,
	}, nil
}

// Cost computes the credit cost for an action:
//
//	(tokens / 1000) * baseRatePer1k * actionMultiplier * personaMultiplier
//
// Unrecognized action or persona keys resolve to the "default" entry.
// The result is rounded to Precision places and floored at MinimumCost.
func (s *RuleSnapshot) Cost(actionType string, tokensUsed int64, persona string) decimal.Decimal {
	actionMult := s.multiplier(s.ActionMultipliers, actionType)
	personaMult := s.multiplier(s.PersonaMultipliers, persona)

	cost := decimal.NewFromInt(tokensUsed).
		Div(decimal.NewFromInt(1000)).
		Mul(s.BaseRatePer1K).
		Mul(actionMult).
		Mul(personaMult).
		Round(Precision)

	if cost.LessThan(MinimumCost) {
		return MinimumCost
	}
	return cost
}

func (s *RuleSnapshot) multiplier(m map[string]decimal.Decimal, key string) decimal.Decimal {
	if v, ok := m[key]; ok {
		return v
	}
	return m["default"]
}

func parseMultipliers(raw datatypes.JSONMap, field string) (map[string]decimal.Decimal, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrPricingConfigInvalid, field)
	}

	out := make(map[string]decimal.Decimal, len(raw))
	for key, value := range raw {
		mult, err := toDecimal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%s]: %v", ErrPricingConfigInvalid, field, key, err)
		}
		if mult.IsNegative() {
			return nil, fmt.Errorf("%w: %s[%s] is negative", ErrPricingConfigInvalid, field, key)
		}
		out[key] = mult
	}

	if _, ok := out["default"]; !ok {
		return nil, fmt.Errorf("%w: %s missing default entry", ErrPricingConfigInvalid, field)
	}
	return out, nil
}

func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case string:
		return decimal.NewFromString(v)
	case json.Number:
		return decimal.NewFromString(v.String())
	default:
		return decimal.Zero, fmt.Errorf("unsupported multiplier type %T", value)
	}
}
