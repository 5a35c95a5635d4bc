package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kredo/internal/pricing/domain"
	tenantdomain "github.com/smallbiznis/kredo/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	TenantSvc tenantdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	tenantSvc tenantdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("pricing.service"),
		genID:     p.GenID,
		tenantSvc: p.TenantSvc,
	}
}

func (s *Service) CalculateCost(ctx context.Context, tenantID snowflake.ID, actionType string, tokensUsed int64) (decimal.Decimal, error) {
	rule, err := s.ActiveRule(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	snapshot, err := rule.Snapshot()
	if err != nil {
		return decimal.Zero, err
	}

	persona, err := s.tenantSvc.PersonaOf(ctx, tenantID)
	if err != nil {
		// Persona lookup failure must not fail the whole calculation.
		s.log.Warn("persona lookup failed, using default multiplier",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		persona = tenantdomain.DefaultPersona
	}

	return snapshot.Cost(actionType, tokensUsed, persona), nil
}

func (s *Service) ActiveRule(ctx context.Context) (*domain.PricingRule, error) {
	var rule domain.PricingRule
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("version DESC").
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPricingConfigInvalid
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *Service) UpdateRule(ctx context.Context, req domain.UpdateRuleRequest) (*domain.PricingRule, error) {
	now := time.Now().UTC()
	next := &domain.PricingRule{
		ID:                 s.genID.Generate(),
		BaseRatePer1K:      req.BaseRatePer1K,
		ActionMultipliers:  toJSONMap(req.ActionMultipliers),
		PersonaMultipliers: toJSONMap(req.PersonaMultipliers),
		Active:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if _, err := next.Snapshot(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.PricingRule
		err := tx.Where("active = ?", true).Order("version DESC").First(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			next.Version = 1
		case err != nil:
			return err
		default:
			next.Version = current.Version + 1
			if err := tx.Model(&domain.PricingRule{}).
				Where("active = ?", true).
				Updates(map[string]any{"active": false, "updated_at": now}).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(next).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("pricing rule updated", zap.Int("version", next.Version))
	return next, nil
}

func toJSONMap(in map[string]float64) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
