package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kredo/internal/usageevent/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("usageevent.service"),
		genID: p.GenID,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (*domain.UsageEvent, error) {
	if req.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if strings.TrimSpace(req.ActionType) == "" {
		return nil, domain.ErrInvalidActionType
	}
	if req.TransactionID == 0 {
		return nil, domain.ErrInvalidTransaction
	}

	event := &domain.UsageEvent{
		ID:            s.genID.Generate(),
		TenantID:      req.TenantID,
		ActionType:    req.ActionType,
		TokensUsed:    req.TokensUsed,
		CreditsUsed:   req.CreditsUsed,
		Model:         req.Model,
		TransactionID: req.TransactionID,
		Metadata:      datatypes.JSONMap(req.Metadata),
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID, limit int) ([]domain.UsageEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []domain.UsageEvent
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
