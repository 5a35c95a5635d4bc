package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/kredo/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("tenant.service"),
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	persona := strings.TrimSpace(req.Persona)
	if persona == "" {
		persona = domain.DefaultPersona
	}

	now := time.Now().UTC()
	tenant := &domain.Tenant{
		ID:        s.genID.Generate(),
		Name:      name,
		Persona:   persona,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(tenant).Error; err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (s *Service) GetByReferralCode(ctx context.Context, code string) (*domain.Tenant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrTenantNotFound
	}
	var tenant domain.Tenant
	err := s.db.WithContext(ctx).Where("referral_code = ?", code).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (s *Service) PersonaOf(ctx context.Context, id snowflake.ID) (string, error) {
	tenant, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrTenantNotFound) {
		return domain.DefaultPersona, nil
	}
	if err != nil {
		return "", err
	}
	if tenant.Persona == "" {
		return domain.DefaultPersona, nil
	}
	return tenant.Persona, nil
}

func (s *Service) EnsureReferralCode(ctx context.Context, id snowflake.ID) (string, error) {
	tenant, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if tenant.ReferralCode != nil && *tenant.ReferralCode != "" {
		return *tenant.ReferralCode, nil
	}

	code := newReferralCode()
	res := s.db.WithContext(ctx).Exec(
		`UPDATE tenants
		 SET referral_code = ?, updated_at = ?
		 WHERE id = ? AND referral_code IS NULL`,
		code,
		time.Now().UTC(),
		id,
	)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		// Another caller generated the code first; re-read it.
		tenant, err = s.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if tenant.ReferralCode == nil {
			return "", domain.ErrTenantNotFound
		}
		return *tenant.ReferralCode, nil
	}
	return code, nil
}

func (s *Service) SetReferrer(ctx context.Context, id, referrerID snowflake.ID) error {
	res := s.db.WithContext(ctx).Exec(
		`UPDATE tenants
		 SET referred_by = ?, updated_at = ?
		 WHERE id = ? AND referred_by IS NULL`,
		referrerID,
		time.Now().UTC(),
		id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAlreadyReferred
	}
	return nil
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
