package signup

import (
	"context"

	"github.com/smallbiznis/kredo/internal/config"
	ledgerdomain "github.com/smallbiznis/kredo/internal/ledger/domain"
	referraldomain "github.com/smallbiznis/kredo/internal/referral/domain"
	"github.com/smallbiznis/kredo/internal/signup/domain"
	tenantdomain "github.com/smallbiznis/kredo/internal/tenant/domain"
	walletdomain "github.com/smallbiznis/kredo/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Cfg         config.Config
	TenantSvc   tenantdomain.Service
	WalletSvc   walletdomain.Service
	ReferralSvc referraldomain.Service
}

type Service struct {
	log         *zap.Logger
	cfg         config.Config
	tenantSvc   tenantdomain.Service
	walletSvc   walletdomain.Service
	referralSvc referraldomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		log:         p.Log.Named("signup.service"),
		cfg:         p.Cfg,
		tenantSvc:   p.TenantSvc,
		walletSvc:   p.WalletSvc,
		referralSvc: p.ReferralSvc,
	}
}

func (s *Service) Signup(ctx context.Context, req domain.Request) (*domain.Result, error) {
	tenant, err := s.tenantSvc.Create(ctx, tenantdomain.CreateRequest{
		Name:    req.Name,
		Persona: req.Persona,
	})
	if err != nil {
		return nil, err
	}

	result := &domain.Result{Tenant: tenant}

	// Attribution is best-effort: a bad code must not fail the signup.
	if req.ReferralCode != "" {
		if err := s.referralSvc.Attribute(ctx, req.ReferralCode, tenant.ID); err != nil {
			s.log.Warn("referral attribution skipped",
				zap.String("tenant_id", tenant.ID.String()),
				zap.String("code", req.ReferralCode),
				zap.Error(err),
			)
		} else {
			result.ReferralValid = true
		}
	}

	if err := s.grantSignupBonus(ctx, tenant, result); err != nil {
		s.log.Warn("signup bonus not granted",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err),
		)
	}

	return result, nil
}

func (s *Service) grantSignupBonus(ctx context.Context, tenant *tenantdomain.Tenant, result *domain.Result) error {
	bonus := s.cfg.Wallet.SignupBonus
	if !bonus.IsPositive() {
		return nil
	}

	granted, err := s.walletSvc.HasTransactionType(ctx, tenant.ID, ledgerdomain.TypeSignupBonus)
	if err != nil {
		return err
	}
	if granted {
		return nil
	}

	if err := s.walletSvc.AddCredits(ctx, tenant.ID, bonus, ledgerdomain.TypeSignupBonus, map[string]any{
		"tenant_name": tenant.Name,
	}); err != nil {
		return err
	}
	result.SignupBonus = bonus.String()
	return nil
}
