package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kredo/internal/clock"
	"github.com/smallbiznis/kredo/internal/config"
	ledgerdomain "github.com/smallbiznis/kredo/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/kredo/internal/observability/metrics"
	"github.com/smallbiznis/kredo/internal/referral/domain"
	tenantdomain "github.com/smallbiznis/kredo/internal/tenant/domain"
	walletdomain "github.com/smallbiznis/kredo/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Cfg        config.Config
	Repo       domain.Repository
	TenantSvc  tenantdomain.Service
	WalletSvc  walletdomain.Service
	Policy     domain.ActivationPolicy
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	cfg        config.Config
	repo       domain.Repository
	tenantSvc  tenantdomain.Service
	walletSvc  walletdomain.Service
	policy     domain.ActivationPolicy
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("referral.service"),
		genID:      p.GenID,
		cfg:        p.Cfg,
		repo:       p.Repo,
		tenantSvc:  p.TenantSvc,
		walletSvc:  p.WalletSvc,
		policy:     p.Policy,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Attribute(ctx context.Context, code string, referredTenantID snowflake.ID) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ErrInvalidReferralCode
	}

	referrer, err := s.tenantSvc.GetByReferralCode(ctx, code)
	if err != nil {
		return domain.ErrReferrerNotFound
	}
	if referrer.ID == referredTenantID {
		return domain.ErrSelfReferral
	}

	if err := s.tenantSvc.SetReferrer(ctx, referredTenantID, referrer.ID); err != nil {
		return domain.ErrAlreadyAttributed
	}

	now := s.clock.Now()
	return s.repo.Create(ctx, &domain.Referral{
		ID:               s.genID.Generate(),
		ReferrerTenantID: referrer.ID,
		ReferredTenantID: referredTenantID,
		Status:           domain.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

// HandleActivation flips the referral to rewarded before paying, so that
// a retry after partial failure can never pay twice. A failed payout is
// compensated by one revert-and-retry; a second failure is surfaced for
// manual reward instead of being retried blindly.
func (s *Service) HandleActivation(ctx context.Context, referredTenantID snowflake.ID) error {
	referral, err := s.repo.FindPendingByReferred(ctx, referredTenantID)
	if err != nil {
		return err
	}
	if referral == nil {
		return nil
	}

	activated, err := s.policy.Activated(ctx, referredTenantID)
	if err != nil {
		return err
	}
	if !activated {
		return nil
	}

	reward := s.cfg.Wallet.ReferralReward
	if !reward.IsPositive() {
		return nil
	}

	flipped, err := s.repo.MarkRewarded(ctx, referral.ID, reward, s.clock.Now())
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}

	payErr := s.payReferrer(ctx, referral)
	if payErr == nil {
		if s.obsMetrics != nil {
			s.obsMetrics.ReferralRewards.Inc()
		}
		return nil
	}

	s.log.Warn("referral payout failed, reverting for retry",
		zap.String("referral_id", referral.ID.String()),
		zap.Error(payErr),
	)

	if revertErr := s.repo.Revert(ctx, referral.ID); revertErr != nil {
		s.log.Error("referral payout failed and revert failed, manual reward required",
			zap.String("referral_id", referral.ID.String()),
			zap.String("referrer_tenant_id", referral.ReferrerTenantID.String()),
			zap.NamedError("payout_error", payErr),
			zap.NamedError("revert_error", revertErr),
		)
		return domain.ErrRewardPayoutFailed
	}

	flipped, err = s.repo.MarkRewarded(ctx, referral.ID, reward, s.clock.Now())
	if err != nil || !flipped {
		return domain.ErrRewardPayoutFailed
	}
	if err := s.payReferrer(ctx, referral); err != nil {
		s.log.Error("referral payout failed after retry, manual reward required",
			zap.String("referral_id", referral.ID.String()),
			zap.String("referrer_tenant_id", referral.ReferrerTenantID.String()),
			zap.Error(err),
		)
		return domain.ErrRewardPayoutFailed
	}

	if s.obsMetrics != nil {
		s.obsMetrics.ReferralRewards.Inc()
	}
	return nil
}

func (s *Service) payReferrer(ctx context.Context, referral *domain.Referral) error {
	return s.walletSvc.AddCredits(ctx, referral.ReferrerTenantID, s.cfg.Wallet.ReferralReward, ledgerdomain.TypeReferralBonus, map[string]any{
		"referral_id":        referral.ID.String(),
		"referred_tenant_id": referral.ReferredTenantID.String(),
	})
}

func (s *Service) Stats(ctx context.Context, tenantID snowflake.ID) (*domain.Stats, error) {
	code, err := s.tenantSvc.EnsureReferralCode(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.StatsByReferrer(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	stats.ReferralCode = code
	return stats, nil
}

// EventAssertedPolicy trusts the activation event: callers only emit it
// once a qualifying billable resource exists for the tenant.
type EventAssertedPolicy struct{}

func (EventAssertedPolicy) Activated(ctx context.Context, referredTenantID snowflake.ID) (bool, error) {
	_ = ctx
	_ = referredTenantID
	return true, nil
}

func NewDefaultPolicy() domain.ActivationPolicy {
	return EventAssertedPolicy{}
}
