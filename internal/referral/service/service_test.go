package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kredo/internal/clock"
	"github.com/smallbiznis/kredo/internal/config"
	ledgerdomain "github.com/smallbiznis/kredo/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/kredo/internal/ledger/repository"
	"github.com/smallbiznis/kredo/internal/referral/domain"
	referralrepo "github.com/smallbiznis/kredo/internal/referral/repository"
	tenantdomain "github.com/smallbiznis/kredo/internal/tenant/domain"
	tenantservice "github.com/smallbiznis/kredo/internal/tenant/service"
	usagedomain "github.com/smallbiznis/kredo/internal/usageevent/domain"
	usageservice "github.com/smallbiznis/kredo/internal/usageevent/service"
	walletdomain "github.com/smallbiznis/kredo/internal/wallet/domain"
	walletservice "github.com/smallbiznis/kredo/internal/wallet/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type referralFixture struct {
	svc       domain.Service
	tenantSvc tenantdomain.Service
	walletSvc walletdomain.Service
	node      *snowflake.Node
}

func newReferralFixture(t *testing.T) *referralFixture {
	return newReferralFixtureWallet(t, func(svc walletdomain.Service) walletdomain.Service { return svc })
}

func newReferralFixtureWallet(t *testing.T, wrap func(walletdomain.Service) walletdomain.Service) *referralFixture {
	t.Helper()

	dbConn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := dbConn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, dbConn.AutoMigrate(
		&tenantdomain.Tenant{},
		&ledgerdomain.CreditTransaction{},
		&ledgerdomain.WalletBalance{},
		&usagedomain.UsageEvent{},
		&domain.Referral{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{
		Wallet: config.WalletConfig{
			ReferralReward: decimal.RequireFromString("10"),
		},
	}

	tenantSvc := tenantservice.NewService(tenantservice.Params{
		DB:    dbConn,
		Log:   log,
		GenID: node,
	})
	usageSvc := usageservice.NewService(usageservice.Params{
		DB:    dbConn,
		Log:   log,
		GenID: node,
	})
	walletSvc := wrap(walletservice.NewService(walletservice.Params{
		Log:      log,
		GenID:    node,
		Ledger:   ledgerrepo.Provide(dbConn),
		UsageSvc: usageSvc,
		Clock:    fakeClock,
	}))

	svc := NewService(Params{
		Log:       log,
		GenID:     node,
		Cfg:       cfg,
		Repo:      referralrepo.Provide(dbConn),
		TenantSvc: tenantSvc,
		WalletSvc: walletSvc,
		Policy:    NewDefaultPolicy(),
		Clock:     fakeClock,
	})

	return &referralFixture{svc: svc, tenantSvc: tenantSvc, walletSvc: walletSvc, node: node}
}

func (f *referralFixture) newTenant(t *testing.T, name string) *tenantdomain.Tenant {
	t.Helper()
	tenant, err := f.tenantSvc.Create(context.Background(), tenantdomain.CreateRequest{Name: name})
	require.NoError(t, err)
	return tenant
}

func TestActivationRewardsReferrerOnce(t *testing.T) {
	f := newReferralFixture(t)
	ctx := context.Background()

	referrer := f.newTenant(t, "alice")
	referred := f.newTenant(t, "bob")

	code, err := f.tenantSvc.EnsureReferralCode(ctx, referrer.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Attribute(ctx, code, referred.ID))

	// The activation event is delivered twice; the reward lands once.
	require.NoError(t, f.svc.HandleActivation(ctx, referred.ID))
	require.NoError(t, f.svc.HandleActivation(ctx, referred.ID))

	balance, err := f.walletSvc.GetBalance(ctx, referrer.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("10")), "got %s", balance)

	stats, err := f.svc.Stats(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, code, stats.ReferralCode)
	assert.Equal(t, int64(1), stats.TotalReferred)
	assert.Equal(t, int64(1), stats.TotalRewarded)
	assert.True(t, stats.TotalEarned.Equal(decimal.RequireFromString("10")), "got %s", stats.TotalEarned)
}

func TestActivationWithoutReferralIsNoop(t *testing.T) {
	f := newReferralFixture(t)
	ctx := context.Background()

	tenant := f.newTenant(t, "carol")
	require.NoError(t, f.svc.HandleActivation(ctx, tenant.ID))

	balance, err := f.walletSvc.GetBalance(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestAttributeRejectsSelfReferral(t *testing.T) {
	f := newReferralFixture(t)
	ctx := context.Background()

	tenant := f.newTenant(t, "dave")
	code, err := f.tenantSvc.EnsureReferralCode(ctx, tenant.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Attribute(ctx, code, tenant.ID), domain.ErrSelfReferral)
}

func TestAttributeRejectsUnknownCode(t *testing.T) {
	f := newReferralFixture(t)

	tenant := f.newTenant(t, "erin")
	err := f.svc.Attribute(context.Background(), "NOSUCHCODE", tenant.ID)
	assert.ErrorIs(t, err, domain.ErrReferrerNotFound)
}

// flakyWallet fails the first N AddCredits calls, then delegates.
type flakyWallet struct {
	walletdomain.Service
	failures int
	calls    int
}

func (w *flakyWallet) AddCredits(ctx context.Context, tenantID snowflake.ID, amount decimal.Decimal, txnType ledgerdomain.TransactionType, metadata map[string]any) error {
	w.calls++
	if w.calls <= w.failures {
		return errors.New("wallet unavailable")
	}
	return w.Service.AddCredits(ctx, tenantID, amount, txnType, metadata)
}

func TestActivationRetriesFailedPayoutOnce(t *testing.T) {
	var wallet *flakyWallet
	f := newReferralFixtureWallet(t, func(svc walletdomain.Service) walletdomain.Service {
		wallet = &flakyWallet{Service: svc, failures: 1}
		return wallet
	})
	ctx := context.Background()

	referrer := f.newTenant(t, "alice")
	referred := f.newTenant(t, "bob")
	code, err := f.tenantSvc.EnsureReferralCode(ctx, referrer.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Attribute(ctx, code, referred.ID))

	require.NoError(t, f.svc.HandleActivation(ctx, referred.ID))
	assert.Equal(t, 2, wallet.calls)

	balance, err := f.walletSvc.GetBalance(ctx, referrer.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("10")), "got %s", balance)
}

func TestActivationSurfacesPayoutFailure(t *testing.T) {
	var wallet *flakyWallet
	f := newReferralFixtureWallet(t, func(svc walletdomain.Service) walletdomain.Service {
		wallet = &flakyWallet{Service: svc, failures: 10}
		return wallet
	})
	ctx := context.Background()

	referrer := f.newTenant(t, "alice")
	referred := f.newTenant(t, "bob")
	code, err := f.tenantSvc.EnsureReferralCode(ctx, referrer.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Attribute(ctx, code, referred.ID))

	err = f.svc.HandleActivation(ctx, referred.ID)
	assert.ErrorIs(t, err, domain.ErrRewardPayoutFailed)
	assert.Equal(t, 2, wallet.calls)

	// The referral is parked for manual reward; redelivering the event
	// must not trigger another payout attempt.
	require.NoError(t, f.svc.HandleActivation(ctx, referred.ID))
	assert.Equal(t, 2, wallet.calls)

	balance, err := f.walletSvc.GetBalance(ctx, referrer.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "got %s", balance)
}

func TestAttributeOnlyOnce(t *testing.T) {
	f := newReferralFixture(t)
	ctx := context.Background()

	first := f.newTenant(t, "frank")
	second := f.newTenant(t, "grace")
	referred := f.newTenant(t, "heidi")

	firstCode, err := f.tenantSvc.EnsureReferralCode(ctx, first.ID)
	require.NoError(t, err)
	secondCode, err := f.tenantSvc.EnsureReferralCode(ctx, second.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Attribute(ctx, firstCode, referred.ID))
	assert.ErrorIs(t, f.svc.Attribute(ctx, secondCode, referred.ID), domain.ErrAlreadyAttributed)
}
