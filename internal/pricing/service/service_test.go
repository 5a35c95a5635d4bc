package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kredo/internal/pricing/domain"
	tenantdomain "github.com/smallbiznis/kredo/internal/tenant/domain"
	tenantservice "github.com/smallbiznis/kredo/internal/tenant/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type pricingFixture struct {
	svc       domain.Service
	tenantSvc tenantdomain.Service
	node      *snowflake.Node
}

func newPricingFixture(t *testing.T) *pricingFixture {
	t.Helper()

	dbConn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := dbConn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, dbConn.AutoMigrate(&domain.PricingRule{}, &tenantdomain.Tenant{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	tenantSvc := tenantservice.NewService(tenantservice.Params{
		DB:    dbConn,
		Log:   log,
		GenID: node,
	})
	svc := NewService(Params{
		DB:        dbConn,
		Log:       log,
		GenID:     node,
		TenantSvc: tenantSvc,
	})

	return &pricingFixture{svc: svc, tenantSvc: tenantSvc, node: node}
}

func defaultRuleRequest() domain.UpdateRuleRequest {
	return domain.UpdateRuleRequest{
		BaseRatePer1K: decimal.RequireFromString("0.002"),
		ActionMultipliers: map[string]float64{
			"default":     1.0,
			"ai_reply":    1.0,
			"memory_read": 0.5,
		},
		PersonaMultipliers: map[string]float64{
			"default": 1.0,
			"premium": 1.5,
		},
	}
}

func TestActiveRuleMissing(t *testing.T) {
	f := newPricingFixture(t)

	_, err := f.svc.ActiveRule(context.Background())
	assert.ErrorIs(t, err, domain.ErrPricingConfigInvalid)

	_, err = f.svc.CalculateCost(context.Background(), f.node.Generate(), "ai_reply", 1000)
	assert.ErrorIs(t, err, domain.ErrPricingConfigInvalid)
}

func TestUpdateRuleVersioning(t *testing.T) {
	f := newPricingFixture(t)
	ctx := context.Background()

	first, err := f.svc.UpdateRule(ctx, defaultRuleRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	req := defaultRuleRequest()
	req.BaseRatePer1K = decimal.RequireFromString("0.004")
	second, err := f.svc.UpdateRule(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	active, err := f.svc.ActiveRule(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	// The superseded version stays in the table for auditability but is
	// no longer active.
	var old domain.PricingRule
	require.NoError(t, activeRuleDB(f).Where("id = ?", first.ID).First(&old).Error)
	assert.False(t, old.Active)
}

func TestUpdateRuleRejectsInvalidConfig(t *testing.T) {
	f := newPricingFixture(t)
	ctx := context.Background()

	req := defaultRuleRequest()
	req.ActionMultipliers = map[string]float64{"ai_reply": 1.0}
	_, err := f.svc.UpdateRule(ctx, req)
	assert.ErrorIs(t, err, domain.ErrPricingConfigInvalid)

	// A rejected update must not consume a version or deactivate anything.
	_, err = f.svc.ActiveRule(ctx)
	assert.ErrorIs(t, err, domain.ErrPricingConfigInvalid)
}

func TestCalculateCostUsesPersona(t *testing.T) {
	f := newPricingFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateRule(ctx, defaultRuleRequest())
	require.NoError(t, err)

	premium, err := f.tenantSvc.Create(ctx, tenantdomain.CreateRequest{Name: "prem", Persona: "premium"})
	require.NoError(t, err)

	cost, err := f.svc.CalculateCost(ctx, premium.ID, "ai_reply", 1000)
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.RequireFromString("0.003")), "got %s", cost)

	// An unknown tenant prices at the default persona instead of failing.
	cost, err = f.svc.CalculateCost(ctx, f.node.Generate(), "ai_reply", 1000)
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.RequireFromString("0.002")), "got %s", cost)
}

func activeRuleDB(f *pricingFixture) *gorm.DB {
	return f.svc.(*Service).db
}
