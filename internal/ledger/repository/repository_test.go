package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kredo/internal/ledger/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) (domain.Repository, *snowflake.Node) {
	t.Helper()

	dbConn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := dbConn.DB()
	require.NoError(t, err)
	// A single connection keeps every transaction on the same in-memory
	// database and serializes concurrent writers the way a row lock does.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, dbConn.AutoMigrate(&domain.CreditTransaction{}, &domain.WalletBalance{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return Provide(dbConn), node
}

func topUp(t *testing.T, repo domain.Repository, node *snowflake.Node, tenantID snowflake.ID, amount string) {
	t.Helper()
	err := repo.Append(context.Background(), &domain.CreditTransaction{
		ID:       node.Generate(),
		TenantID: tenantID,
		Amount:   decimal.RequireFromString(amount),
		Type:     domain.TypeTopUp,
	})
	require.NoError(t, err)
}

func TestAppendDerivesBalance(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()
	tenantID := node.Generate()

	topUp(t, repo, node, tenantID, "100")

	err := repo.Append(ctx, &domain.CreditTransaction{
		ID:       node.Generate(),
		TenantID: tenantID,
		Amount:   decimal.RequireFromString("-2.5"),
		Type:     domain.TypeAIUsage,
	})
	require.NoError(t, err)

	balance, err := repo.BalanceOf(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("97.5")), "got %s", balance)
}

func TestBalanceOfUnknownTenantIsZero(t *testing.T) {
	repo, node := newTestRepo(t)

	balance, err := repo.BalanceOf(context.Background(), node.Generate())
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestAppendRejectsOverdraft(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()
	tenantID := node.Generate()

	topUp(t, repo, node, tenantID, "10")

	err := repo.Append(ctx, &domain.CreditTransaction{
		ID:       node.Generate(),
		TenantID: tenantID,
		Amount:   decimal.RequireFromString("-10.5"),
		Type:     domain.TypeAIUsage,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// The rejected debit must leave no trace: neither the transaction row
	// nor the balance change survives the rollback.
	balance, err := repo.BalanceOf(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("10")), "got %s", balance)

	history, err := repo.History(ctx, tenantID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestConcurrentDebitsSingleWinner(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()
	tenantID := node.Generate()

	topUp(t, repo, node, tenantID, "100")

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = repo.Append(ctx, &domain.CreditTransaction{
				ID:       node.Generate(),
				TenantID: tenantID,
				Amount:   decimal.RequireFromString("-60"),
				Type:     domain.TypeAIUsage,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	insufficient := 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case err == domain.ErrInsufficientFunds:
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	balance, err := repo.BalanceOf(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("40")), "got %s", balance)
}

func TestAppendDuplicateExternalRef(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()
	tenantID := node.Generate()
	otherID := node.Generate()
	ref := "pay_123"

	first := &domain.CreditTransaction{
		ID:          node.Generate(),
		TenantID:    tenantID,
		Amount:      decimal.RequireFromString("500"),
		Type:        domain.TypeTopUp,
		ExternalRef: &ref,
	}
	require.NoError(t, repo.Append(ctx, first))

	dup := &domain.CreditTransaction{
		ID:          node.Generate(),
		TenantID:    tenantID,
		Amount:      decimal.RequireFromString("500"),
		Type:        domain.TypeTopUp,
		ExternalRef: &ref,
	}
	require.ErrorIs(t, repo.Append(ctx, dup), domain.ErrDuplicateExternalRef)

	// The key is scoped per tenant: another tenant may reuse the ref.
	other := &domain.CreditTransaction{
		ID:          node.Generate(),
		TenantID:    otherID,
		Amount:      decimal.RequireFromString("500"),
		Type:        domain.TypeTopUp,
		ExternalRef: &ref,
	}
	require.NoError(t, repo.Append(ctx, other))

	found, err := repo.FindByExternalRef(ctx, tenantID, ref)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
}

func TestAppendValidation(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()

	err := repo.Append(ctx, &domain.CreditTransaction{
		ID:     node.Generate(),
		Amount: decimal.RequireFromString("1"),
		Type:   domain.TypeTopUp,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)

	err = repo.Append(ctx, &domain.CreditTransaction{
		ID:       node.Generate(),
		TenantID: node.Generate(),
		Type:     domain.TypeTopUp,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	err = repo.Append(ctx, &domain.CreditTransaction{
		ID:       node.Generate(),
		TenantID: node.Generate(),
		Amount:   decimal.RequireFromString("1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidType)
}

func TestAppendDrainsBalanceToZero(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()
	tenantID := node.Generate()

	topUp(t, repo, node, tenantID, "2.5")

	err := repo.Append(ctx, &domain.CreditTransaction{
		ID:       node.Generate(),
		TenantID: tenantID,
		Amount:   decimal.RequireFromString("-1.5"),
		Type:     domain.TypeAIUsage,
	})
	require.NoError(t, err)

	// A debit of the exact remaining balance is allowed; only going
	// below zero is not.
	err = repo.Append(ctx, &domain.CreditTransaction{
		ID:       node.Generate(),
		TenantID: tenantID,
		Amount:   decimal.RequireFromString("-1"),
		Type:     domain.TypeAIUsage,
	})
	require.NoError(t, err)

	balance, err := repo.BalanceOf(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "got %s", balance)
}

func TestAppendDebitWithoutAnyCredit(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()
	tenantID := node.Generate()

	err := repo.Append(ctx, &domain.CreditTransaction{
		ID:       node.Generate(),
		TenantID: tenantID,
		Amount:   decimal.RequireFromString("-1"),
		Type:     domain.TypeAIUsage,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	history, err := repo.History(ctx, tenantID, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSumDebitsByTypesSince(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()
	tenantID := node.Generate()
	now := time.Now().UTC()

	write := func(amount string, txnType domain.TransactionType, at time.Time) {
		require.NoError(t, repo.Append(ctx, &domain.CreditTransaction{
			ID:        node.Generate(),
			TenantID:  tenantID,
			Amount:    decimal.RequireFromString(amount),
			Type:      txnType,
			CreatedAt: at,
		}))
	}

	write("100", domain.TypeTopUp, now.Add(-48*time.Hour))
	write("-4", domain.TypeAIUsage, now.Add(-30*time.Hour))
	write("-1", domain.TypeAIUsage, now.Add(-2*time.Hour))
	write("-0.5", domain.TypeMemoryRead, now.Add(-time.Hour))
	// A credit carrying a metered type must not offset the window.
	write("5", domain.TypeAIUsage, now.Add(-time.Hour))

	total, err := repo.SumDebitsByTypesSince(ctx, tenantID, domain.MeteredTypes(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("1.5")), "got %s", total)
}

func TestHasType(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()
	tenantID := node.Generate()

	has, err := repo.HasType(ctx, tenantID, domain.TypeSignupBonus)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, repo.Append(ctx, &domain.CreditTransaction{
		ID:       node.Generate(),
		TenantID: tenantID,
		Amount:   decimal.RequireFromString("30"),
		Type:     domain.TypeSignupBonus,
	}))

	has, err = repo.HasType(ctx, tenantID, domain.TypeSignupBonus)
	require.NoError(t, err)
	assert.True(t, has)
}
