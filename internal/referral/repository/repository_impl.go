package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kredo/internal/referral/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, referral *domain.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *repo) FindPendingByReferred(ctx context.Context, referredTenantID snowflake.ID) (*domain.Referral, error) {
	var item domain.Referral
	err := r.db.WithContext(ctx).
		Where("referred_tenant_id = ? AND status = ?", referredTenantID, domain.StatusPending).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) MarkRewarded(ctx context.Context, id snowflake.ID, amount decimal.Decimal, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE referrals
		 SET status = ?, reward_amount = ?, rewarded_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusRewarded,
		amount,
		at,
		at,
		id,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Revert(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE referrals
		 SET status = ?, reward_amount = 0, rewarded_at = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusPending,
		time.Now().UTC(),
		id,
		domain.StatusRewarded,
	).Error
}

func (r *repo) StatsByReferrer(ctx context.Context, referrerTenantID snowflake.ID) (*domain.Stats, error) {
	var row struct {
		TotalReferred int64
		TotalRewarded int64
		TotalEarned   decimal.Decimal
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total_referred,
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS total_rewarded,
		        COALESCE(SUM(CASE WHEN status = ? THEN reward_amount ELSE 0 END), 0) AS total_earned
		 FROM referrals
		 WHERE referrer_tenant_id = ?`,
		domain.StatusRewarded,
		domain.StatusRewarded,
		referrerTenantID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &domain.Stats{
		TotalReferred: row.TotalReferred,
		TotalRewarded: row.TotalRewarded,
		TotalEarned:   row.TotalEarned,
	}, nil
}
