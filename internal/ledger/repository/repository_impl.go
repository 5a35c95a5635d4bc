package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kredo/internal/ledger/domain"
	pkgdb "github.com/smallbiznis/kredo/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Append(ctx context.Context, txn *domain.CreditTransaction) error {
	if txn.TenantID == 0 {
		return domain.ErrInvalidTenant
	}
	if txn.Amount.IsZero() {
		return domain.ErrInvalidAmount
	}
	if txn.Type == "" {
		return domain.ErrInvalidType
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			return err
		}

		// The balance aggregate is written in the same transaction as
		// the append. Debits go through a plain UPDATE so the CHECK
		// constraint on wallet_balances.balance judges the updated
		// value; an upsert would trip it on the candidate row, which
		// carries the raw signed amount. The row lock taken by the
		// update serializes concurrent debits on the same tenant.
		if txn.Amount.IsNegative() {
			res := tx.Exec(
				`UPDATE wallet_balances
				 SET balance = balance + ?, updated_at = ?
				 WHERE tenant_id = ?`,
				txn.Amount,
				txn.CreatedAt,
				txn.TenantID,
			)
			if res.Error != nil {
				return res.Error
			}
			// No aggregate row means the tenant never held credits.
			if res.RowsAffected == 0 {
				return domain.ErrInsufficientFunds
			}
			return nil
		}

		return tx.Exec(
			`INSERT INTO wallet_balances (tenant_id, balance, updated_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT (tenant_id) DO UPDATE
			 SET balance = wallet_balances.balance + excluded.balance,
			     updated_at = excluded.updated_at`,
			txn.TenantID,
			txn.Amount,
			txn.CreatedAt,
		).Error
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInsufficientFunds):
		return domain.ErrInsufficientFunds
	case pkgdb.IsCheckViolationErr(err):
		return domain.ErrInsufficientFunds
	case pkgdb.IsDuplicateKeyErr(err):
		return domain.ErrDuplicateExternalRef
	default:
		return errors.Join(domain.ErrStorageUnavailable, err)
	}
}

func (r *repo) BalanceOf(ctx context.Context, tenantID snowflake.ID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) AS total
		 FROM credit_transactions
		 WHERE tenant_id = ?`,
		tenantID,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, errors.Join(domain.ErrStorageUnavailable, err)
	}
	return row.Total, nil
}

func (r *repo) History(ctx context.Context, tenantID snowflake.ID, limit int) ([]domain.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []domain.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, errors.Join(domain.ErrStorageUnavailable, err)
	}
	return items, nil
}

func (r *repo) SumDebitsByTypesSince(ctx context.Context, tenantID snowflake.ID, types []domain.TransactionType, since time.Time) (decimal.Decimal, error) {
	if len(types) == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(-amount), 0) AS total
		 FROM credit_transactions
		 WHERE tenant_id = ? AND type IN ? AND amount < 0 AND created_at >= ?`,
		tenantID,
		types,
		since,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, errors.Join(domain.ErrStorageUnavailable, err)
	}
	return row.Total, nil
}

func (r *repo) HasType(ctx context.Context, tenantID snowflake.ID, txnType domain.TransactionType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.CreditTransaction{}).
		Where("tenant_id = ? AND type = ?", tenantID, txnType).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, errors.Join(domain.ErrStorageUnavailable, err)
	}
	return count > 0, nil
}

func (r *repo) FindByExternalRef(ctx context.Context, tenantID snowflake.ID, ref string) (*domain.CreditTransaction, error) {
	var item domain.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND external_ref = ?", tenantID, ref).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(domain.ErrStorageUnavailable, err)
	}
	return &item, nil
}
