package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kredo/internal/clock"
	ledgerdomain "github.com/smallbiznis/kredo/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/kredo/internal/observability/metrics"
	usagedomain "github.com/smallbiznis/kredo/internal/usageevent/domain"
	walletdomain "github.com/smallbiznis/kredo/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Ledger     ledgerdomain.Repository
	UsageSvc   usagedomain.Service
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	ledger     ledgerdomain.Repository
	usageSvc   usagedomain.Service
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) walletdomain.Service {
	return &Service{
		log:        p.Log.Named("wallet.service"),
		genID:      p.GenID,
		ledger:     p.Ledger,
		usageSvc:   p.UsageSvc,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) GetBalance(ctx context.Context, tenantID snowflake.ID) (decimal.Decimal, error) {
	return s.ledger.BalanceOf(ctx, tenantID)
}

func (s *Service) HasSufficientBalance(ctx context.Context, tenantID snowflake.ID, estimatedCost decimal.Decimal) (bool, error) {
	balance, err := s.ledger.BalanceOf(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return balance.GreaterThanOrEqual(estimatedCost), nil
}

func (s *Service) DeductCredits(ctx context.Context, req walletdomain.DeductRequest) (bool, error) {
	if !req.Amount.IsPositive() {
		return false, walletdomain.ErrInvalidAmount
	}

	metadata := cloneMetadata(req.Metadata)
	if req.TokensUsed > 0 {
		metadata["tokens"] = req.TokensUsed
	}
	if req.Model != "" {
		metadata["model"] = req.Model
	}
	metadata["action_type"] = req.ActionType

	description := "AI usage: " + req.ActionType
	txn := &ledgerdomain.CreditTransaction{
		ID:          s.genID.Generate(),
		TenantID:    req.TenantID,
		Amount:      req.Amount.Neg(),
		Type:        ledgerdomain.TypeForAction(req.ActionType),
		Description: &description,
		Metadata:    metadata,
		CreatedAt:   s.clock.Now(),
	}

	err := s.ledger.Append(ctx, txn)
	if errors.Is(err, ledgerdomain.ErrInsufficientFunds) {
		if s.obsMetrics != nil {
			s.obsMetrics.InsufficientFunds.Inc()
		}
		s.log.Info("deduction rejected: insufficient funds",
			zap.String("tenant_id", req.TenantID.String()),
			zap.String("action_type", req.ActionType),
			zap.String("amount", req.Amount.String()),
		)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.Deductions.WithLabelValues(req.ActionType).Inc()
	}

	// The debit is committed; the usage mirror is best-effort and must
	// never roll it back.
	if _, err := s.usageSvc.Record(ctx, usagedomain.RecordRequest{
		TenantID:      req.TenantID,
		ActionType:    req.ActionType,
		TokensUsed:    req.TokensUsed,
		CreditsUsed:   req.Amount,
		Model:         req.Model,
		TransactionID: txn.ID,
		Metadata:      req.Metadata,
	}); err != nil {
		if s.obsMetrics != nil {
			s.obsMetrics.UsageEventErrors.Inc()
		}
		s.log.Warn("failed to record usage event",
			zap.String("tenant_id", req.TenantID.String()),
			zap.String("transaction_id", txn.ID.String()),
			zap.Error(err),
		)
	}

	return true, nil
}

func (s *Service) TopUp(ctx context.Context, req walletdomain.TopUpRequest) (bool, error) {
	if !req.Amount.IsPositive() {
		return false, walletdomain.ErrInvalidAmount
	}

	metadata := cloneMetadata(req.Metadata)
	var externalRef *string
	if paymentID := strings.TrimSpace(req.PaymentID); paymentID != "" {
		metadata["payment_id"] = paymentID
		externalRef = &paymentID
	}
	if orderID := strings.TrimSpace(req.OrderID); orderID != "" {
		metadata["order_id"] = orderID
	}

	description := req.Description
	if description == "" {
		description = "Top up"
	}

	txn := &ledgerdomain.CreditTransaction{
		ID:          s.genID.Generate(),
		TenantID:    req.TenantID,
		Amount:      req.Amount,
		Type:        ledgerdomain.TypeTopUp,
		Description: &description,
		ExternalRef: externalRef,
		Metadata:    metadata,
		CreatedAt:   s.clock.Now(),
	}

	err := s.ledger.Append(ctx, txn)
	if errors.Is(err, ledgerdomain.ErrDuplicateExternalRef) {
		if s.obsMetrics != nil {
			s.obsMetrics.DuplicateTopUps.Inc()
		}
		s.log.Info("duplicate top-up suppressed",
			zap.String("tenant_id", req.TenantID.String()),
			zap.String("payment_id", req.PaymentID),
		)
		return true, nil
	}
	if err != nil {
		return false, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.TopUps.Inc()
	}
	return true, nil
}

func (s *Service) AdjustBalance(ctx context.Context, tenantID snowflake.ID, amount decimal.Decimal, reason string) error {
	if amount.IsZero() {
		return walletdomain.ErrInvalidAmount
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return walletdomain.ErrInvalidReason
	}

	txn := &ledgerdomain.CreditTransaction{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Amount:      amount,
		Type:        ledgerdomain.TypeAdminAdjustment,
		Description: &reason,
		Metadata:    datatypes.JSONMap{"reason": reason},
		CreatedAt:   s.clock.Now(),
	}
	if err := s.ledger.Append(ctx, txn); err != nil {
		return err
	}
	if s.obsMetrics != nil {
		s.obsMetrics.Adjustments.Inc()
	}
	return nil
}

func (s *Service) AddCredits(ctx context.Context, tenantID snowflake.ID, amount decimal.Decimal, txnType ledgerdomain.TransactionType, metadata map[string]any) error {
	if !amount.IsPositive() {
		return walletdomain.ErrInvalidAmount
	}

	description := string(txnType)
	txn := &ledgerdomain.CreditTransaction{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Amount:      amount,
		Type:        txnType,
		Description: &description,
		Metadata:    cloneMetadata(metadata),
		CreatedAt:   s.clock.Now(),
	}
	return s.ledger.Append(ctx, txn)
}

func (s *Service) HasTransactionType(ctx context.Context, tenantID snowflake.ID, txnType ledgerdomain.TransactionType) (bool, error) {
	return s.ledger.HasType(ctx, tenantID, txnType)
}

func (s *Service) GetHistory(ctx context.Context, tenantID snowflake.ID, limit int) ([]ledgerdomain.CreditTransaction, error) {
	return s.ledger.History(ctx, tenantID, limit)
}

func (s *Service) GetUsage24h(ctx context.Context, tenantID snowflake.ID) (decimal.Decimal, error) {
	since := s.clock.Now().Add(-24 * time.Hour)
	return s.ledger.SumDebitsByTypesSince(ctx, tenantID, ledgerdomain.MeteredTypes(), since)
}

func cloneMetadata(in map[string]any) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}
