package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/kredo/internal/ledger/domain"
	walletdomain "github.com/smallbiznis/kredo/internal/wallet/domain"
	"github.com/smallbiznis/kredo/pkg/tenantctx"
)

type deductRequest struct {
	ActionType string         `json:"action_type" binding:"required"`
	TokensUsed int64          `json:"tokens_used"`
	Model      string         `json:"model"`
	Cost       *string        `json:"cost"`
	Metadata   map[string]any `json:"metadata"`
}

type deductResponse struct {
	Charged bool            `json:"charged"`
	Cost    decimal.Decimal `json:"cost"`
	Balance decimal.Decimal `json:"balance"`
}

type paymentWebhookRequest struct {
	TenantID  string         `json:"tenant_id" binding:"required"`
	Amount    string         `json:"amount" binding:"required"`
	PaymentID string         `json:"payment_id" binding:"required"`
	OrderID   string         `json:"order_id"`
	Metadata  map[string]any `json:"metadata"`
}

type adjustmentRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

type addCreditsRequest struct {
	TenantID string         `json:"tenant_id" binding:"required"`
	Amount   string         `json:"amount" binding:"required"`
	Type     string         `json:"type" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) GetBalance(c *gin.Context) {
	tenantID, _ := tenantctx.TenantID(c.Request.Context())

	balance, err := s.walletSvc.GetBalance(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant_id": tenantID.String(),
		"balance":   balance,
	})
}

func (s *Server) GetHistory(c *gin.Context) {
	tenantID, _ := tenantctx.TenantID(c.Request.Context())
	limit := queryLimit(c, 50)

	txns, err := s.walletSvc.GetHistory(c.Request.Context(), tenantID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

func (s *Server) GetUsage24h(c *gin.Context) {
	tenantID, _ := tenantctx.TenantID(c.Request.Context())

	used, err := s.walletSvc.GetUsage24h(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant_id":    tenantID.String(),
		"credits_used": used,
		"window":       "24h",
	})
}

func (s *Server) ListUsageEvents(c *gin.Context) {
	tenantID, _ := tenantctx.TenantID(c.Request.Context())
	limit := queryLimit(c, 50)

	events, err := s.usageSvc.List(c.Request.Context(), tenantID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) DeductCredits(c *gin.Context) {
	tenantID, _ := tenantctx.TenantID(c.Request.Context())

	var req deductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	cost, err := s.resolveCost(c, tenantID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ok, err := s.walletSvc.DeductCredits(c.Request.Context(), walletdomain.DeductRequest{
		TenantID:   tenantID,
		Amount:     cost,
		ActionType: req.ActionType,
		TokensUsed: req.TokensUsed,
		Model:      req.Model,
		Metadata:   req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !ok {
		AbortWithError(c, ledgerdomain.ErrInsufficientFunds)
		return
	}

	balance, err := s.walletSvc.GetBalance(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, deductResponse{
		Charged: true,
		Cost:    cost,
		Balance: balance,
	})
}

// resolveCost prefers an explicit pre-computed cost from the caller and
// otherwise prices the action through the active rule.
func (s *Server) resolveCost(c *gin.Context, tenantID snowflake.ID, req deductRequest) (decimal.Decimal, error) {
	if req.Cost != nil {
		cost, err := decimal.NewFromString(strings.TrimSpace(*req.Cost))
		if err != nil || !cost.IsPositive() {
			return decimal.Zero, walletdomain.ErrInvalidAmount
		}
		return cost, nil
	}
	return s.pricingSvc.CalculateCost(c.Request.Context(), tenantID, req.ActionType, req.TokensUsed)
}

func (s *Server) PaymentWebhook(c *gin.Context) {
	var req paymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	tenantID, err := snowflake.ParseString(req.TenantID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		AbortWithError(c, walletdomain.ErrInvalidAmount)
		return
	}

	credited, err := s.walletSvc.TopUp(c.Request.Context(), walletdomain.TopUpRequest{
		TenantID:    tenantID,
		Amount:      amount,
		Description: "payment top-up",
		PaymentID:   req.PaymentID,
		OrderID:     req.OrderID,
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"credited": credited})
}

func (s *Server) AdjustBalance(c *gin.Context) {
	var req adjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	tenantID, err := snowflake.ParseString(req.TenantID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		AbortWithError(c, walletdomain.ErrInvalidAmount)
		return
	}

	if err := s.walletSvc.AdjustBalance(c.Request.Context(), tenantID, amount, req.Reason); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "applied"})
}

func (s *Server) AddCredits(c *gin.Context) {
	var req addCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	tenantID, err := snowflake.ParseString(req.TenantID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		AbortWithError(c, walletdomain.ErrInvalidAmount)
		return
	}

	txnType := ledgerdomain.TransactionType(req.Type)
	if err := s.walletSvc.AddCredits(c.Request.Context(), tenantID, amount, txnType, req.Metadata); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "credited"})
}

func queryLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
