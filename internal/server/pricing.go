package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pricingdomain "github.com/smallbiznis/kredo/internal/pricing/domain"
	"github.com/smallbiznis/kredo/pkg/tenantctx"
)

type estimateRequest struct {
	ActionType string `json:"action_type" binding:"required"`
	TokensUsed int64  `json:"tokens_used"`
}

func (s *Server) EstimateCost(c *gin.Context) {
	tenantID, _ := tenantctx.TenantID(c.Request.Context())

	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	cost, err := s.pricingSvc.CalculateCost(c.Request.Context(), tenantID, req.ActionType, req.TokensUsed)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sufficient, err := s.walletSvc.HasSufficientBalance(c.Request.Context(), tenantID, cost)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"estimated_cost": cost,
		"sufficient":     sufficient,
	})
}

func (s *Server) GetPricingRule(c *gin.Context) {
	rule, err := s.pricingSvc.ActiveRule(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (s *Server) UpdatePricingRule(c *gin.Context) {
	var req pricingdomain.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rule, err := s.pricingSvc.UpdateRule(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}
