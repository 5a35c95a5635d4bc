package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/kredo/internal/ledger/domain"
	pricingdomain "github.com/smallbiznis/kredo/internal/pricing/domain"
	referraldomain "github.com/smallbiznis/kredo/internal/referral/domain"
	signupdomain "github.com/smallbiznis/kredo/internal/signup/domain"
	tenantdomain "github.com/smallbiznis/kredo/internal/tenant/domain"
	walletdomain "github.com/smallbiznis/kredo/internal/wallet/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}

	case errors.Is(err, ledgerdomain.ErrInsufficientFunds):
		return http.StatusPaymentRequired, errorPayload{Type: "insufficient_funds", Message: "top up required"}

	case errors.Is(err, ledgerdomain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, errorPayload{Type: "storage_unavailable", Message: "storage unavailable"}

	case errors.Is(err, pricingdomain.ErrPricingConfigInvalid):
		return http.StatusInternalServerError, errorPayload{Type: "pricing_config_invalid", Message: "pricing configuration invalid"}

	case errors.Is(err, referraldomain.ErrRewardPayoutFailed):
		return http.StatusInternalServerError, errorPayload{Type: "reward_payout_failed", Message: "referral reward requires manual handling"}

	case errors.Is(err, tenantdomain.ErrTenantNotFound),
		errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "resource not found"}

	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{Type: "rate_limited", Message: "too many requests"}

	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "unauthorized"}

	case errors.Is(err, walletdomain.ErrInvalidAmount),
		errors.Is(err, walletdomain.ErrInvalidReason),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidTenant),
		errors.Is(err, ledgerdomain.ErrInvalidType),
		errors.Is(err, tenantdomain.ErrInvalidName),
		errors.Is(err, referraldomain.ErrInvalidReferralCode),
		errors.Is(err, referraldomain.ErrSelfReferral),
		errors.Is(err, signupdomain.ErrInvalidRequest),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: err.Error()}

	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}
