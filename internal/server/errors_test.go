package server

import (
	"errors"
	"net/http"
	"testing"

	ledgerdomain "github.com/smallbiznis/kredo/internal/ledger/domain"
	pricingdomain "github.com/smallbiznis/kredo/internal/pricing/domain"
	referraldomain "github.com/smallbiznis/kredo/internal/referral/domain"
	signupdomain "github.com/smallbiznis/kredo/internal/signup/domain"
	tenantdomain "github.com/smallbiznis/kredo/internal/tenant/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		errType string
	}{
		{ledgerdomain.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
		{errors.Join(ledgerdomain.ErrStorageUnavailable, errors.New("conn refused")), http.StatusServiceUnavailable, "storage_unavailable"},
		{pricingdomain.ErrPricingConfigInvalid, http.StatusInternalServerError, "pricing_config_invalid"},
		{referraldomain.ErrRewardPayoutFailed, http.StatusInternalServerError, "reward_payout_failed"},
		{tenantdomain.ErrTenantNotFound, http.StatusNotFound, "not_found"},
		{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{signupdomain.ErrInvalidRequest, http.StatusBadRequest, "validation_error"},
		{tenantdomain.ErrInvalidName, http.StatusBadRequest, "validation_error"},
		{referraldomain.ErrSelfReferral, http.StatusBadRequest, "validation_error"},
		{errors.New("something else"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, "err %v", tc.err)
		assert.Equal(t, tc.errType, payload.Type, "err %v", tc.err)
	}
}
