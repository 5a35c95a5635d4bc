package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/kredo/pkg/tenantctx"
	"go.uber.org/zap"
)

const tenantHeader = "X-Tenant-ID"

// RequireTenant resolves the billing principal from the request header.
// Authentication itself lives in front of this service; the header is
// set by the gateway after session validation.
func (s *Server) RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(tenantHeader))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := tenantctx.WithTenantID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) rateLimit(scope string, rate float64, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		key := "ratelimit:" + scope + ":" + c.GetHeader(tenantHeader)
		res, err := s.limiter.Allow(c.Request.Context(), key, rate, burst)
		if err != nil {
			// Rate limiting is protective, not financial; fail open.
			s.log.Warn("rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			c.Header("Retry-After", res.RetryAfter.String())
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
