package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/kredo/pkg/tenantctx"
)

func (s *Server) GetReferralStats(c *gin.Context) {
	tenantID, _ := tenantctx.TenantID(c.Request.Context())

	stats, err := s.referralSvc.Stats(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HandleActivation is posted by the product when a tenant crosses the
// activation threshold. It is safe to deliver more than once.
func (s *Server) HandleActivation(c *gin.Context) {
	tenantID, _ := tenantctx.TenantID(c.Request.Context())

	if err := s.referralSvc.HandleActivation(c.Request.Context(), tenantID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
