package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	signupdomain "github.com/smallbiznis/kredo/internal/signup/domain"
)

func (s *Server) Signup(c *gin.Context) {
	var req signupdomain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, signupdomain.ErrInvalidRequest)
		return
	}

	result, err := s.signupSvc.Signup(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
