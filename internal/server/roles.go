package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
	"github.com/gin-gonic/gin"
)

type roleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (s *Server) GrantRole(c *gin.Context) {
	userID, role, ok := s.bindRoleRequest(c)
	if !ok {
		return
	}

	if err := s.authzSvc.GrantRole(c.Request.Context(), userID, role); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"granted": true}})
}

func (s *Server) RevokeRole(c *gin.Context) {
	userID, role, ok := s.bindRoleRequest(c)
	if !ok {
		return
	}

	if err := s.authzSvc.RevokeRole(c.Request.Context(), userID, role); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"revoked": true}})
}

func (s *Server) bindRoleRequest(c *gin.Context) (snowflake.ID, string, bool) {
	act, ok := mustActor(c)
	if !ok {
		return 0, "", false
	}
	if !act.Can(actor.CapabilityRoleManage) {
		AbortWithError(c, ErrForbidden)
		return 0, "", false
	}

	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return 0, "", false
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		AbortWithError(c, newValidationError("user_id", "invalid_id", "invalid identifier"))
		return 0, "", false
	}
	return userID, req.Role, true
}
