package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
	battlepassdomain "github.com/fablehold/fablehold/internal/battlepass/domain"
	"github.com/gin-gonic/gin"
)

type grantBattlepassRequest struct {
	UserID    string     `json:"user_id"`
	Uses      int        `json:"uses"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *Server) GrantBattlepass(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}

	var req grantBattlepassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		AbortWithError(c, newValidationError("user_id", "invalid_id", "invalid identifier"))
		return
	}

	resp, err := s.battlepassSvc.Grant(c.Request.Context(), act, battlepassdomain.GrantRequest{
		UserID:    userID,
		Uses:      req.Uses,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExpireBattlepass(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.battlepassSvc.Expire(c.Request.Context(), act, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"expired": true}})
}

func (s *Server) ListMyBattlepasses(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}

	resp, err := s.battlepassSvc.ListByUser(c.Request.Context(), act.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMyWriteoffs(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}

	resp, err := s.battlepassSvc.ListWriteoffs(c.Request.Context(), act.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUserBattlepasses(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}
	if !act.Can(actor.CapabilityBattlepassManage) {
		AbortWithError(c, ErrForbidden)
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	resp, err := s.battlepassSvc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUserWriteoffs(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}
	if !act.Can(actor.CapabilityBattlepassManage) {
		AbortWithError(c, ErrForbidden)
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	resp, err := s.battlepassSvc.ListWriteoffs(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
