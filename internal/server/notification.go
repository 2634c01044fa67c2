package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListMyNotifications(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}

	resp, err := s.notificationSvc.ListByUser(c.Request.Context(), act.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
