package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
	"github.com/gin-gonic/gin"
)

const actorContextKey = "fablehold/actor"

// ActorRequired resolves the caller's capability set from the identity the
// auth gateway forwarded in X-User-Id. Authentication itself happens
// upstream; here the id is only exchanged for an explicit Actor.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		userID, err := snowflake.ParseString(raw)
		if err != nil || userID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		act, err := s.authzSvc.ResolveActor(c.Request.Context(), userID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(actorContextKey, act)
		c.Request = c.Request.WithContext(actor.WithActor(c.Request.Context(), act))
		c.Next()
	}
}

func currentActor(c *gin.Context) (actor.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return actor.Actor{}, false
	}
	act, ok := v.(actor.Actor)
	return act, ok
}

// mustActor is for handlers behind ActorRequired; a missing actor there is a
// wiring bug surfaced as unauthorized.
func mustActor(c *gin.Context) (actor.Actor, bool) {
	act, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return actor.Actor{}, false
	}
	return act, true
}
