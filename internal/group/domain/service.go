package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
)

type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateRequest struct {
	ID          snowflake.ID
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type Service interface {
	// Create makes the calling actor the group's master.
	Create(ctx context.Context, act actor.Actor, req CreateRequest) (*Group, error)
	Get(ctx context.Context, id snowflake.ID) (*Group, error)
	List(ctx context.Context) ([]Group, error)
	// Update is allowed for the group's master or group.manage holders.
	Update(ctx context.Context, act actor.Actor, req UpdateRequest) (*Group, error)
}
