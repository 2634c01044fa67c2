package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
	"github.com/fablehold/fablehold/pkg/db/pagination"
)

type CreateRequest struct {
	Kind  ElementKind `json:"kind"`
	Title string      `json:"title"`
	Body  string      `json:"body"`
}

type UpdateRequest struct {
	ID       snowflake.ID
	Title    *string `json:"title"`
	Body     *string `json:"body"`
	IsActive *bool   `json:"is_active"`
}

type ListRequest struct {
	Kind      ElementKind
	Status    ElementStatus
	PageToken string
	PageSize  int
}

type Service interface {
	Create(ctx context.Context, act actor.Actor, req CreateRequest) (*StoryElement, error)
	Update(ctx context.Context, act actor.Actor, req UpdateRequest) (*StoryElement, error)
	// Delete removes an element; it fails with ErrElementLocked while the
	// element is claimed.
	Delete(ctx context.Context, act actor.Actor, id snowflake.ID) error
	Get(ctx context.Context, id snowflake.ID) (*StoryElement, error)
	List(ctx context.Context, req ListRequest) ([]StoryElement, *pagination.PageInfo, error)

	// Claim attempts an exclusive claim for reportID. It returns false when
	// another report holds the element; callers must treat false as a lost
	// race, not an error.
	Claim(ctx context.Context, elementID, reportID, groupID snowflake.ID) (bool, error)
	// ReleaseClaim undoes a claim held by reportID; used to roll back a
	// partially claimed grid.
	ReleaseClaim(ctx context.Context, elementID, reportID snowflake.ID) error
	// Release is the manual administrative unlock. Cancelled reports do not
	// release their elements automatically; this is the only way to free them.
	Release(ctx context.Context, act actor.Actor, elementID snowflake.ID) error

	// CheckAvailability returns the subset of ids currently AVAILABLE and
	// active. The answer is advisory only; claims can still lose the race.
	CheckAvailability(ctx context.Context, ids []snowflake.ID) ([]snowflake.ID, error)
	// PickRandomAvailable returns a uniformly random AVAILABLE element of the
	// given kind without claiming it.
	PickRandomAvailable(ctx context.Context, kind ElementKind) (*StoryElement, error)
	// PickRandomGrid returns one random pick per plan slot.
	PickRandomGrid(ctx context.Context) (*RandomGrid, error)
}
