// Package actor carries the identity and capability set of the caller through
// every pipeline operation. Services never read ambient session state; the
// HTTP layer resolves an Actor once and passes it down explicitly.
package actor

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Capability string

const (
	CapabilityReportModerate   Capability = "report.moderate"
	CapabilityReportCancel     Capability = "report.cancel"
	CapabilityElementManage    Capability = "element.manage"
	CapabilityBattlepassManage Capability = "battlepass.manage"
	CapabilityGroupManage      Capability = "group.manage"
	CapabilityRoleManage       Capability = "role.manage"
)

// Actor identifies the caller of a pipeline operation.
type Actor struct {
	ID           snowflake.ID
	Capabilities map[Capability]struct{}
}

func New(id snowflake.ID, caps ...Capability) Actor {
	a := Actor{ID: id, Capabilities: make(map[Capability]struct{}, len(caps))}
	for _, c := range caps {
		a.Capabilities[c] = struct{}{}
	}
	return a
}

func (a Actor) Can(c Capability) bool {
	_, ok := a.Capabilities[c]
	return ok
}

type contextKey struct{}

// WithActor stores the resolved actor in the request context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext returns the resolved actor, if set.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(contextKey{}).(Actor)
	return a, ok
}
