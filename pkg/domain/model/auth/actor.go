package auth

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// Actor is the request-scoped caller identity. Every engine operation
// receives one explicitly; WorkspaceID scopes all storage access.
type Actor struct {
	WorkspaceID string
	UserID      string
	Roles       []string
	IPAddress   string
}

// ErrNoActor is returned when the context does not carry an actor
var ErrNoActor = goerr.New("actor not found in context")

type ctxKey struct{}

// ContextWithActor stores the actor in ctx
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// ActorFromContext returns the actor stored by ContextWithActor
func ActorFromContext(ctx context.Context) (*Actor, error) {
	actor, ok := ctx.Value(ctxKey{}).(*Actor)
	if !ok || actor == nil {
		return nil, ErrNoActor
	}
	return actor, nil
}

// Validate checks that the actor identifies both a tenant and a user
func (a *Actor) Validate() error {
	if a == nil {
		return goerr.New("actor is required")
	}
	if a.WorkspaceID == "" {
		return goerr.New("actor workspace ID is required")
	}
	if a.UserID == "" {
		return goerr.New("actor user ID is required", goerr.V("workspace_id", a.WorkspaceID))
	}
	return nil
}
