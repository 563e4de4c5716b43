package shared

import (
	"context"
	"time"
)

// Actor is the authenticated caller derived from a verified bearer token.
type Actor struct {
	Subject    string
	Kind       PrincipalKind
	Role       Role
	ID         string
	Name       string
	Department string
	TokenID    string
	ExpiresAt  time.Time
}

// Roles returns the role set used by authorization decisions.
func (a Actor) Roles() []Role {
	if a.Role == "" {
		return nil
	}
	return []Role{a.Role}
}

// IsSuperAdmin reports whether the actor holds the SUPER_ADMIN role.
func (a Actor) IsSuperAdmin() bool {
	return a.Kind == KindAdmin && a.Role == RoleSuperAdmin
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
