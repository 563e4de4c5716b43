package rbac

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Policy *Policy
	Logger *slog.Logger
}

// Enforce gates every request through the policy before it reaches a handler.
func (m Middleware) Enforce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var roles []shared.Role
		actor, ok := shared.ActorFromContext(r.Context())
		if ok {
			roles = actor.Roles()
		}
		switch m.Policy.Decide(r.Method, r.URL.Path, roles) {
		case Permit:
			next.ServeHTTP(w, r)
		case Deny:
			m.log(r, actor, "rbac deny")
			httpx.RespondError(w, m.Logger, shared.ErrForbidden)
		default:
			httpx.RespondError(w, m.Logger, shared.ErrUnauthenticated)
		}
	})
}

// RequireAny ensures the current actor holds at least one of roles.
func (m Middleware) RequireAny(roles ...shared.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(roles) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, m.Logger, shared.ErrUnauthenticated)
				return
			}
			if hasAnyRole(actor.Roles(), roles) {
				next.ServeHTTP(w, r)
				return
			}
			m.log(r, actor, "rbac require any")
			httpx.RespondError(w, m.Logger, shared.ErrForbidden)
		})
	}
}

func (m Middleware) log(r *http.Request, actor shared.Actor, msg string) {
	if m.Logger == nil {
		return
	}
	m.Logger.Info(msg,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("subject", actor.Subject),
		slog.String("role", string(actor.Role)),
	)
}

func hasAnyRole(granted, required []shared.Role) bool {
	set := make(map[shared.Role]struct{}, len(granted))
	for _, g := range granted {
		set[g] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
