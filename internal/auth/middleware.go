package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Authenticator turns a raw bearer token into an actor.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (shared.Actor, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware attaches the actor for requests carrying a valid token. It never
// rejects a request; the authorization policy decides what anonymous callers
// may reach.
func Middleware(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			actor, err := authn.Authenticate(r.Context(), raw)
			if err != nil {
				logger.Debug("bearer token rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
		})
	}
}
