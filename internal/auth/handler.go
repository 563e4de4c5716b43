package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
	"github.com/odyssey-erp/odyssey-campus/internal/students"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	loginLimiter func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance. loginLimiter may be nil.
func NewHandler(logger *slog.Logger, service *Service, loginLimiter func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loginLimiter == nil {
		loginLimiter = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{logger: logger, service: service, loginLimiter: loginLimiter}
}

// MountRoutes registers the /auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.loginLimiter)
		r.Post("/login", h.login(h.service.Login))
		r.Post("/student-login", h.login(h.service.StudentLogin))
		r.Post("/register", h.registerStudent)
		r.Post("/forgot-password", h.forgotPassword)
	})
	r.Post("/refresh-token", h.refresh(shared.KindStudent))
	r.Get("/validate-token", h.validateToken(shared.KindStudent))
	r.Post("/change-password", h.changePassword)
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
}

// MountAdminRoutes registers the /admin/auth routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.loginLimiter)
		r.Post("/login", h.login(h.service.AdminLogin))
		r.Post("/register", h.registerAdmin)
	})
	r.Post("/refresh-token", h.refresh(shared.KindAdmin))
	r.Get("/validate-token", h.validateToken(shared.KindAdmin))
	r.Post("/change-password", h.changePassword)
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
}

func (h *Handler) login(fn func(ctx context.Context, req LoginRequest) (*Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		session, err := fn(r.Context(), req)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.OK(w, http.StatusOK, "Login successful", session)
	}
}

func (h *Handler) registerStudent(w http.ResponseWriter, r *http.Request) {
	var req students.CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	session, err := h.service.RegisterStudent(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Registration successful", session)
}

func (h *Handler) registerAdmin(w http.ResponseWriter, r *http.Request) {
	var req AdminRegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	session, err := h.service.RegisterAdmin(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Admin registered", session)
}

func (h *Handler) refresh(kind shared.PrincipalKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := BearerToken(r)
		if !ok {
			httpx.RespondError(w, h.logger, shared.ErrUnauthenticated)
			return
		}
		session, err := h.service.Refresh(r.Context(), raw, kind)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.OK(w, http.StatusOK, "Token refreshed", session)
	}
}

func (h *Handler) validateToken(kind shared.PrincipalKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := BearerToken(r)
		if !ok {
			httpx.RespondError(w, h.logger, shared.ErrUnauthenticated)
			return
		}
		profile, err := h.service.Validate(r.Context(), raw, kind)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.OK(w, http.StatusOK, "Token is valid", profile)
	}
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthenticated)
		return
	}
	var req ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), actor, req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Password changed successfully", nil)
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.ForgotPassword(r.Context(), req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, ForgotPasswordMessage, nil)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthenticated)
		return
	}
	if err := h.service.Logout(r.Context(), actor); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Logged out", nil)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthenticated)
		return
	}
	profile, err := h.service.Me(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", profile)
}
