package admissions

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// IdempotencyHeader carries an optional client idempotency key on submit.
const IdempotencyHeader = "Idempotency-Key"

// Handler wires HTTP endpoints for applications.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /applications routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/submit", h.submit)
	r.Get("/", h.list)
	r.Get("/stats", h.stats)
	r.Get("/status/{status}", h.listByStatus)
	r.Get("/course/{course}", h.listByCourse)
	r.Get("/{id}", h.get)
	r.Put("/{id}/review", h.review)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	app, err := h.service.Submit(r.Context(), req, key)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Application submitted successfully", app)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := Filter{Course: r.URL.Query().Get("course")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := ParseStatus(raw)
		if !ok {
			httpx.RespondError(w, h.logger, shared.FieldErrors{"status": "must be APPLIED, APPROVED or REJECTED"})
			return
		}
		filter.Status = status
	}
	h.listWith(w, r, filter)
}

func (h *Handler) listByStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := ParseStatus(chi.URLParam(r, "status"))
	if !ok {
		httpx.RespondError(w, h.logger, shared.FieldErrors{"status": "must be APPLIED, APPROVED or REJECTED"})
		return
	}
	h.listWith(w, r, Filter{Status: status})
}

func (h *Handler) listByCourse(w http.ResponseWriter, r *http.Request) {
	h.listWith(w, r, Filter{Course: chi.URLParam(r, "course")})
}

func (h *Handler) listWith(w http.ResponseWriter, r *http.Request, filter Filter) {
	items, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", items)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", stats)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	app, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", app)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthenticated)
		return
	}
	var req ReviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	app, err := h.service.Review(r.Context(), actor, id, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	message := "Application rejected"
	if app.Status == StatusApproved {
		message = "Application approved and student account created"
	}
	httpx.OK(w, http.StatusOK, message, app)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, shared.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}
