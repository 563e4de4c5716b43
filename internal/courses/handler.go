package courses

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Handler wires HTTP endpoints for the course catalog.
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

// MountRoutes registers /courses routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list(func(*http.Request) Filter { return Filter{} }))
	r.Get("/active", h.list(func(*http.Request) Filter { return Filter{ActiveOnly: true} }))
	r.Get("/available", h.list(func(*http.Request) Filter { return Filter{ActiveOnly: true, AvailableOnly: true} }))
	r.Get("/department/{department}", h.list(func(r *http.Request) Filter {
		return Filter{ActiveOnly: true, Department: chi.URLParam(r, "department")}
	}))
	r.Get("/program/{programType}", h.list(func(r *http.Request) Filter {
		return Filter{ActiveOnly: true, ProgramType: chi.URLParam(r, "programType")}
	}))
	r.Get("/stats", h.stats)
	r.Get("/{id}", h.get)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Put("/{id}/toggle-status", h.toggle)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(filterFor func(*http.Request) Filter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.service.List(r.Context(), filterFor(r))
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		if items == nil {
			items = []Course{}
		}
		httpx.OK(w, http.StatusOK, "", items)
	}
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Stats(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", st)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), id)
	h.respond(w, err, c, http.StatusOK, "")
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	c, err := h.service.Create(r.Context(), req)
	h.respond(w, err, c, http.StatusCreated, "Course created")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	c, err := h.service.Update(r.Context(), id, req)
	h.respond(w, err, c, http.StatusOK, "Course updated")
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	c, err := h.service.ToggleStatus(r.Context(), id)
	h.respond(w, err, c, http.StatusOK, "Course status updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Course deleted", nil)
}

func (h *Handler) respond(w http.ResponseWriter, err error, c *Course, status int, message string) {
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, status, message, c)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, shared.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}
