package students

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Handler wires HTTP endpoints for student records.
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

// MountRoutes registers /students routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/me", func(r chi.Router) {
		r.Get("/", h.me)
		r.Put("/", h.updateMe)
		r.Get("/academic", h.meSlice(func(s *Student) any { return s.Academic() }))
		r.Get("/fees", h.meSlice(func(s *Student) any { return s.Fees() }))
		r.Get("/placement", h.meSlice(func(s *Student) any { return s.Placement() }))
		r.Get("/dashboard", h.dashboard)
	})

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/count", h.count)
	r.Get("/placed", h.listPlaced)
	r.Get("/department/{department}", h.listByDepartment)
	r.Get("/year/{year}", h.listByYear)
	r.Get("/email/{email}", h.getByEmail)
	r.Get("/rollno/{rollNo}", h.getByRollNo)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Put("/{id}/academic", h.updateAcademic)
	r.Put("/{id}/cgpa", h.updateAcademic)
	r.Put("/{id}/attendance", h.updateAcademic)
	r.Put("/{id}/fee", h.updateFee)
	r.Put("/{id}/placement", h.updatePlacement)
	r.Delete("/{id}", h.delete)
}

// MountAdminRoutes registers the /admin/students subset.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Put("/{id}/academic", h.updateAcademic)
}

type listResponse struct {
	Items      []View            `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func toViews(items []Student) []View {
	views := make([]View, 0, len(items))
	for i := range items {
		views = append(views, items[i].ToView())
	}
	return views
}

func (h *Handler) listWith(w http.ResponseWriter, r *http.Request, filter ListFilter) {
	page, perPage := shared.PageRequest(r)
	items, pagination, err := h.service.List(r.Context(), filter, page, perPage)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", listResponse{Items: toViews(items), Pagination: pagination})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Department: r.URL.Query().Get("department")}
	if year, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil {
		filter.Year = year
	}
	h.listWith(w, r, filter)
}

func (h *Handler) listPlaced(w http.ResponseWriter, r *http.Request) {
	h.listWith(w, r, ListFilter{PlacedOnly: true})
}

func (h *Handler) listByDepartment(w http.ResponseWriter, r *http.Request) {
	h.listWith(w, r, ListFilter{Department: chi.URLParam(r, "department")})
}

func (h *Handler) listByYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 || year > 4 {
		httpx.RespondError(w, h.logger, shared.FieldErrors{"year": "must be between 1 and 4"})
		return
	}
	h.listWith(w, r, ListFilter{Year: year})
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Count(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]int{"count": n})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	st, err := h.service.Get(r.Context(), id)
	h.respondStudent(w, err, st, http.StatusOK, "")
}

func (h *Handler) getByEmail(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.GetByEmail(r.Context(), chi.URLParam(r, "email"))
	h.respondStudent(w, err, st, http.StatusOK, "")
}

func (h *Handler) getByRollNo(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.GetByRollNo(r.Context(), chi.URLParam(r, "rollNo"))
	h.respondStudent(w, err, st, http.StatusOK, "")
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	st, err := h.service.Create(r.Context(), req)
	h.respondStudent(w, err, st, http.StatusCreated, "Student created")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	st, err := h.service.Update(r.Context(), id, req)
	h.respondStudent(w, err, st, http.StatusOK, "Student updated")
}

func (h *Handler) updateAcademic(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req AcademicUpdate
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	st, err := h.service.UpdateAcademic(r.Context(), id, req)
	h.respondStudent(w, err, st, http.StatusOK, "Academic record updated")
}

func (h *Handler) updateFee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req FeeUpdate
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	st, err := h.service.UpdateFee(r.Context(), id, req)
	h.respondStudent(w, err, st, http.StatusOK, "Fee details updated")
}

func (h *Handler) updatePlacement(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req PlacementUpdate
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	st, err := h.service.UpdatePlacement(r.Context(), id, req)
	h.respondStudent(w, err, st, http.StatusOK, "Placement details updated")
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
	httpx.OK(w, http.StatusOK, "Student deleted", nil)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthenticated)
		return
	}
	st, err := h.service.Me(r.Context(), actor)
	h.respondStudent(w, err, st, http.StatusOK, "")
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthenticated)
		return
	}
	var req ProfileUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	st, err := h.service.UpdateMe(r.Context(), actor, req)
	h.respondStudent(w, err, st, http.StatusOK, "Profile updated")
}

func (h *Handler) meSlice(project func(*Student) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := shared.ActorFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, h.logger, shared.ErrUnauthenticated)
			return
		}
		st, err := h.service.Me(r.Context(), actor)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.OK(w, http.StatusOK, "", project(st))
	}
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrUnauthenticated)
		return
	}
	dash, err := h.service.Dashboard(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", dash)
}

func (h *Handler) respondStudent(w http.ResponseWriter, err error, st *Student, status int, message string) {
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, status, message, st.ToView())
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, shared.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}
