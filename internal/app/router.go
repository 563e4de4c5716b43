package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-campus/internal/admins"
	"github.com/odyssey-erp/odyssey-campus/internal/admissions"
	"github.com/odyssey-erp/odyssey-campus/internal/auth"
	"github.com/odyssey-erp/odyssey-campus/internal/courses"
	"github.com/odyssey-erp/odyssey-campus/internal/observability"
	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
	"github.com/odyssey-erp/odyssey-campus/internal/students"
	"github.com/odyssey-erp/odyssey-campus/internal/system"
	"github.com/odyssey-erp/odyssey-campus/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Authenticator auth.Authenticator
	Policy        *rbac.Policy
	Metrics       *observability.Metrics

	AuthHandler       *auth.Handler
	StudentsHandler   *students.Handler
	AdminsHandler     *admins.Handler
	CoursesHandler    *courses.Handler
	AdmissionsHandler *admissions.Handler
	SystemHandler     *system.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with campus defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	if params.Logger == nil {
		params.Logger = slog.Default()
	}

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:        params.Logger,
		Config:        params.Config,
		Authenticator: params.Authenticator,
		Policy:        params.Policy,
		Metrics:       params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, params.Logger, shared.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), nil)
	})

	if params.SystemHandler != nil {
		params.SystemHandler.MountRoutes(r)
	}
	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	r.Route("/admin", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountAdminRoutes)
		}
		if params.AdminsHandler != nil {
			r.Route("/admins", params.AdminsHandler.MountRoutes)
		}
		if params.StudentsHandler != nil {
			r.Route("/students", params.StudentsHandler.MountAdminRoutes)
		}
	})
	if params.StudentsHandler != nil {
		r.Route("/students", params.StudentsHandler.MountRoutes)
	}
	if params.CoursesHandler != nil {
		r.Route("/courses", params.CoursesHandler.MountRoutes)
	}
	if params.AdmissionsHandler != nil {
		r.Route("/applications", params.AdmissionsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
