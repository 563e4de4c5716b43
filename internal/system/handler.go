package system

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-campus/internal/admins"
	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// ServiceName identifies the API in health and index responses.
const ServiceName = "University Management System API"

// Counter reports how many rows a table holds.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Table pairs a table label with its counter.
type Table struct {
	Name    string
	Counter Counter
}

// Check is a named dependency probe such as a database ping.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// AdminLister lists admin accounts.
type AdminLister interface {
	List(ctx context.Context) ([]admins.Admin, error)
}

// HandlerParams groups Handler dependencies.
type HandlerParams struct {
	Logger       *slog.Logger
	Version      string
	DatabaseName string
	Tables       []Table
	Checks       []Check
	Admins       AdminLister
	Now          func() time.Time
}

// Handler serves liveness, the API index and database diagnostics.
type Handler struct {
	p HandlerParams
}

// NewHandler constructs a Handler.
func NewHandler(p HandlerParams) *Handler {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Version == "" {
		p.Version = "dev"
	}
	return &Handler{p: p}
}

// MountRoutes registers the root level routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/healthz", h.liveness)
	r.Get("/api", h.index)
	r.Route("/system", func(r chi.Router) {
		r.Get("/database-status", h.databaseStatus)
		r.Get("/admin-list", h.adminList)
	})
}

func (h *Handler) liveness(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type healthReport struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	report := healthReport{
		Status:    "UP",
		Timestamp: h.p.Now().UTC(),
		Service:   ServiceName,
		Version:   h.p.Version,
	}
	if len(h.p.Checks) > 0 {
		report.Checks = make(map[string]string, len(h.p.Checks))
	}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, check := range h.p.Checks {
		g.Go(func() error {
			state := "UP"
			if err := check.Probe(ctx); err != nil {
				h.p.Logger.Warn("health check failed", slog.String("check", check.Name), slog.Any("error", err))
				state = "DOWN"
			}
			mu.Lock()
			report.Checks[check.Name] = state
			if state == "DOWN" {
				report.Status = "DOWN"
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if report.Status != "UP" {
		httpx.OK(w, http.StatusServiceUnavailable, "Service is degraded", report)
		return
	}
	httpx.OK(w, http.StatusOK, "Service is healthy", report)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, http.StatusOK, "API is running", map[string]any{
		"message": ServiceName,
		"version": h.p.Version,
		"status":  "active",
		"endpoints": []string{
			"/health - Health check",
			"/auth/login - Student or admin login",
			"/admin/auth/login - Admin login",
			"/students - Student operations (requires auth)",
			"/courses - Course catalog",
			"/applications - Admission operations",
		},
	})
}

// DBStatus summarises table counts.
type DBStatus struct {
	Collections      map[string]int  `json:"collections"`
	TotalCollections int             `json:"totalCollections"`
	DatabaseName     string          `json:"databaseName"`
	Status           string          `json:"status"`
	Initialization   map[string]bool `json:"initialization"`
}

// DatabaseStatus counts every registered table concurrently.
func (h *Handler) DatabaseStatus(ctx context.Context) (DBStatus, error) {
	counts := make([]int, len(h.p.Tables))
	g, gctx := errgroup.WithContext(ctx)
	for i, table := range h.p.Tables {
		g.Go(func() error {
			n, err := table.Counter.Count(gctx)
			if err != nil {
				return fmt.Errorf("system: count %s: %w", table.Name, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DBStatus{}, err
	}

	status := DBStatus{
		Collections:      make(map[string]int, len(h.p.Tables)),
		TotalCollections: len(h.p.Tables),
		DatabaseName:     h.p.DatabaseName,
		Status:           "Connected",
	}
	for i, table := range h.p.Tables {
		status.Collections[table.Name] = counts[i]
	}
	status.Initialization = map[string]bool{
		"adminsInitialized":    status.Collections["admins"] > 0,
		"coursesInitialized":   status.Collections["courses"] > 0,
		"readyForApplications": true,
		"readyForStudents":     true,
	}
	return status, nil
}

func (h *Handler) databaseStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.DatabaseStatus(r.Context())
	if err != nil {
		httpx.RespondError(w, h.p.Logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Database status retrieved successfully", status)
}

type adminSummary struct {
	admins.View
	IsSuperAdmin bool `json:"isSuperAdmin"`
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	if h.p.Admins == nil {
		httpx.OK(w, http.StatusOK, "", []adminSummary{})
		return
	}
	items, err := h.p.Admins.List(r.Context())
	if err != nil {
		httpx.RespondError(w, h.p.Logger, err)
		return
	}
	out := make([]adminSummary, 0, len(items))
	for i := range items {
		out = append(out, adminSummary{View: items[i].ToView(), IsSuperAdmin: items[i].Role == shared.RoleSuperAdmin})
	}
	httpx.OK(w, http.StatusOK, "Admin list retrieved successfully", out)
}
