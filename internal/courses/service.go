package courses

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Service wraps course catalog rules.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: httpx.NewValidator()}
}

// List returns courses matching filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Course, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("courses: list: %w", err)
	}
	return items, nil
}

// Get returns a course by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Course, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("courses: get: %w", err)
	}
	return c, nil
}

// FindByName returns the catalog entry with the given name.
func (s *Service) FindByName(ctx context.Context, name string) (*Course, error) {
	c, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("courses: find by name: %w", err)
	}
	return c, nil
}

// Create adds a course. Available seats default to total seats and new
// courses are active unless stated otherwise.
func (s *Service) Create(ctx context.Context, req Request) (*Course, error) {
	c := &Course{IsActive: true}
	if err := s.apply(c, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("courses: create: %w", err)
	}
	return c, nil
}

// Update replaces a course definition.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req Request) (*Course, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("courses: load: %w", err)
	}
	if err := s.apply(c, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("courses: update: %w", err)
	}
	return c, nil
}

// ToggleStatus flips the active flag.
func (s *Service) ToggleStatus(ctx context.Context, id uuid.UUID) (*Course, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("courses: load: %w", err)
	}
	c.IsActive = !c.IsActive
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("courses: toggle: %w", err)
	}
	return c, nil
}

// Delete removes a course.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("courses: delete: %w", err)
	}
	return nil
}

// Stats summarises the catalog.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("courses: stats: %w", err)
	}
	return st, nil
}

func (s *Service) apply(c *Course, req Request) error {
	if err := httpx.Validate(s.validate, req); err != nil {
		return err
	}
	available := req.TotalSeats
	if req.AvailableSeats != nil {
		available = *req.AvailableSeats
	}
	if available > req.TotalSeats {
		return shared.FieldErrors{"availableSeats": "must not exceed totalSeats"}
	}
	c.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	c.Name = strings.TrimSpace(req.Name)
	c.Department = strings.TrimSpace(req.Department)
	c.ProgramType = strings.TrimSpace(req.ProgramType)
	c.DurationYears = req.DurationYears
	c.TotalSeats = req.TotalSeats
	c.AvailableSeats = available
	c.Description = req.Description
	c.EligibilityCriteria = req.EligibilityCriteria
	c.FeeAmount = req.FeeAmount
	c.FeeType = req.FeeType
	c.Subjects = req.Subjects
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	return nil
}
