package admins

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Service wraps admin account management.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: httpx.NewValidator()}
}

// List returns every admin account.
func (s *Service) List(ctx context.Context) ([]Admin, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("admins: list: %w", err)
	}
	return items, nil
}

// SetStatus enables or disables an admin account. Admins cannot disable themselves.
func (s *Service) SetStatus(ctx context.Context, actor shared.Actor, id uuid.UUID, req StatusRequest) (*Admin, error) {
	if err := httpx.Validate(s.validate, req); err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() {
		return nil, shared.ErrForbidden
	}
	if actor.ID == id.String() && !*req.IsActive {
		return nil, shared.FieldErrors{"isActive": "cannot disable your own account"}
	}
	version, err := s.repo.SetActive(ctx, id, *req.IsActive, req.Version)
	if err != nil {
		return nil, fmt.Errorf("admins: set status: %w", err)
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("admins: reload: %w", err)
	}
	a.Version = version
	return a, nil
}
