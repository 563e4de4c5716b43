package admins

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

type stubRepo struct {
	admins map[uuid.UUID]*Admin
}

func newStubRepo(list ...*Admin) *stubRepo {
	repo := &stubRepo{admins: make(map[uuid.UUID]*Admin)}
	for _, a := range list {
		repo.admins[a.ID] = a
	}
	return repo
}

func (s *stubRepo) Get(ctx context.Context, id uuid.UUID) (*Admin, error) {
	a, ok := s.admins[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *stubRepo) FindByUsernameOrEmail(ctx context.Context, identifier string) (*Admin, error) {
	for _, a := range s.admins {
		if a.Username == identifier || a.Email == identifier {
			cp := *a
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	for _, a := range s.admins {
		if a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, a := range s.admins {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) List(ctx context.Context) ([]Admin, error) {
	out := make([]Admin, 0, len(s.admins))
	for _, a := range s.admins {
		out = append(out, *a)
	}
	return out, nil
}

func (s *stubRepo) Count(ctx context.Context) (int, error) { return len(s.admins), nil }

func (s *stubRepo) Create(ctx context.Context, a *Admin) error {
	a.Version = 1
	s.admins[a.ID] = a
	return nil
}

func (s *stubRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, version int64) (int64, error) {
	a, ok := s.admins[id]
	if !ok {
		return 0, shared.ErrNotFound
	}
	if a.Version != version {
		return 0, shared.ErrStaleRecord
	}
	a.IsActive = active
	a.Version++
	return a.Version, nil
}

func (s *stubRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, version int64) error {
	return nil
}

func (s *stubRepo) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error { return nil }

func boolPtr(b bool) *bool { return &b }

func TestSetStatusDisablesOtherAdmin(t *testing.T) {
	root := &Admin{ID: uuid.New(), Username: "root", Role: shared.RoleSuperAdmin, IsActive: true, Version: 1}
	staff := &Admin{ID: uuid.New(), Username: "staff", Role: shared.RoleStaffAdmin, IsActive: true, Version: 3}
	svc := NewService(newStubRepo(root, staff))
	actor := shared.Actor{Subject: "root", Kind: shared.KindAdmin, Role: shared.RoleSuperAdmin, ID: root.ID.String()}

	updated, err := svc.SetStatus(context.Background(), actor, staff.ID, StatusRequest{Version: 3, IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.Enabled())
	assert.Equal(t, int64(4), updated.Version)

	_, err = svc.SetStatus(context.Background(), actor, staff.ID, StatusRequest{Version: 3, IsActive: boolPtr(true)})
	assert.ErrorIs(t, err, shared.ErrStaleRecord)
}

func TestSetStatusRefusesSelfDisable(t *testing.T) {
	root := &Admin{ID: uuid.New(), Username: "root", Role: shared.RoleSuperAdmin, IsActive: true, Version: 1}
	svc := NewService(newStubRepo(root))
	actor := shared.Actor{Subject: "root", Kind: shared.KindAdmin, Role: shared.RoleSuperAdmin, ID: root.ID.String()}

	_, err := svc.SetStatus(context.Background(), actor, root.ID, StatusRequest{Version: 1, IsActive: boolPtr(false)})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSetStatusRequiresSuperAdmin(t *testing.T) {
	staff := &Admin{ID: uuid.New(), Username: "staff", Role: shared.RoleStaffAdmin, IsActive: true, Version: 1}
	svc := NewService(newStubRepo(staff))
	actor := shared.Actor{Subject: "other", Kind: shared.KindAdmin, Role: shared.RoleStaffAdmin}

	_, err := svc.SetStatus(context.Background(), actor, staff.ID, StatusRequest{Version: 1, IsActive: boolPtr(false)})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestListHandlerOmitsPasswordHash(t *testing.T) {
	staff := &Admin{ID: uuid.New(), Username: "staff", PasswordHash: "$2a$10$secret", Role: shared.RoleStaffAdmin, IsActive: true}
	h := NewHandler(nil, NewService(newStubRepo(staff)))
	r := chi.NewRouter()
	r.Route("/admin/admins", h.MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/admins", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, strings.Contains(rr.Body.String(), "$2a$"))
	var body struct {
		Success bool   `json:"success"`
		Data    []View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "staff", body.Data[0].Username)
	assert.Equal(t, []string{}, body.Data[0].Permissions)
}

func TestAuthoritiesIncludeRoleAndPermissions(t *testing.T) {
	a := &Admin{Role: shared.RoleStaffAdmin, Permissions: []string{"students.read"}}
	assert.Equal(t, []string{"ROLE_STAFF_ADMIN", "students.read"}, a.Authorities())
}
