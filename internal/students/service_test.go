package students

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

type mockRepository struct {
	byID map[uuid.UUID]*Student

	updateError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{byID: make(map[uuid.UUID]*Student)}
}

func (m *mockRepository) find(match func(*Student) bool) (*Student, error) {
	for _, s := range m.byID {
		if match(s) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (*Student, error) {
	return m.find(func(s *Student) bool { return s.ID == id })
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (*Student, error) {
	return m.find(func(s *Student) bool { return s.Email == email })
}

func (m *mockRepository) FindByRollNo(ctx context.Context, rollNo string) (*Student, error) {
	return m.find(func(s *Student) bool { return s.RollNo == rollNo })
}

func (m *mockRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *mockRepository) ExistsByRollNo(ctx context.Context, rollNo string) (bool, error) {
	_, err := m.FindByRollNo(ctx, rollNo)
	return err == nil, nil
}

func (m *mockRepository) List(ctx context.Context, filter ListFilter) ([]Student, int, error) {
	var out []Student
	for _, s := range m.byID {
		if filter.Department != "" && s.Department != filter.Department {
			continue
		}
		if filter.Year > 0 && s.Year != filter.Year {
			continue
		}
		if filter.PlacedOnly && s.PlacementStatus != PlacementPlaced {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RollNo < out[j].RollNo })
	total := len(out)
	if filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else {
		out = nil
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *mockRepository) Count(ctx context.Context) (int, error) {
	return len(m.byID), nil
}

func (m *mockRepository) Create(ctx context.Context, s *Student) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Version = 1
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *mockRepository) Update(ctx context.Context, s *Student) error {
	if m.updateError != nil {
		return m.updateError
	}
	stored, ok := m.byID[s.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != s.Version {
		return shared.ErrStaleRecord
	}
	s.Version++
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *mockRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, version int64) error {
	stored, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != version {
		return shared.ErrStaleRecord
	}
	stored.PasswordHash = hash
	stored.Version++
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type prefixHasher struct{}

func (prefixHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }

func validCreate() CreateRequest {
	return CreateRequest{
		Name:       "Asha Rao",
		Email:      "Asha@Campus.edu",
		Password:   "secret123",
		RollNo:     "20250001",
		Department: "Computer Science",
		Year:       1,
		Semester:   1,
		TotalFee:   1000,
	}
}

func TestCreateStudentHashesPasswordAndNormalizesEmail(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, prefixHasher{})

	st, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	assert.Equal(t, "asha@campus.edu", st.Email)
	assert.Equal(t, "hashed:secret123", st.PasswordHash)
	assert.Equal(t, PlacementNotPlaced, st.PlacementStatus)
	assert.Equal(t, int64(1), st.Version)
}

func TestCreateStudentRejectsDuplicates(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, prefixHasher{})
	_, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	dupEmail := validCreate()
	dupEmail.RollNo = "20250002"
	_, err = svc.Create(context.Background(), dupEmail)
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, shared.ErrConflict)

	dupRoll := validCreate()
	dupRoll.Email = "other@campus.edu"
	_, err = svc.Create(context.Background(), dupRoll)
	assert.ErrorIs(t, err, ErrRollNoTaken)
}

type adminEmails map[string]bool

func (a adminEmails) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return a[email], nil
}

func TestStudentEmailMustNotBelongToAdmin(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	svc := NewService(repo, prefixHasher{}, WithAdminEmails(adminEmails{"dean@campus.edu": true}))

	req := validCreate()
	req.Email = "Dean@Campus.edu"
	_, err := svc.Create(ctx, req)
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Empty(t, repo.byID)

	st, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	taken := "dean@campus.edu"
	_, err = svc.Update(ctx, st.ID, UpdateRequest{Version: st.Version, Email: &taken})
	assert.ErrorIs(t, err, shared.ErrConflict)

	stored, err := svc.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha@campus.edu", stored.Email)
}

func TestCreateStudentValidatesRanges(t *testing.T) {
	svc := NewService(newMockRepository(), prefixHasher{})
	req := validCreate()
	req.Year = 5
	req.Semester = 9
	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrValidation)

	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "year")
	assert.Contains(t, fields, "semester")
}

func TestUpdateAcademicRejectsStaleVersion(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, prefixHasher{})
	st, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	cgpa := 8.7
	updated, err := svc.UpdateAcademic(context.Background(), st.ID, AcademicUpdate{Version: st.Version, CGPA: &cgpa})
	require.NoError(t, err)
	assert.Equal(t, 8.7, updated.CGPA)
	assert.Equal(t, st.Version+1, updated.Version)

	other := 9.1
	_, err = svc.UpdateAcademic(context.Background(), st.ID, AcademicUpdate{Version: st.Version, CGPA: &other})
	assert.ErrorIs(t, err, shared.ErrStaleRecord)

	stored, err := repo.Get(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, 8.7, stored.CGPA)
}

func TestUpdateAcademicRejectsOutOfRangeCGPA(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, prefixHasher{})
	st, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	bad := 10.5
	_, err = svc.UpdateAcademic(context.Background(), st.ID, AcademicUpdate{Version: st.Version, CGPA: &bad})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestFeeStatusDerivedFromPendingAmount(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, prefixHasher{})
	st, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)
	assert.Equal(t, FeeStatusPending, st.FeeStatus())

	paid := 1200.0
	updated, err := svc.UpdateFee(context.Background(), st.ID, FeeUpdate{Version: st.Version, PaidAmount: &paid})
	require.NoError(t, err)
	assert.Equal(t, 0.0, updated.PendingAmount())
	assert.Equal(t, FeeStatusPaid, updated.FeeStatus())
}

func TestUpdatePlacementClearsCompanyUnlessPlaced(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, prefixHasher{})
	st, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	_, err = svc.UpdatePlacement(context.Background(), st.ID, PlacementUpdate{Version: st.Version, Status: "Hired"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	updated, err := svc.UpdatePlacement(context.Background(), st.ID, PlacementUpdate{
		Version: st.Version, Status: PlacementHigherStudies, Company: "Acme", PackageAmount: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, updated.Company)
	assert.Zero(t, updated.PackageAmount)
}

func TestSelfServiceRequiresStudentActor(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, prefixHasher{})
	st, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	_, err = svc.Me(context.Background(), shared.Actor{Subject: st.Email, Kind: shared.KindAdmin, Role: shared.RoleSuperAdmin})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	actor := shared.Actor{Subject: st.Email, Kind: shared.KindStudent, Role: shared.RoleStudent}
	dash, err := svc.Dashboard(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, st.RollNo, dash.Profile.RollNo)
	assert.Equal(t, FeeStatusPending, dash.Fees.Status)

	phone := "+919876543210"
	updated, err := svc.UpdateMe(context.Background(), actor, ProfileUpdateRequest{Version: st.Version, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
}

func TestListPaginates(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, prefixHasher{})
	for i := 0; i < 5; i++ {
		req := validCreate()
		req.Email = strings.Replace(req.Email, "Asha", "asha"+string(rune('a'+i)), 1)
		req.RollNo = "2025000" + string(rune('1'+i))
		_, err := svc.Create(context.Background(), req)
		require.NoError(t, err)
	}

	items, page, err := svc.List(context.Background(), ListFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, "20250003", items[0].RollNo)
}
