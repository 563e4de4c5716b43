package students

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// PasswordHasher hashes plaintext passwords for new accounts.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// EmailChecker reports whether another account kind already holds an email.
type EmailChecker interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// Service wraps student record business rules.
type Service struct {
	repo        Repository
	hasher      PasswordHasher
	adminEmails EmailChecker
	validate    *validator.Validate
}

// Option customises a Service.
type Option func(*Service)

// WithAdminEmails rejects student emails already used by an admin. Logins
// resolve admins first, so such a student could never sign in by email.
func WithAdminEmails(admins EmailChecker) Option {
	return func(s *Service) {
		s.adminEmails = admins
	}
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher PasswordHasher, opts ...Option) *Service {
	s := &Service{repo: repo, hasher: hasher, validate: httpx.NewValidator()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns a page of students matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter, page, perPage int) ([]Student, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	filter.Limit = p.PerPage
	filter.Offset = p.Offset()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("students: list: %w", err)
	}
	return items, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// Get returns the student by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Student, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("students: get: %w", err)
	}
	return st, nil
}

// GetByEmail returns the student by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*Student, error) {
	st, err := s.repo.FindByEmail(ctx, shared.NormalizeIdentifier(email))
	if err != nil {
		return nil, fmt.Errorf("students: get by email: %w", err)
	}
	return st, nil
}

// GetByRollNo returns the student by roll number.
func (s *Service) GetByRollNo(ctx context.Context, rollNo string) (*Student, error) {
	st, err := s.repo.FindByRollNo(ctx, strings.TrimSpace(rollNo))
	if err != nil {
		return nil, fmt.Errorf("students: get by roll number: %w", err)
	}
	return st, nil
}

// Count returns the number of students.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("students: count: %w", err)
	}
	return n, nil
}

// Create registers a student on behalf of an administrator.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Student, error) {
	if err := httpx.Validate(s.validate, req); err != nil {
		return nil, err
	}
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, err
	}
	st := &Student{
		Name:            strings.TrimSpace(req.Name),
		RollNo:          strings.TrimSpace(req.RollNo),
		Email:           shared.NormalizeIdentifier(req.Email),
		Department:      strings.TrimSpace(req.Department),
		Year:            req.Year,
		Semester:        req.Semester,
		Phone:           req.Phone,
		DateOfBirth:     dob,
		BloodGroup:      req.BloodGroup,
		TotalFee:        req.TotalFee,
		PlacementStatus: PlacementNotPlaced,
	}
	if err := s.ensureUnique(ctx, st.Email, st.RollNo); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("students: hash password: %w", err)
	}
	st.PasswordHash = hash
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("students: create: %w", err)
	}
	return st, nil
}

func (s *Service) ensureUnique(ctx context.Context, email, rollNo string) error {
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return err
	}
	exists, err := s.repo.ExistsByRollNo(ctx, rollNo)
	if err != nil {
		return fmt.Errorf("students: check roll number: %w", err)
	}
	if exists {
		return ErrRollNoTaken
	}
	return nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("students: check email: %w", err)
	}
	if exists {
		return ErrEmailTaken
	}
	if s.adminEmails == nil {
		return nil
	}
	exists, err = s.adminEmails.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("students: check admin email: %w", err)
	}
	if exists {
		return ErrEmailTaken
	}
	return nil
}

// Update applies a full administrative update.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Student, error) {
	if err := httpx.Validate(s.validate, req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, req.Version, func(st *Student) error {
		if req.Email != nil {
			email := shared.NormalizeIdentifier(*req.Email)
			if email != st.Email {
				if err := s.ensureEmailFree(ctx, email); err != nil {
					return err
				}
				st.Email = email
			}
		}
		if req.Name != nil {
			st.Name = strings.TrimSpace(*req.Name)
		}
		if req.Department != nil {
			st.Department = strings.TrimSpace(*req.Department)
		}
		if req.Year != nil {
			st.Year = *req.Year
		}
		if req.Semester != nil {
			st.Semester = *req.Semester
		}
		return applyProfile(st, req.Phone, req.DateOfBirth, req.BloodGroup)
	})
}

// UpdateAcademic patches academic fields (CGPA, credits, attendance, year, semester).
func (s *Service) UpdateAcademic(ctx context.Context, id uuid.UUID, req AcademicUpdate) (*Student, error) {
	if err := httpx.Validate(s.validate, req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, req.Version, func(st *Student) error {
		if req.CGPA != nil {
			st.CGPA = *req.CGPA
		}
		if req.TotalCredits != nil {
			st.TotalCredits = *req.TotalCredits
		}
		if req.Attendance != nil {
			st.Attendance = *req.Attendance
		}
		if req.Year != nil {
			st.Year = *req.Year
		}
		if req.Semester != nil {
			st.Semester = *req.Semester
		}
		return nil
	})
}

// UpdateFee patches fee fields.
func (s *Service) UpdateFee(ctx context.Context, id uuid.UUID, req FeeUpdate) (*Student, error) {
	if err := httpx.Validate(s.validate, req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, req.Version, func(st *Student) error {
		if req.TotalFee != nil {
			st.TotalFee = *req.TotalFee
		}
		if req.PaidAmount != nil {
			st.PaidAmount = *req.PaidAmount
		}
		return nil
	})
}

// UpdatePlacement replaces placement details.
func (s *Service) UpdatePlacement(ctx context.Context, id uuid.UUID, req PlacementUpdate) (*Student, error) {
	if err := httpx.Validate(s.validate, req); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, shared.FieldErrors{"placementStatus": "must be one of: Not Placed, Placed, Higher Studies"}
	}
	return s.mutate(ctx, id, req.Version, func(st *Student) error {
		st.PlacementStatus = req.Status
		st.Company = strings.TrimSpace(req.Company)
		st.PackageAmount = req.PackageAmount
		if req.Status != PlacementPlaced {
			st.Company = ""
			st.PackageAmount = 0
		}
		return nil
	})
}

// Delete removes a student record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("students: delete: %w", err)
	}
	return nil
}

// Me returns the record of the authenticated student.
func (s *Service) Me(ctx context.Context, actor shared.Actor) (*Student, error) {
	if actor.Kind != shared.KindStudent {
		return nil, shared.ErrForbidden
	}
	st, err := s.repo.FindByEmail(ctx, actor.Subject)
	if err != nil {
		return nil, fmt.Errorf("students: me: %w", err)
	}
	return st, nil
}

// UpdateMe lets a student change their own contact details.
func (s *Service) UpdateMe(ctx context.Context, actor shared.Actor, req ProfileUpdateRequest) (*Student, error) {
	if err := httpx.Validate(s.validate, req); err != nil {
		return nil, err
	}
	me, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, me.ID, req.Version, func(st *Student) error {
		return applyProfile(st, req.Phone, req.DateOfBirth, req.BloodGroup)
	})
}

// Dashboard returns every self-service slice in one payload.
func (s *Service) Dashboard(ctx context.Context, actor shared.Actor) (*Dashboard, error) {
	st, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Profile:   st.ToView(),
		Academic:  st.Academic(),
		Fees:      st.Fees(),
		Placement: st.Placement(),
	}, nil
}

// mutate loads the student, checks the caller saw the current version,
// applies fn and writes back with a version compare.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, version int64, fn func(*Student) error) (*Student, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("students: load: %w", err)
	}
	if st.Version != version {
		return nil, shared.ErrStaleRecord
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, st); err != nil {
		return nil, fmt.Errorf("students: update: %w", err)
	}
	return st, nil
}

func applyProfile(st *Student, phone, dob, bloodGroup *string) error {
	if phone != nil {
		st.Phone = *phone
	}
	if bloodGroup != nil {
		st.BloodGroup = *bloodGroup
	}
	if dob != nil {
		parsed, err := parseDate(*dob)
		if err != nil {
			return err
		}
		st.DateOfBirth = parsed
	}
	return nil
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, shared.FieldErrors{"dateOfBirth": "must use YYYY-MM-DD"}
	}
	return &t, nil
}
