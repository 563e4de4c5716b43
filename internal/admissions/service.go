package admissions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-campus/internal/courses"
	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
	"github.com/odyssey-erp/odyssey-campus/internal/students"
)

// Module names admissions rows in approvals and idempotency_keys.
const Module = "admissions"

const reviewAttempts = 3

// CourseCatalog looks desired courses up in the catalog.
type CourseCatalog interface {
	FindByName(ctx context.Context, name string) (*courses.Course, error)
}

// StudentChecker reports whether an email already belongs to a student.
type StudentChecker interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// IdempotencyGuard records client supplied idempotency keys.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// ApprovalRecorder keeps the review history.
type ApprovalRecorder interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// AuditRecorder writes audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CredentialNotifier delivers the temporary credentials of a new student.
type CredentialNotifier interface {
	NotifyCredentials(ctx context.Context, creds Credentials) error
}

// ServiceParams groups Service dependencies.
type ServiceParams struct {
	Repo        Repository
	Students    StudentChecker
	Courses     CourseCatalog
	Hasher      PasswordHasher
	Idempotency IdempotencyGuard
	Approvals   ApprovalRecorder
	Audit       AuditRecorder
	Notifier    CredentialNotifier
	Logger      *slog.Logger
	Now         func() time.Time
	Random      io.Reader
}

// Service implements the admissions workflow.
type Service struct {
	repo        Repository
	students    StudentChecker
	courses     CourseCatalog
	idempotency IdempotencyGuard
	approvals   ApprovalRecorder
	audit       AuditRecorder
	notifier    CredentialNotifier
	provisioner *Provisioner
	logger      *slog.Logger
	now         func() time.Time
	validate    *validator.Validate
}

// NewService constructs the admissions service.
func NewService(p ServiceParams) *Service {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Service{
		repo:        p.Repo,
		students:    p.Students,
		courses:     p.Courses,
		idempotency: p.Idempotency,
		approvals:   p.Approvals,
		audit:       p.Audit,
		notifier:    p.Notifier,
		provisioner: NewProvisioner(p.Hasher, p.Random, p.Now),
		logger:      p.Logger,
		now:         p.Now,
		validate:    httpx.NewValidator(),
	}
}

// Submit files a new application. idempotencyKey may be empty.
func (s *Service) Submit(ctx context.Context, req SubmitRequest, idempotencyKey string) (app *Application, err error) {
	if err := httpx.Validate(s.validate, req); err != nil {
		return nil, err
	}
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, Module); err != nil {
			return nil, fmt.Errorf("admissions: idempotency: %w", err)
		}
		defer func() {
			if err == nil {
				return
			}
			if delErr := s.idempotency.Delete(ctx, idempotencyKey); delErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}()
	}

	email := shared.NormalizeIdentifier(req.Email)
	applied, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("admissions: check application email: %w", err)
	}
	if applied {
		return nil, ErrAlreadyApplied
	}
	enrolled, err := s.students.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("admissions: check student email: %w", err)
	}
	if enrolled {
		return nil, ErrAlreadyStudent
	}
	course, err := s.lookupCourse(ctx, req.DesiredCourse)
	if err != nil {
		return nil, err
	}
	if course != nil && (!course.IsActive || !course.HasAvailableSeats()) {
		return nil, shared.FieldErrors{"desiredCourse": "course is not accepting applications"}
	}

	now := s.now().UTC()
	app = &Application{
		ID:                    uuid.New(),
		FullName:              strings.TrimSpace(req.FullName),
		Email:                 email,
		PhoneNumber:           req.PhoneNumber,
		DesiredCourse:         strings.TrimSpace(req.DesiredCourse),
		PreviousQualification: strings.TrimSpace(req.PreviousQualification),
		PreviousGrade:         strings.TrimSpace(req.PreviousGrade),
		Status:                StatusApplied,
		ApplicationDate:       now,
		UpdatedAt:             now,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("admissions: submit: %w", err)
	}
	s.recordApproval(ctx, app.ID, app.Email, shared.ApprovalSubmit, app.DesiredCourse)
	s.logger.Info("application received",
		slog.String("application", app.ID.String()),
		slog.String("course", app.DesiredCourse),
	)
	return app, nil
}

func (s *Service) lookupCourse(ctx context.Context, name string) (*courses.Course, error) {
	if s.courses == nil {
		return nil, nil
	}
	course, err := s.courses.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("admissions: lookup course: %w", err)
	}
	return course, nil
}

// Review approves or rejects an application on behalf of a super admin.
// Approval provisions the student in the same transaction.
func (s *Service) Review(ctx context.Context, actor shared.Actor, id uuid.UUID, req ReviewRequest) (*Application, error) {
	if !actor.IsSuperAdmin() {
		return nil, shared.ErrForbidden
	}
	if err := httpx.Validate(s.validate, req); err != nil {
		return nil, err
	}
	target, ok := ParseStatus(req.Status)
	if !ok || target == StatusApplied {
		return nil, shared.FieldErrors{"applicationStatus": "must be APPROVED or REJECTED"}
	}
	if target == StatusRejected && strings.TrimSpace(req.RejectionReason) == "" {
		return nil, shared.FieldErrors{"rejectionReason": "is required when rejecting"}
	}

	var (
		app   *Application
		creds *Credentials
		err   error
	)
	for attempt := 0; attempt < reviewAttempts; attempt++ {
		app, creds, err = s.reviewOnce(ctx, actor, id, target, req)
		if !errors.Is(err, students.ErrRollNoTaken) {
			break
		}
		s.logger.Warn("roll number collision, retrying review", slog.String("application", id.String()), slog.Int("attempt", attempt+1))
	}
	if err != nil {
		return nil, err
	}

	action, note := shared.ApprovalApprove, req.ReviewComments
	if target == StatusRejected {
		action, note = shared.ApprovalReject, req.RejectionReason
	}
	s.recordApproval(ctx, app.ID, actor.Subject, action, note)
	s.recordAudit(ctx, actor, app, creds != nil)
	if creds != nil && s.notifier != nil {
		if err := s.notifier.NotifyCredentials(ctx, *creds); err != nil {
			s.logger.Error("deliver student credentials",
				slog.String("application", app.ID.String()),
				slog.String("roll_no", creds.RollNo),
				slog.Any("error", err),
			)
		}
	}
	return app, nil
}

func (s *Service) reviewOnce(ctx context.Context, actor shared.Actor, id uuid.UUID, target Status, req ReviewRequest) (*Application, *Credentials, error) {
	var (
		app   *Application
		creds *Credentials
	)
	err := s.repo.WithTx(ctx, func(tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("admissions: load application: %w", err)
		}
		if err := validateReview(current.Status, target); err != nil {
			return err
		}
		previous := current.Status
		if target == StatusApproved {
			course, err := s.lookupCourse(ctx, current.DesiredCourse)
			if err != nil {
				return err
			}
			creds, err = s.provisioner.Provision(ctx, tx.Students(), current, course)
			if err != nil {
				return err
			}
		}
		if previous == StatusApplied {
			at := s.now().UTC()
			current.Status = target
			current.ReviewedBy = actor.Subject
			current.ReviewedAt = &at
			current.ReviewComments = strings.TrimSpace(req.ReviewComments)
			if target == StatusRejected {
				current.RejectionReason = strings.TrimSpace(req.RejectionReason)
			}
		}
		if err := tx.SaveReview(ctx, current); err != nil {
			return fmt.Errorf("admissions: save review: %w", err)
		}
		app = current
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return app, creds, nil
}

func (s *Service) recordApproval(ctx context.Context, ref uuid.UUID, actor string, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	if err := s.approvals.Record(ctx, shared.ApprovalLog{
		Module: Module,
		RefID:  ref,
		Actor:  actor,
		Action: action,
		Note:   note,
		At:     s.now().UTC(),
	}); err != nil {
		s.logger.Warn("record approval", slog.String("application", ref.String()), slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, app *Application, provisioned bool) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{"status": string(app.Status), "provisioned": provisioned}
	if app.GeneratedRollNumber != "" {
		meta["roll_no"] = app.GeneratedRollNumber
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor.Subject,
		Action:   "application.review",
		Entity:   "application",
		EntityID: app.ID.String(),
		Meta:     meta,
		At:       s.now().UTC(),
	}); err != nil {
		s.logger.Warn("record audit", slog.String("application", app.ID.String()), slog.Any("error", err))
	}
}

// Get returns an application by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Application, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("admissions: get: %w", err)
	}
	return app, nil
}

// List returns applications newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Application, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("admissions: list: %w", err)
	}
	if items == nil {
		items = []Application{}
	}
	return items, nil
}

// Stats counts applications per status. The counts run concurrently.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.Count(gctx)
		stats.Total = n
		return err
	})
	for status, dst := range map[Status]*int{
		StatusApplied:  &stats.Applied,
		StatusApproved: &stats.Approved,
		StatusRejected: &stats.Rejected,
	} {
		g.Go(func() error {
			n, err := s.repo.CountByStatus(gctx, status)
			*dst = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("admissions: stats: %w", err)
	}
	return stats, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
