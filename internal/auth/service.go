package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/admins"
	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
	"github.com/odyssey-erp/odyssey-campus/internal/students"
)

// ErrWrongPrincipal is returned when a token of one kind is presented to the
// other kind's endpoint.
var ErrWrongPrincipal = fmt.Errorf("auth: token issued to another principal kind: %w", shared.ErrTokenInvalid)

// StudentStore is the student persistence the façade needs.
type StudentStore interface {
	StudentLookup
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, version int64) error
}

// StudentRegistrar creates student records. students.Service satisfies it.
type StudentRegistrar interface {
	Create(ctx context.Context, req students.CreateRequest) (*students.Student, error)
}

// AdminStore is the admin persistence the façade needs.
type AdminStore interface {
	AdminLookup
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, a *admins.Admin) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, version int64) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ResetNotifier delivers password reset notices.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email, name string) error
}

// LoginObserver records login outcomes, typically as metrics.
type LoginObserver interface {
	ObserveLogin(kind, outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveLogin(string, string) {}

// ServiceConfig holds token lifetimes and registration policy.
type ServiceConfig struct {
	TokenTTL               time.Duration
	RefreshGrace           time.Duration
	AllowAdminRegistration bool
}

// ServiceParams groups Service dependencies.
type ServiceParams struct {
	Students  StudentStore
	Registrar StudentRegistrar
	Admins    AdminStore
	Hasher    Hasher
	Codec     *TokenCodec
	Denylist  Denylist
	Notifier  ResetNotifier
	Observer  LoginObserver
	Logger    *slog.Logger
	Config    ServiceConfig
	Now       func() time.Time
}

// Service orchestrates login, registration, refresh and password changes for
// both principal kinds.
type Service struct {
	students  StudentStore
	registrar StudentRegistrar
	admins    AdminStore
	resolver  *Resolver
	hasher    Hasher
	codec     *TokenCodec
	denylist  Denylist
	notifier  ResetNotifier
	observer  LoginObserver
	logger    *slog.Logger
	cfg       ServiceConfig
	now       func() time.Time
	validate  *validator.Validate
	dummyHash string
}

// NewService constructs the façade.
func NewService(p ServiceParams) *Service {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Denylist == nil {
		p.Denylist = NoopDenylist{}
	}
	if p.Observer == nil {
		p.Observer = nopObserver{}
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Config.TokenTTL <= 0 {
		p.Config.TokenTTL = 24 * time.Hour
	}
	s := &Service{
		students:  p.Students,
		registrar: p.Registrar,
		admins:    p.Admins,
		resolver:  NewResolver(p.Students, p.Admins),
		hasher:    p.Hasher,
		codec:     p.Codec,
		denylist:  p.Denylist,
		notifier:  p.Notifier,
		observer:  p.Observer,
		logger:    p.Logger,
		cfg:       p.Config,
		now:       p.Now,
		validate:  httpx.NewValidator(),
	}
	// Unknown identifiers still pay for one hash comparison.
	if digest, err := s.hasher.Hash(uuid.NewString()); err == nil {
		s.dummyHash = digest
	}
	return s
}

// Resolver exposes the principal resolver used by the service.
func (s *Service) Resolver() *Resolver { return s.resolver }

// Login authenticates any principal, trying admins before students.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	p, err := s.authenticate(ctx, "any", s.resolver.Resolve, req)
	if err != nil {
		return nil, err
	}
	if p.Kind == shared.KindAdmin {
		s.touchLastLogin(ctx, p)
	}
	return s.issue(p)
}

// StudentLogin authenticates a student by email or roll number.
func (s *Service) StudentLogin(ctx context.Context, req LoginRequest) (*Session, error) {
	p, err := s.authenticate(ctx, string(shared.KindStudent), s.resolver.ResolveStudent, req)
	if err != nil {
		return nil, err
	}
	return s.issue(p)
}

// AdminLogin authenticates an admin by username or email and stamps last_login.
func (s *Service) AdminLogin(ctx context.Context, req LoginRequest) (*Session, error) {
	p, err := s.authenticate(ctx, string(shared.KindAdmin), s.resolver.ResolveAdmin, req)
	if err != nil {
		return nil, err
	}
	s.touchLastLogin(ctx, p)
	return s.issue(p)
}

type resolveFunc func(ctx context.Context, identifier string) (*Principal, error)

func (s *Service) authenticate(ctx context.Context, kind string, resolve resolveFunc, req LoginRequest) (*Principal, error) {
	identifier := req.Subject()
	if identifier == "" || req.Password == "" {
		return nil, shared.FieldErrors{"identifier": "identifier and password are required"}
	}
	p, err := resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.hasher.Verify(req.Password, s.dummyHash)
			s.observer.ObserveLogin(kind, OutcomeFailure)
			return nil, shared.ErrInvalidCredentials
		}
		s.observer.ObserveLogin(kind, OutcomeError)
		return nil, err
	}
	// Disabled accounts get the same answer as a wrong password.
	if !s.hasher.Verify(req.Password, p.HashedSecret()) || !p.Enabled() {
		s.observer.ObserveLogin(kind, OutcomeFailure)
		return nil, shared.ErrInvalidCredentials
	}
	s.observer.ObserveLogin(kind, OutcomeSuccess)
	return p, nil
}

func (s *Service) touchLastLogin(ctx context.Context, p *Principal) {
	at := s.now().UTC()
	if err := s.admins.TouchLastLogin(ctx, p.Admin.ID, at); err != nil {
		s.logger.Warn("touch last login", slog.String("admin", p.Admin.Username), slog.Any("error", err))
		return
	}
	p.Admin.LastLogin = &at
}

func (s *Service) issue(p *Principal) (*Session, error) {
	tok, err := s.codec.Issue(p.Subject(), p.Kind, p.Attributes(), s.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok.Value, Type: "Bearer", ExpiresAt: tok.ExpiresAt, Profile: p.Profile()}, nil
}

// RegisterStudent creates a student and logs them in. An email already held
// by an admin is a conflict as well.
func (s *Service) RegisterStudent(ctx context.Context, req students.CreateRequest) (*Session, error) {
	if email := shared.NormalizeIdentifier(req.Email); email != "" {
		taken, err := s.admins.ExistsByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("auth: check admin email: %w", err)
		}
		if taken {
			return nil, students.ErrEmailTaken
		}
	}
	st, err := s.registrar.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(&Principal{Kind: shared.KindStudent, Student: st})
}

// RegisterAdmin creates an admin account. Only a super admin may do so unless
// open admin registration is configured.
func (s *Service) RegisterAdmin(ctx context.Context, actor shared.Actor, req AdminRegisterRequest) (*Session, error) {
	if !s.cfg.AllowAdminRegistration && !actor.IsSuperAdmin() {
		return nil, shared.ErrForbidden
	}
	if err := httpx.Validate(s.validate, req); err != nil {
		return nil, err
	}
	a := &admins.Admin{
		Name:        strings.TrimSpace(req.Name),
		Username:    shared.NormalizeIdentifier(req.Username),
		Email:       shared.NormalizeIdentifier(req.Email),
		Role:        req.Role,
		Department:  strings.TrimSpace(req.Department),
		PhoneNumber: req.PhoneNumber,
		IsActive:    true,
	}
	if a.Role == "" {
		a.Role = shared.RoleStaffAdmin
	}
	if err := s.ensureAdminUnique(ctx, a.Username, a.Email); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	a.PasswordHash = hash
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("auth: create admin: %w", err)
	}
	return s.issue(&Principal{Kind: shared.KindAdmin, Admin: a})
}

func (s *Service) ensureAdminUnique(ctx context.Context, username, email string) error {
	taken, err := s.admins.ExistsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("auth: check username: %w", err)
	}
	if taken {
		return admins.ErrUsernameTaken
	}
	taken, err = s.admins.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("auth: check admin email: %w", err)
	}
	if taken {
		return admins.ErrEmailTaken
	}
	taken, err = s.students.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("auth: check student email: %w", err)
	}
	if taken {
		return admins.ErrEmailTaken
	}
	return nil
}

// Refresh exchanges a token for a fresh one. Expired tokens are accepted for
// RefreshGrace after expiry. The old token is revoked. An empty kind accepts
// either principal kind.
func (s *Service) Refresh(ctx context.Context, raw string, kind shared.PrincipalKind) (*Session, error) {
	claims, err := s.codec.Verify(raw)
	if err != nil {
		if !errors.Is(err, ErrTokenExpired) || claims == nil {
			return nil, err
		}
		if s.now().Sub(claims.ExpiresAt.Time) > s.cfg.RefreshGrace {
			return nil, err
		}
	}
	p, err := s.live(ctx, claims, kind)
	if err != nil {
		return nil, err
	}
	session, err := s.issue(p)
	if err != nil {
		return nil, err
	}
	if err := s.revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Warn("revoke refreshed token", slog.Any("error", err))
	}
	return session, nil
}

// Validate verifies the token, checks the denylist and confirms the principal
// still exists and is enabled.
func (s *Service) Validate(ctx context.Context, raw string, kind shared.PrincipalKind) (Profile, error) {
	claims, err := s.codec.Verify(raw)
	if err != nil {
		return Profile{}, err
	}
	p, err := s.live(ctx, claims, kind)
	if err != nil {
		return Profile{}, err
	}
	return p.Profile(), nil
}

func (s *Service) live(ctx context.Context, claims *Claims, kind shared.PrincipalKind) (*Principal, error) {
	if kind != "" && claims.Kind != kind {
		return nil, ErrWrongPrincipal
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	p, err := s.resolver.ResolveSubject(ctx, claims.Kind, claims.Subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !p.Enabled() {
		return nil, shared.ErrInvalidCredentials
	}
	return p, nil
}

// Authenticate verifies a bearer token for request authorization. It does
// not touch the database.
func (s *Service) Authenticate(ctx context.Context, raw string) (shared.Actor, error) {
	claims, err := s.codec.Verify(raw)
	if err != nil {
		return shared.Actor{}, err
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return shared.Actor{}, err
	}
	if revoked {
		return shared.Actor{}, ErrTokenRevoked
	}
	return claims.Actor(), nil
}

// ChangePassword re-authenticates the actor with the old secret before
// storing the new one. On success the presenting token is revoked.
func (s *Service) ChangePassword(ctx context.Context, actor shared.Actor, req ChangePasswordRequest) error {
	if err := httpx.Validate(s.validate, req); err != nil {
		return err
	}
	p, err := s.resolver.ResolveSubject(ctx, actor.Kind, actor.Subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrInvalidCredentials
		}
		return err
	}
	if !p.Enabled() || !s.hasher.Verify(req.OldPassword, p.HashedSecret()) {
		return shared.ErrInvalidCredentials
	}
	if req.OldPassword == req.NewPassword {
		return shared.FieldErrors{"newPassword": "must differ from the current password"}
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if p.Kind == shared.KindAdmin {
		err = s.admins.UpdatePassword(ctx, p.Admin.ID, hash, p.Admin.Version)
	} else {
		err = s.students.UpdatePassword(ctx, p.Student.ID, hash, p.Student.Version)
	}
	if err != nil {
		return fmt.Errorf("auth: change password: %w", err)
	}
	if err := s.revoke(ctx, actor.TokenID, actor.ExpiresAt); err != nil {
		s.logger.Warn("revoke token after password change", slog.Any("error", err))
	}
	return nil
}

// Logout revokes the actor's current token.
func (s *Service) Logout(ctx context.Context, actor shared.Actor) error {
	if err := s.revoke(ctx, actor.TokenID, actor.ExpiresAt); err != nil {
		return fmt.Errorf("auth: logout: %w", err)
	}
	return nil
}

// revoke keeps the id on the denylist through the refresh grace window.
func (s *Service) revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	return s.denylist.Revoke(ctx, tokenID, expiresAt.Add(s.cfg.RefreshGrace))
}

// Me returns the current principal.
func (s *Service) Me(ctx context.Context, actor shared.Actor) (Profile, error) {
	p, err := s.resolver.ResolveSubject(ctx, actor.Kind, actor.Subject)
	if err != nil {
		return Profile{}, err
	}
	return p.Profile(), nil
}

// ForgotPassword answers identically for known and unknown emails. A notice
// is queued only for registered students.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	if err := httpx.Validate(s.validate, req); err != nil {
		return err
	}
	st, err := s.students.FindByEmail(ctx, shared.NormalizeIdentifier(req.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("auth: forgot password: %w", err)
	}
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.NotifyPasswordReset(ctx, st.Email, st.Name); err != nil {
		s.logger.Warn("queue password reset", slog.Any("error", err))
	}
	return nil
}
