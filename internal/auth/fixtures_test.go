package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-campus/internal/admins"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
	"github.com/odyssey-erp/odyssey-campus/internal/students"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now().UTC().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type memStudents struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*students.Student
}

func newMemStudents() *memStudents {
	return &memStudents{byID: make(map[uuid.UUID]*students.Student)}
}

func (m *memStudents) find(match func(*students.Student) bool) (*students.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if match(s) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memStudents) Get(ctx context.Context, id uuid.UUID) (*students.Student, error) {
	return m.find(func(s *students.Student) bool { return s.ID == id })
}

func (m *memStudents) FindByEmail(ctx context.Context, email string) (*students.Student, error) {
	return m.find(func(s *students.Student) bool { return s.Email == email })
}

func (m *memStudents) FindByRollNo(ctx context.Context, rollNo string) (*students.Student, error) {
	return m.find(func(s *students.Student) bool { return s.RollNo == rollNo })
}

func (m *memStudents) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *memStudents) ExistsByRollNo(ctx context.Context, rollNo string) (bool, error) {
	_, err := m.FindByRollNo(ctx, rollNo)
	return err == nil, nil
}

func (m *memStudents) List(ctx context.Context, filter students.ListFilter) ([]students.Student, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]students.Student, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *memStudents) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

func (m *memStudents) Create(ctx context.Context, s *students.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Version = 1
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *memStudents) Update(ctx context.Context, s *students.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memStudents) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memStudents) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

type memAdmins struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*admins.Admin

	touched int
}

func newMemAdmins() *memAdmins {
	return &memAdmins{byID: make(map[uuid.UUID]*admins.Admin)}
}

func (m *memAdmins) FindByUsernameOrEmail(ctx context.Context, identifier string) (*admins.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Username == identifier {
			cp := *a
			return &cp, nil
		}
	}
	for _, a := range m.byID {
		if a.Email == identifier {
			cp := *a
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memAdmins) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAdmins) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAdmins) Create(ctx context.Context, a *admins.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Version = 1
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAdmins) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memAdmins) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.byID[id]; ok {
		stored.LastLogin = &at
		m.touched++
	}
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	emails []string
}

func (n *recordingNotifier) NotifyPasswordReset(ctx context.Context, email, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, email)
	return nil
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveLogin(kind, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[kind+"/"+outcome]++
}

type fixture struct {
	svc      *Service
	students *memStudents
	admins   *memAdmins
	hasher   *BcryptHasher
	codec    *TokenCodec
	clock    *fakeClock
	notifier *recordingNotifier
	observer *countingObserver
}

func newFixture(t *testing.T, denylist Denylist, cfg ServiceConfig) *fixture {
	t.Helper()
	hasher, err := NewBcryptHasher(4)
	require.NoError(t, err)
	clock := newFakeClock()
	codec, err := NewTokenCodec(testSecret, WithClock(clock.Now))
	require.NoError(t, err)
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = time.Hour
	}
	f := &fixture{
		students: newMemStudents(),
		admins:   newMemAdmins(),
		hasher:   hasher,
		codec:    codec,
		clock:    clock,
		notifier: &recordingNotifier{},
		observer: &countingObserver{},
	}
	f.svc = NewService(ServiceParams{
		Students:  f.students,
		Registrar: students.NewService(f.students, hasher),
		Admins:    f.admins,
		Hasher:    hasher,
		Codec:     codec,
		Denylist:  denylist,
		Notifier:  f.notifier,
		Observer:  f.observer,
		Config:    cfg,
		Now:       clock.Now,
	})
	return f
}

func (f *fixture) addStudent(t *testing.T, name, email, rollNo, password string) *students.Student {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	st := &students.Student{
		Name:            name,
		Email:           strings.ToLower(email),
		RollNo:          rollNo,
		PasswordHash:    hash,
		Department:      "Computer Science",
		Year:            1,
		Semester:        1,
		PlacementStatus: students.PlacementNotPlaced,
	}
	require.NoError(t, f.students.Create(context.Background(), st))
	return st
}

func (f *fixture) addAdmin(t *testing.T, username, email, password string, role shared.Role, active bool) *admins.Admin {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	a := &admins.Admin{
		Name:         "Admin " + username,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
	}
	require.NoError(t, f.admins.Create(context.Background(), a))
	return a
}
