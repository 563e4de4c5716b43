package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/admins"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
	"github.com/odyssey-erp/odyssey-campus/internal/students"
)

// StudentLookup finds student principals.
type StudentLookup interface {
	FindByEmail(ctx context.Context, email string) (*students.Student, error)
	FindByRollNo(ctx context.Context, rollNo string) (*students.Student, error)
}

// AdminLookup finds admin principals.
type AdminLookup interface {
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*admins.Admin, error)
}

// Principal is either a student or an admin. Exactly one of Student and Admin is set.
type Principal struct {
	Kind    shared.PrincipalKind
	Student *students.Student
	Admin   *admins.Admin
}

// Subject is the identifier embedded in tokens: email for students, username for admins.
func (p *Principal) Subject() string {
	if p.Kind == shared.KindAdmin {
		return p.Admin.Username
	}
	return p.Student.Email
}

// ID returns the principal's record id.
func (p *Principal) ID() uuid.UUID {
	if p.Kind == shared.KindAdmin {
		return p.Admin.ID
	}
	return p.Student.ID
}

// Version returns the record version used for optimistic updates.
func (p *Principal) Version() int64 {
	if p.Kind == shared.KindAdmin {
		return p.Admin.Version
	}
	return p.Student.Version
}

// Role returns the coarse role of the principal.
func (p *Principal) Role() shared.Role {
	if p.Kind == shared.KindAdmin {
		return p.Admin.Role
	}
	return shared.RoleStudent
}

// Authorities returns the authority strings granted to the principal.
func (p *Principal) Authorities() []string {
	if p.Kind == shared.KindAdmin {
		return p.Admin.Authorities()
	}
	return p.Student.Authorities()
}

// HashedSecret returns the stored password digest.
func (p *Principal) HashedSecret() string {
	if p.Kind == shared.KindAdmin {
		return p.Admin.PasswordHash
	}
	return p.Student.PasswordHash
}

// Enabled reports whether the principal may authenticate.
func (p *Principal) Enabled() bool {
	if p.Kind == shared.KindAdmin {
		return p.Admin.Enabled()
	}
	return p.Student.Enabled()
}

// Attributes returns the claims embedded in tokens for the principal.
func (p *Principal) Attributes() Attributes {
	if p.Kind == shared.KindAdmin {
		return Attributes{
			Role:       p.Admin.Role,
			Name:       p.Admin.Name,
			Department: p.Admin.Department,
			AdminID:    p.Admin.ID.String(),
		}
	}
	return Attributes{
		Role:       shared.RoleStudent,
		Name:       p.Student.Name,
		Department: p.Student.Department,
		StudentID:  p.Student.ID.String(),
		RollNo:     p.Student.RollNo,
	}
}

// Profile is the public projection of a principal.
type Profile struct {
	Kind        shared.PrincipalKind `json:"type"`
	Role        shared.Role          `json:"role"`
	Authorities []string             `json:"authorities"`
	Student     *students.View       `json:"student,omitempty"`
	Admin       *admins.View         `json:"admin,omitempty"`
}

// Profile projects the principal without its secret.
func (p *Principal) Profile() Profile {
	out := Profile{Kind: p.Kind, Role: p.Role(), Authorities: p.Authorities()}
	if p.Kind == shared.KindAdmin {
		v := p.Admin.ToView()
		out.Admin = &v
	} else {
		v := p.Student.ToView()
		out.Student = &v
	}
	return out
}

// Resolver maps login identifiers to principals.
type Resolver struct {
	students StudentLookup
	admins   AdminLookup
}

// NewResolver constructs a Resolver.
func NewResolver(students StudentLookup, admins AdminLookup) *Resolver {
	return &Resolver{students: students, admins: admins}
}

// Resolve looks the identifier up as an admin username or email first and as
// a student email second. Disabled admins still resolve; callers reject them.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*Principal, error) {
	id := shared.NormalizeIdentifier(identifier)
	if id == "" {
		return nil, shared.ErrNotFound
	}
	p, err := r.ResolveAdmin(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	st, err := r.students.FindByEmail(ctx, id)
	if err != nil {
		return nil, wrapLookup("student", err)
	}
	return &Principal{Kind: shared.KindStudent, Student: st}, nil
}

// ResolveStudent accepts an email (anything containing "@") or a roll number.
func (r *Resolver) ResolveStudent(ctx context.Context, identifier string) (*Principal, error) {
	id := shared.NormalizeIdentifier(identifier)
	if id == "" {
		return nil, shared.ErrNotFound
	}
	var (
		st  *students.Student
		err error
	)
	if strings.Contains(id, "@") {
		st, err = r.students.FindByEmail(ctx, id)
	} else {
		st, err = r.students.FindByRollNo(ctx, strings.TrimSpace(identifier))
	}
	if err != nil {
		return nil, wrapLookup("student", err)
	}
	return &Principal{Kind: shared.KindStudent, Student: st}, nil
}

// ResolveAdmin accepts an admin username or email.
func (r *Resolver) ResolveAdmin(ctx context.Context, identifier string) (*Principal, error) {
	id := shared.NormalizeIdentifier(identifier)
	if id == "" {
		return nil, shared.ErrNotFound
	}
	a, err := r.admins.FindByUsernameOrEmail(ctx, id)
	if err != nil {
		return nil, wrapLookup("admin", err)
	}
	return &Principal{Kind: shared.KindAdmin, Admin: a}, nil
}

// ResolveSubject re-loads the principal named by a token subject of the given kind.
func (r *Resolver) ResolveSubject(ctx context.Context, kind shared.PrincipalKind, subject string) (*Principal, error) {
	switch kind {
	case shared.KindAdmin:
		return r.ResolveAdmin(ctx, subject)
	case shared.KindStudent:
		st, err := r.students.FindByEmail(ctx, shared.NormalizeIdentifier(subject))
		if err != nil {
			return nil, wrapLookup("student", err)
		}
		return &Principal{Kind: shared.KindStudent, Student: st}, nil
	}
	return nil, shared.ErrNotFound
}

func wrapLookup(kind string, err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.ErrNotFound
	}
	return fmt.Errorf("auth: resolve %s: %w", kind, err)
}
