package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

func TestResolverPrefersAdmin(t *testing.T) {
	f := newFixture(t, nil, ServiceConfig{})
	f.addStudent(t, "Shared", "shared@u.edu", "20260001", "student-pass")
	f.addAdmin(t, "registrar", "shared@u.edu", "admin-pass", shared.RoleStaffAdmin, true)

	p, err := f.svc.Resolver().Resolve(context.Background(), "  Shared@U.edu ")
	require.NoError(t, err)
	assert.Equal(t, shared.KindAdmin, p.Kind)
	assert.Equal(t, "registrar", p.Subject())
}

func TestResolverFallsBackToStudent(t *testing.T) {
	f := newFixture(t, nil, ServiceConfig{})
	st := f.addStudent(t, "A", "a@x.edu", "20260002", "student-pass")

	p, err := f.svc.Resolver().Resolve(context.Background(), "a@x.edu")
	require.NoError(t, err)
	assert.Equal(t, shared.KindStudent, p.Kind)
	assert.Equal(t, st.ID, p.ID())
	assert.Equal(t, []string{"ROLE_STUDENT"}, p.Authorities())

	_, err = f.svc.Resolver().Resolve(context.Background(), "nobody@x.edu")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResolveStudentByRollNumber(t *testing.T) {
	f := newFixture(t, nil, ServiceConfig{})
	f.addStudent(t, "B", "b@x.edu", "20260003", "student-pass")

	p, err := f.svc.Resolver().ResolveStudent(context.Background(), "20260003")
	require.NoError(t, err)
	assert.Equal(t, "b@x.edu", p.Subject())

	p, err = f.svc.Resolver().ResolveStudent(context.Background(), "B@X.EDU")
	require.NoError(t, err)
	assert.Equal(t, "20260003", p.Student.RollNo)
}

func TestPrincipalProfileOmitsSecret(t *testing.T) {
	f := newFixture(t, nil, ServiceConfig{})
	a := f.addAdmin(t, "dean", "dean@u.edu", "admin-pass", shared.RoleSuperAdmin, true)

	p := &Principal{Kind: shared.KindAdmin, Admin: a}
	profile := p.Profile()
	require.NotNil(t, profile.Admin)
	assert.Nil(t, profile.Student)
	assert.Equal(t, []string{"ROLE_SUPER_ADMIN"}, profile.Authorities)
	assert.Equal(t, shared.RoleSuperAdmin, p.Attributes().Role)
}
