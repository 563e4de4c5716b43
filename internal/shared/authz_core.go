package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

// Role is a coarse authorization role carried by every principal.
type Role string

// Campus roles.
const (
	RoleStudent    Role = "STUDENT"
	RoleStaffAdmin Role = "STAFF_ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// AuthorityPrefix marks role authorities derived from a Role.
const AuthorityPrefix = "ROLE_"

// Authority renders the role as an authority string, e.g. ROLE_STUDENT.
func (r Role) Authority() string {
	return AuthorityPrefix + string(r)
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleStaffAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// AdminRoles lists the roles an admin account can hold.
func AdminRoles() []Role {
	return []Role{RoleStaffAdmin, RoleSuperAdmin}
}

// PrincipalKind distinguishes the two principal variants.
type PrincipalKind string

const (
	KindStudent PrincipalKind = "student"
	KindAdmin   PrincipalKind = "admin"
)

// NormalizeIdentifier trims and case-folds a login identifier (email, username).
// Roll numbers are numeric so folding leaves them intact.
func NormalizeIdentifier(s string) string {
	// A Caser holds state, so one is built per call.
	return cases.Fold().String(strings.TrimSpace(s))
}
