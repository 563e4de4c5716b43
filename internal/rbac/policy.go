package rbac

import (
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Policy decides access over one ordered rule table. A request matching no
// rule only needs to be authenticated.
type Policy struct {
	rules []Rule
}

// NewPolicy compiles rules. Earlier rules win ties of equal specificity.
func NewPolicy(rules ...Rule) *Policy {
	compiled := make([]Rule, len(rules))
	copy(compiled, rules)
	for i := range compiled {
		compiled[i].compile()
	}
	return &Policy{rules: compiled}
}

// Decide evaluates the table for method and path on behalf of a caller
// holding roles. Public rules are consulted first; the most specific
// matching rule decides.
func (p *Policy) Decide(method, path string, roles []shared.Role) Decision {
	method = strings.ToUpper(method)
	segments := splitPath(path)

	var best *Rule
	for i := range p.rules {
		rule := &p.rules[i]
		if !rule.Public || !rule.matches(method, segments) {
			continue
		}
		if best == nil || rule.moreSpecific(best) {
			best = rule
		}
	}
	for i := range p.rules {
		rule := &p.rules[i]
		if rule.Public || !rule.matches(method, segments) {
			continue
		}
		if best == nil || rule.moreSpecific(best) {
			best = rule
		}
	}

	switch {
	case best == nil:
		if len(roles) == 0 {
			return RequireAuth
		}
		return Permit
	case best.Public:
		return Permit
	case len(roles) == 0:
		return RequireAuth
	case best.allows(roles):
		return Permit
	default:
		return Deny
	}
}

// Rules returns a copy of the compiled table.
func (p *Policy) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

var (
	students = []shared.Role{shared.RoleStudent}
	staff    = []shared.Role{shared.RoleStaffAdmin, shared.RoleSuperAdmin}
	super    = []shared.Role{shared.RoleSuperAdmin}
)

func public(method, pattern string) Rule {
	return Rule{Method: method, Pattern: pattern, Public: true}
}

func allow(method, pattern string, roles []shared.Role) Rule {
	return Rule{Method: method, Pattern: pattern, Roles: roles}
}

// CampusRules is the route table of the campus API.
func CampusRules() []Rule {
	return []Rule{
		public(http.MethodPost, "/auth/login"),
		public(http.MethodPost, "/auth/student-login"),
		public(http.MethodPost, "/auth/register"),
		public(http.MethodPost, "/auth/refresh-token"),
		public(http.MethodPost, "/auth/forgot-password"),
		public(http.MethodGet, "/auth/validate-token"),
		public(http.MethodPost, "/admin/auth/login"),
		public(http.MethodPost, "/admin/auth/register"),
		public(http.MethodPost, "/admin/auth/refresh-token"),
		public(http.MethodGet, "/admin/auth/validate-token"),
		public(http.MethodPost, "/applications/submit"),
		public(http.MethodGet, "/courses/active"),
		public(http.MethodGet, "/courses/available"),
		public(http.MethodGet, "/courses/department/*"),
		public(http.MethodGet, "/courses/program/*"),
		public(http.MethodGet, "/courses/*"),
		public(http.MethodGet, "/health"),
		public(http.MethodGet, "/healthz"),
		public(http.MethodGet, "/api"),
		public(http.MethodGet, "/metrics"),

		allow("", "/auth/**", students),
		allow("", "/students/me/**", students),
		allow(http.MethodGet, "/students/**", staff),
		allow(http.MethodPut, "/students/*/academic", staff),
		allow(http.MethodPut, "/students/*/cgpa", staff),
		allow(http.MethodPut, "/students/*/attendance", staff),
		allow("", "/students/**", super),

		allow(http.MethodGet, "/courses", staff),
		allow(http.MethodGet, "/courses/stats", staff),
		allow("", "/courses/**", super),

		allow("", "/applications/**", super),

		allow("", "/admin/auth/**", staff),
		allow(http.MethodGet, "/admin/students", staff),
		allow(http.MethodGet, "/admin/students/*", staff),
		allow(http.MethodPut, "/admin/students/*/academic", staff),
		allow("", "/admin/**", super),

		allow("", "/system/**", super),
		allow("", "/jobs/**", super),
	}
}
