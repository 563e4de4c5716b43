package rbac

import (
	"strings"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Decision is the outcome of evaluating the policy for a request.
type Decision int

const (
	// RequireAuth means the caller must present a valid token.
	RequireAuth Decision = iota
	// Permit lets the request through.
	Permit
	// Deny rejects an authenticated caller lacking the role.
	Deny
)

func (d Decision) String() string {
	switch d {
	case Permit:
		return "permit"
	case Deny:
		return "deny"
	default:
		return "require_auth"
	}
}

// Rule maps a method and path pattern to the roles allowed through.
// An empty Method matches every method. Public rules need no token.
//
// Patterns are slash separated; "*" matches exactly one segment and a
// trailing "**" matches any remainder, including none.
type Rule struct {
	Method  string
	Pattern string
	Public  bool
	Roles   []shared.Role

	segments []string
	literals int
	wildcard int
}

func (r *Rule) compile() {
	r.Method = strings.ToUpper(r.Method)
	r.segments = splitPath(r.Pattern)
	r.literals, r.wildcard = 0, 0
	for _, seg := range r.segments {
		if seg == "*" || seg == "**" {
			r.wildcard++
			continue
		}
		r.literals++
	}
}

func (r *Rule) matches(method string, path []string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	for i, seg := range r.segments {
		if seg == "**" && i == len(r.segments)-1 {
			return true
		}
		if i >= len(path) {
			return false
		}
		if seg != "*" && seg != path[i] {
			return false
		}
	}
	return len(path) == len(r.segments)
}

// moreSpecific reports whether r should win over other.
func (r *Rule) moreSpecific(other *Rule) bool {
	if r.literals != other.literals {
		return r.literals > other.literals
	}
	if r.wildcard != other.wildcard {
		return r.wildcard < other.wildcard
	}
	if (r.Method != "") != (other.Method != "") {
		return r.Method != ""
	}
	// Public beats a role rule of equal shape.
	return r.Public && !other.Public
}

func (r *Rule) allows(roles []shared.Role) bool {
	for _, want := range r.Roles {
		for _, have := range roles {
			if want == have {
				return true
			}
		}
	}
	return false
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
