package gateway

import (
	"strings"

	"github.com/Nohrer/app-microserv-devsecops/internal/auth"
)

// Rule matches one method and path pattern. Patterns are slash-separated:
// "*" matches exactly one segment, "**" matches the rest of the path
// (including nothing). An empty Method matches every method.
type Rule struct {
	Method  string
	Pattern string
	Roles   []auth.Role
	Public  bool
}

func (r Rule) matches(method, path string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	return matchPattern(r.Pattern, path)
}

func matchPattern(pattern, path string) bool {
	pat := splitPath(pattern)
	segs := splitPath(path)
	return matchSegments(pat, segs)
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		switch pat[0] {
		case "**":
			return true
		case "*":
			if len(segs) == 0 {
				return false
			}
		default:
			if len(segs) == 0 || pat[0] != segs[0] {
				return false
			}
		}
		pat = pat[1:]
		segs = segs[1:]
	}
	return len(segs) == 0
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Policy is an ordered rule list. The first matching rule decides.
type Policy []Rule

// Decision is the outcome of evaluating a request against the policy.
type Decision struct {
	// Public requests skip credential verification entirely.
	Public bool
	// Roles that satisfy the rule. Empty with Public false means any
	// authenticated caller.
	Roles []auth.Role
}

// Evaluate returns the decision for the first rule matching method and
// path. Unmatched requests require authentication with no role predicate.
func (p Policy) Evaluate(method, path string) Decision {
	for _, rule := range p {
		if rule.matches(method, path) {
			return Decision{Public: rule.Public, Roles: rule.Roles}
		}
	}
	return Decision{}
}

// DefaultPolicy is the edge access table for the storefront services.
func DefaultPolicy() Policy {
	admin := []auth.Role{auth.RoleAdmin}
	client := []auth.Role{auth.RoleClient}
	both := []auth.Role{auth.RoleAdmin, auth.RoleClient}

	return Policy{
		{Pattern: "/health", Public: true},
		{Pattern: "/metrics", Public: true},

		{Method: "GET", Pattern: "/api/products", Roles: both},
		{Method: "GET", Pattern: "/api/products/**", Roles: both},
		{Method: "POST", Pattern: "/api/products/check-stock", Roles: both},
		{Method: "POST", Pattern: "/api/products/*/decrease-stock", Roles: both},
		{Method: "POST", Pattern: "/api/products/*/increase-stock", Roles: admin},
		{Method: "POST", Pattern: "/api/products", Roles: admin},
		{Method: "PUT", Pattern: "/api/products/**", Roles: admin},
		{Method: "DELETE", Pattern: "/api/products/**", Roles: admin},

		{Method: "POST", Pattern: "/api/orders", Roles: client},
		{Method: "GET", Pattern: "/api/orders/my-orders", Roles: client},
		{Method: "GET", Pattern: "/api/orders", Roles: admin},
		{Method: "GET", Pattern: "/api/orders/**", Roles: admin},
		{Method: "PATCH", Pattern: "/api/orders/*/status", Roles: admin},
	}
}
