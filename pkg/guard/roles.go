package guard

import (
	"net/http"

	"github.com/Janine65/jafr-ng-core/pkg/roles"
	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
)

// Requirement declares a route's role demands. All three sets hold internal
// role names. Evaluation order is fixed: exclusions first (deny wins), then
// all-required, then any-required.
type Requirement struct {
	// AnyOf grants access when at least one role is held. Empty means no
	// any-of constraint.
	AnyOf []string
	// AllOf requires every listed role.
	AllOf []string
	// NoneOf denies access when any listed role is held, even if the same
	// role also appears in AnyOf or AllOf.
	NoneOf []string
}

// Evaluate applies the requirement to the granted internal roles. The empty
// code means access is allowed.
func (req Requirement) Evaluate(granted []string) (allowed bool, code string) {
	held := make(map[string]struct{}, len(granted))
	for _, role := range granted {
		held[role] = struct{}{}
	}

	for _, excluded := range req.NoneOf {
		if _, ok := held[excluded]; ok {
			return false, CodeExcluded
		}
	}

	for _, required := range req.AllOf {
		if _, ok := held[required]; !ok {
			return false, CodeMissingRequired
		}
	}

	if len(req.AnyOf) > 0 {
		for _, candidate := range req.AnyOf {
			if _, ok := held[candidate]; ok {
				return true, ""
			}
		}
		return false, CodeNoMatchingRole
	}

	return true, ""
}

// Roles returns the role gate. It waits for the resolver to settle (bounded
// by the request context), maps the principal's provider roles to internal
// roles, and evaluates the requirement. Denial redirects to the default
// route with an error code; there is no retry.
func Roles(resolver *roles.Resolver, req Requirement, env runtimecfg.Environment, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(env, opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if o.skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			if err := resolver.EnsureLoaded(r.Context()); err != nil {
				// The request ended before role loading settled.
				redirectDenied(w, r, o.defaultRoute, CodeRolesUnresolvable)
				return
			}

			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				redirectDenied(w, r, o.deniedRoute, CodeUnauthenticated)
				return
			}

			granted := resolver.MapProviderRolesToInternal(principal.ProviderRoles)
			if allowed, code := req.Evaluate(granted); !allowed {
				redirectDenied(w, r, o.defaultRoute, code)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
