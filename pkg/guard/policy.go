package guard

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/Janine65/jafr-ng-core/pkg/roles"
	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
)

//go:embed model.conf
var casbinModelContent string

// NewEnforcer creates an in-memory Casbin enforcer with the embedded RBAC
// model. Policy rows are (role, path pattern, method regex); the path is
// matched with keyMatch2, so /api/things/:id style patterns work. Callers
// add policies via AddPolicy and role hierarchies via AddGroupingPolicy.
func NewEnforcer() (casbin.IEnforcer, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	return enforcer, nil
}

// Policy returns a route gate backed by a Casbin enforcer for applications
// whose route-to-role policy is managed centrally rather than declared per
// route. The principal's provider roles are mapped to internal roles and
// each internal role is enforced against (path, method); any allowing role
// grants access. Redirect semantics match Roles.
func Policy(enforcer casbin.IEnforcer, resolver *roles.Resolver, env runtimecfg.Environment, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(env, opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if o.skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			if err := resolver.EnsureLoaded(r.Context()); err != nil {
				redirectDenied(w, r, o.defaultRoute, CodeRolesUnresolvable)
				return
			}

			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				redirectDenied(w, r, o.deniedRoute, CodeUnauthenticated)
				return
			}

			granted := resolver.MapProviderRolesToInternal(principal.ProviderRoles)
			for _, role := range granted {
				allowed, err := enforcer.Enforce(role, r.URL.Path, r.Method)
				if err != nil {
					redirectDenied(w, r, o.defaultRoute, CodeRolesUnresolvable)
					return
				}
				if allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			redirectDenied(w, r, o.defaultRoute, CodeNoMatchingRole)
		})
	}
}
