// Package guard gates HTTP routes on authentication state and resolved
// application roles. Guards are chi-compatible middleware; denial redirects
// to a fallback route with an error code instead of rendering an error body.
package guard

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/xenitab/go-oidc-middleware/oidctoken"
	"github.com/xenitab/go-oidc-middleware/options"

	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
	"github.com/Janine65/jafr-ng-core/pkg/session"
)

// Error codes appended to the redirect target as ?error=<code>.
const (
	CodeUnauthenticated   = "unauthenticated"
	CodeProviderError     = "provider_error"
	CodeExcluded          = "forbidden_excluded"
	CodeMissingRequired   = "forbidden_missing_required"
	CodeNoMatchingRole    = "forbidden_no_match"
	CodeRolesUnresolvable = "roles_unresolvable"
)

// Skipper decides whether a request bypasses a guard.
type Skipper func(*http.Request) bool

// DefaultSkipper bypasses guards for preflight requests and the public
// prefixes every jafr app serves without authentication: health probes,
// static assets, and the identity provider's own endpoints.
func DefaultSkipper(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.Method == http.MethodOptions {
		return true
	}

	path := r.URL.Path
	publicPrefixes := []string{
		"/health",
		"/assets/",
		"/favicon",
		"/auth/",
		"/.well-known/",
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

type guardOptions struct {
	skipper      Skipper
	deniedRoute  string
	defaultRoute string
}

// Option customises guard construction.
type Option func(*guardOptions)

// WithSkipper overrides the default skipper.
func WithSkipper(skipper Skipper) Option {
	return func(o *guardOptions) {
		if skipper != nil {
			o.skipper = skipper
		}
	}
}

// WithDeniedRoute overrides the access-denied redirect target.
func WithDeniedRoute(route string) Option {
	return func(o *guardOptions) {
		if route != "" {
			o.deniedRoute = route
		}
	}
}

// WithDefaultRoute overrides the role-denial redirect target.
func WithDefaultRoute(route string) Option {
	return func(o *guardOptions) {
		if route != "" {
			o.defaultRoute = route
		}
	}
}

func buildOptions(env runtimecfg.Environment, opts []Option) guardOptions {
	o := guardOptions{
		skipper:      DefaultSkipper,
		deniedRoute:  env.Errors.AccessDeniedRoute,
		defaultRoute: env.Errors.DefaultRoute,
	}
	if o.deniedRoute == "" {
		o.deniedRoute = "/access-denied"
	}
	if o.defaultRoute == "" {
		o.defaultRoute = "/"
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// redirectDenied sends the caller to route with the error code attached.
func redirectDenied(w http.ResponseWriter, r *http.Request, route, code string) {
	target := route
	if code != "" {
		separator := "?"
		if strings.Contains(route, "?") {
			separator = "&"
		}
		target = route + separator + "error=" + url.QueryEscape(code)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Auth returns the authentication gate. Bearer tokens are validated against
// the configured identity provider (issuer and audience from the
// environment); the validated claims and the extracted principal land on the
// request context for downstream guards.
//
// A missing identity configuration or an unreachable provider does not take
// the application down: affected requests are redirected to the
// access-denied route with a provider_error code.
func Auth(env runtimecfg.Environment, opts ...Option) (func(http.Handler) http.Handler, error) {
	o := buildOptions(env, opts)

	if !env.Identity.Configured() {
		// Provider misconfigured: every guarded request is denied, public
		// prefixes still pass.
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if o.skipper(r) {
					next.ServeHTTP(w, r)
					return
				}
				redirectDenied(w, r, o.deniedRoute, CodeProviderError)
			})
		}, nil
	}

	tokenHandler, err := oidctoken.New[map[string]any](
		nil,
		options.WithIssuer(env.Identity.Issuer),
		options.WithRequiredAudience(env.Identity.ClientID),
		options.WithLazyLoadJwks(true),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise oidc token handler: %w", err)
	}

	rolesClaim := env.Identity.RolesClaim
	rolesClaimPath := env.Identity.RolesClaimPath

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if o.skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			token, err := oidctoken.GetTokenString(r.Header.Get, [][]options.TokenStringOption{{}})
			if err != nil || token == "" {
				redirectDenied(w, r, o.deniedRoute, CodeUnauthenticated)
				return
			}

			claims, err := tokenHandler.ParseToken(r.Context(), strings.TrimSpace(token))
			if err != nil {
				redirectDenied(w, r, o.deniedRoute, CodeUnauthenticated)
				return
			}

			providerRoles, err := session.ExtractProviderRoles(claims, rolesClaim, rolesClaimPath)
			if err != nil {
				providerRoles = nil
			}

			principal := Principal{
				Subject:       stringClaim(claims, "sub"),
				Email:         stringClaim(claims, "email"),
				ProviderRoles: providerRoles,
			}

			ctx := SetClaims(r.Context(), claims)
			ctx = SetPrincipal(ctx, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

func stringClaim(claims map[string]any, field string) string {
	value, _ := claims[field].(string)
	return value
}
