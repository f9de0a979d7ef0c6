package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
	"github.com/Janine65/jafr-ng-core/pkg/session"
)

// TokenProvider yields a bearer token, refreshing it when it is close to
// expiry. session.Adapter satisfies it.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// skipAuth reports whether a request must go out without a bearer token:
// static assets and the identity provider's own endpoints, where a stale
// token would poison login and refresh flows.
func skipAuth(req *http.Request, issuer string) bool {
	path := req.URL.Path
	for _, prefix := range []string{"/assets/", "/favicon", "/.well-known/"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	if issuer != "" && strings.HasPrefix(req.URL.String(), issuer) {
		return true
	}
	return false
}

// Auth injects Authorization: Bearer from the token provider. A logged-out
// session sends the request unauthenticated and lets the backend answer
// 401; any other token failure is surfaced to the caller because retrying
// without credentials would just trade one error for another.
func Auth(tokens TokenProvider, env runtimecfg.Environment) Decorator {
	issuer := env.Identity.Issuer

	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") != "" || skipAuth(req, issuer) {
				return next.RoundTrip(req)
			}

			token, err := tokens.Token(req.Context())
			if err != nil {
				if errors.Is(err, session.ErrNotAuthenticated) || errors.Is(err, session.ErrNotLoggedIn) {
					return next.RoundTrip(req)
				}
				return nil, err
			}

			out := cloneRequest(req)
			out.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(out)
		})
	}
}
