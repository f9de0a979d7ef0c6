package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Janine65/jafr-ng-core/pkg/roles"
	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
)

var gateRoles = roles.StaticSource{
	{Name: "admin", ProviderRoles: []string{"jafr-admin"}},
	{Name: "editor", ProviderRoles: []string{"jafr-editor", "jafr-admin"}},
	{Name: "reader", ProviderRoles: []string{"jafr-reader", "jafr-editor", "jafr-admin"}},
}

func testEnv() runtimecfg.Environment {
	env := runtimecfg.Defaults()
	env.Errors.AccessDeniedRoute = "/access-denied"
	env.Errors.DefaultRoute = "/home"
	return env
}

func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestEvaluateDenyWins(t *testing.T) {
	tests := []struct {
		name    string
		req     Requirement
		granted []string
		allowed bool
		code    string
	}{
		{
			name:    "no constraints allows anyone",
			req:     Requirement{},
			granted: nil,
			allowed: true,
		},
		{
			name:    "any-of matches",
			req:     Requirement{AnyOf: []string{"admin", "editor"}},
			granted: []string{"editor"},
			allowed: true,
		},
		{
			name:    "any-of misses",
			req:     Requirement{AnyOf: []string{"admin"}},
			granted: []string{"reader"},
			allowed: false,
			code:    CodeNoMatchingRole,
		},
		{
			name:    "all-of complete",
			req:     Requirement{AllOf: []string{"editor", "reader"}},
			granted: []string{"editor", "reader"},
			allowed: true,
		},
		{
			name:    "all-of incomplete",
			req:     Requirement{AllOf: []string{"editor", "reader"}},
			granted: []string{"editor"},
			allowed: false,
			code:    CodeMissingRequired,
		},
		{
			name:    "excluded role denies",
			req:     Requirement{NoneOf: []string{"intern"}},
			granted: []string{"editor", "intern"},
			allowed: false,
			code:    CodeExcluded,
		},
		{
			name:    "role in both any-of and none-of always denies",
			req:     Requirement{AnyOf: []string{"admin"}, NoneOf: []string{"admin"}},
			granted: []string{"admin"},
			allowed: false,
			code:    CodeExcluded,
		},
		{
			name:    "exclusion beats complete all-of",
			req:     Requirement{AllOf: []string{"editor"}, NoneOf: []string{"blocked"}},
			granted: []string{"editor", "blocked"},
			allowed: false,
			code:    CodeExcluded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, code := tt.req.Evaluate(tt.granted)
			assert.Equal(t, tt.allowed, allowed)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestAuthMisconfiguredProviderRedirects(t *testing.T) {
	env := testEnv() // no identity config
	gate, err := Auth(env)
	require.NoError(t, err)

	hit := false
	handler := gate(okHandler(&hit))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/things", nil))

	assert.False(t, hit)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/access-denied?error="+CodeProviderError, rec.Header().Get("Location"))
}

func TestAuthSkipperBypassesGate(t *testing.T) {
	env := testEnv()
	gate, err := Auth(env)
	require.NoError(t, err)

	hit := false
	handler := gate(okHandler(&hit))

	for _, path := range []string{"/health", "/assets/app.js", "/auth/callback", "/.well-known/openid-configuration"} {
		hit = false
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.True(t, hit, "expected %s to bypass the gate", path)
	}

	// Preflight requests always pass.
	hit = false
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/things", nil))
	assert.True(t, hit)
}

func TestRolesGateAllowsAndDenies(t *testing.T) {
	resolver := roles.NewResolver(gateRoles)
	require.NoError(t, resolver.EnsureLoaded(context.Background()))

	env := testEnv()
	gate := Roles(resolver, Requirement{AnyOf: []string{"editor"}}, env)

	hit := false
	handler := gate(okHandler(&hit))

	// Principal with a provider role that maps to editor.
	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	ctx := SetPrincipal(req.Context(), Principal{Subject: "u1", ProviderRoles: []string{"jafr-editor"}})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))
	assert.True(t, hit)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Reader does not hold editor.
	hit = false
	req = httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	ctx = SetPrincipal(req.Context(), Principal{Subject: "u2", ProviderRoles: []string{"jafr-reader"}})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))
	assert.False(t, hit)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/home?error="+CodeNoMatchingRole, rec.Header().Get("Location"))
}

func TestRolesGateMissingPrincipal(t *testing.T) {
	resolver := roles.NewResolver(gateRoles)
	require.NoError(t, resolver.EnsureLoaded(context.Background()))

	gate := Roles(resolver, Requirement{AnyOf: []string{"reader"}}, testEnv())

	hit := false
	rec := httptest.NewRecorder()
	gate(okHandler(&hit)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/articles", nil))

	assert.False(t, hit)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/access-denied?error="+CodeUnauthenticated, rec.Header().Get("Location"))
}

func TestRedirectDeniedPreservesExistingQuery(t *testing.T) {
	rec := httptest.NewRecorder()
	redirectDenied(rec, httptest.NewRequest(http.MethodGet, "/x", nil), "/home?tab=news", CodeExcluded)
	assert.Equal(t, "/home?tab=news&error="+CodeExcluded, rec.Header().Get("Location"))
}

func TestPolicyGate(t *testing.T) {
	enforcer, err := NewEnforcer()
	require.NoError(t, err)
	_, err = enforcer.AddPolicy("editor", "/api/articles/:id", "GET|PUT")
	require.NoError(t, err)
	_, err = enforcer.AddPolicy("admin", "/api/*", ".*")
	require.NoError(t, err)
	_, err = enforcer.AddGroupingPolicy("admin", "editor")
	require.NoError(t, err)

	resolver := roles.NewResolver(gateRoles)
	require.NoError(t, resolver.EnsureLoaded(context.Background()))

	gate := Policy(enforcer, resolver, testEnv())

	serve := func(method, path string, providerRoles []string) (*httptest.ResponseRecorder, bool) {
		hit := false
		req := httptest.NewRequest(method, path, nil)
		ctx := SetPrincipal(req.Context(), Principal{Subject: "u1", ProviderRoles: providerRoles})
		rec := httptest.NewRecorder()
		gate(okHandler(&hit)).ServeHTTP(rec, req.WithContext(ctx))
		return rec, hit
	}

	rec, hit := serve(http.MethodGet, "/api/articles/42", []string{"jafr-editor"})
	assert.True(t, hit)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Editors cannot delete.
	rec, hit = serve(http.MethodDelete, "/api/articles/42", []string{"jafr-editor"})
	assert.False(t, hit)
	assert.Equal(t, "/home?error="+CodeNoMatchingRole, rec.Header().Get("Location"))

	// Admin inherits editor and matches the wildcard policy.
	_, hit = serve(http.MethodDelete, "/api/articles/42", []string{"jafr-admin"})
	assert.True(t, hit)
}
