package appshell

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Janine65/jafr-ng-core/pkg/guard"
	"github.com/Janine65/jafr-ng-core/pkg/prefs"
	"github.com/Janine65/jafr-ng-core/pkg/roles"
	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
	"github.com/Janine65/jafr-ng-core/pkg/storage"
	"github.com/Janine65/jafr-ng-core/pkg/transport"
)

func testMenu() []MenuItem {
	return []MenuItem{
		{Label: "Home", Route: "/home"},
		{Label: "Articles", Route: "/articles", VisibleWhen: `Authenticated == true`},
		{
			Label:       "Administration",
			VisibleWhen: `"admin" in Roles`,
			Children: []MenuItem{
				{Label: "Users", Route: "/admin/users"},
				{Label: "Diagnostics", Route: "/admin/diag", VisibleWhen: `Stage != "PROD"`},
			},
		},
		{
			Label: "Reports",
			Children: []MenuItem{
				{Label: "Audit", Route: "/reports/audit", VisibleWhen: `"auditor" in Roles`},
			},
		},
	}
}

func TestMenuForAnonymousViewer(t *testing.T) {
	menu := MenuFor(testMenu(), VisibilityContext{Stage: "DEV"})

	require.Len(t, menu, 1)
	assert.Equal(t, "Home", menu[0].Label)
}

func TestMenuForAdmin(t *testing.T) {
	ctx := VisibilityContext{Roles: []string{"admin"}, Stage: "DEV", Authenticated: true}
	menu := MenuFor(testMenu(), ctx)

	labels := make([]string, 0, len(menu))
	for _, item := range menu {
		labels = append(labels, item.Label)
	}
	// Reports collapses: its only child needs the auditor role.
	assert.Equal(t, []string{"Home", "Articles", "Administration"}, labels)
	assert.Len(t, menu[2].Children, 2)
}

func TestMenuStageHidesDiagnosticsInProduction(t *testing.T) {
	ctx := VisibilityContext{Roles: []string{"admin"}, Stage: "PROD", Authenticated: true}
	menu := MenuFor(testMenu(), ctx)

	require.Equal(t, "Administration", menu[2].Label)
	require.Len(t, menu[2].Children, 1)
	assert.Equal(t, "Users", menu[2].Children[0].Label)
}

func TestMenuInvalidExpressionHidesItem(t *testing.T) {
	items := []MenuItem{{Label: "Broken", VisibleWhen: `not a valid ((`}}
	assert.Empty(t, MenuFor(items, VisibilityContext{Authenticated: true}))
}

func TestShellApplyPublishes(t *testing.T) {
	shell := NewShell(WithHeader(HeaderConfig{Title: "jafr"}))
	ch, cancel := shell.Subscribe()
	defer cancel()

	shell.Apply(WithFooter(FooterConfig{Text: "v1", Visible: true}))

	select {
	case state := <-ch:
		assert.Equal(t, "jafr", state.Header.Title)
		assert.True(t, state.Footer.Visible)
	case <-time.After(time.Second):
		t.Fatal("expected a published shell state")
	}
}

func principalInjector(p guard.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(guard.SetPrincipal(r.Context(), p)))
		})
	}
}

func newTestRouter(t *testing.T, stage string, guards ...func(http.Handler) http.Handler) http.Handler {
	t.Helper()

	resolver := roles.NewResolver(roles.StaticSource{
		{Name: "admin", ProviderRoles: []string{"jafr-admin"}},
		{Name: "reader", ProviderRoles: []string{"jafr-reader", "jafr-admin"}},
	})
	require.NoError(t, resolver.EnsureLoaded(context.Background()))

	env := runtimecfg.Defaults()
	env.Stage = stage

	return NewRouter(RouterOptions{
		Env:      env,
		Shell:    NewShell(WithMenu(testMenu()), WithHeader(HeaderConfig{Title: "jafr"})),
		Resolver: resolver,
		Prefs:    prefs.NewService(storage.NewMemoryStore()),
		Log:      transport.NewRequestLog(8, time.Minute),
		Guards:   guards,
	})
}

func TestRouterServesShellConfig(t *testing.T) {
	router := newTestRouter(t, runtimecfg.StageDev)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shell/config", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var state State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "jafr", state.Header.Title)
	assert.Len(t, state.Menu, 4)
}

func TestRouterMenuFiltersByPrincipal(t *testing.T) {
	router := newTestRouter(t, runtimecfg.StageDev,
		principalInjector(guard.Principal{Subject: "u1", ProviderRoles: []string{"jafr-admin"}}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shell/menu", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var menu []MenuItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &menu))
	labels := make([]string, 0, len(menu))
	for _, item := range menu {
		labels = append(labels, item.Label)
	}
	assert.Equal(t, []string{"Home", "Articles", "Administration"}, labels)
}

func TestRouterRolesEndpoint(t *testing.T) {
	router := newTestRouter(t, runtimecfg.StageDev,
		principalInjector(guard.Principal{Subject: "u1", ProviderRoles: []string{"jafr-admin"}}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shell/roles", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var granted []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &granted))
	assert.Equal(t, []string{"admin", "reader"}, granted)
}

func TestRouterPreferencesRoundTrip(t *testing.T) {
	router := newTestRouter(t, runtimecfg.StageDev)

	body := `{"language":"fr","theme":"aura-dark","darkMode":true,"scale":1.1,"menuLayout":"overlay","primaryColor":"teal","surface":"zinc","fontSize":16}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/shell/preferences", strings.NewReader(body))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shell/preferences", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got prefs.Preferences
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.DarkMode)
	assert.Equal(t, "fr", got.Language)
}

func TestRouterDebugLogHiddenInProduction(t *testing.T) {
	dev := newTestRouter(t, runtimecfg.StageDev)
	rec := httptest.NewRecorder()
	dev.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shell/debug/requests", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	prod := newTestRouter(t, runtimecfg.StageProd)
	rec = httptest.NewRecorder()
	prod.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shell/debug/requests", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterGuardApplies(t *testing.T) {
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
	router := newTestRouter(t, runtimecfg.StageDev, deny)

	// Shell endpoints are guarded, health is not.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shell/config", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
