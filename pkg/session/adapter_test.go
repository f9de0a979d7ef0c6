package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
	"github.com/Janine65/jafr-ng-core/pkg/storage"
)

func signedTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func testIdentityConfig() runtimecfg.IdentityConfig {
	return runtimecfg.IdentityConfig{
		Issuer:     "https://idp.example.com/realms/jafr",
		ClientID:   "jafr-web",
		RolesClaim: "roles",
	}
}

func newTestAdapter(t *testing.T, creds *Credentials) (*Adapter, CredentialStore) {
	t.Helper()
	store := NewStoreBackedCredentials(storage.NewMemoryStore())
	if creds != nil {
		require.NoError(t, store.SaveCredentials(creds))
	}
	return NewAdapter(testIdentityConfig(), store), store
}

func TestTokenReturnsValidTokenWithoutRefresh(t *testing.T) {
	access := "valid-token"
	adapter, _ := newTestAdapter(t, &Credentials{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(time.Hour),
		RefreshToken: "refresh",
	})
	adapter.refresh = func(context.Context, string) (*Credentials, error) {
		t.Fatal("refresh must not run for a fresh token")
		return nil, nil
	}

	token, err := adapter.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, access, token)
}

func TestTokenRefreshesNearExpiry(t *testing.T) {
	adapter, store := newTestAdapter(t, &Credentials{
		AccessToken:  "stale",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(5 * time.Second),
		RefreshToken: "refresh-1",
		Subject:      "user-1",
	})

	events, cancel := adapter.SubscribeState()
	defer cancel()

	adapter.refresh = func(_ context.Context, refreshToken string) (*Credentials, error) {
		assert.Equal(t, "refresh-1", refreshToken)
		return &Credentials{
			AccessToken: "fresh",
			TokenType:   "Bearer",
			ExpiresAt:   time.Now().Add(time.Hour),
		}, nil
	}

	token, err := adapter.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)

	saved, err := store.LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "user-1", saved.Subject, "subject carries over on refresh")
	assert.Equal(t, "refresh-1", saved.RefreshToken, "refresh token kept when provider omits a new one")

	event := <-events
	assert.Equal(t, EventRefresh, event.Type)
}

func TestTokenExpiredWithoutRefreshSignalsRelogin(t *testing.T) {
	adapter, _ := newTestAdapter(t, &Credentials{
		AccessToken: "dead",
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(-time.Minute),
	})

	events, cancel := adapter.SubscribeState()
	defer cancel()

	_, err := adapter.Token(context.Background())
	assert.ErrorIs(t, err, ErrReloginRequired)

	event := <-events
	assert.Equal(t, EventExpiry, event.Type)
}

func TestTokenExpiredFailedRefreshSignalsRelogin(t *testing.T) {
	adapter, _ := newTestAdapter(t, &Credentials{
		AccessToken:  "dead",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(-time.Minute),
		RefreshToken: "refresh",
	})
	adapter.refresh = func(context.Context, string) (*Credentials, error) {
		return nil, errors.New("provider unreachable")
	}

	_, err := adapter.Token(context.Background())
	assert.ErrorIs(t, err, ErrReloginRequired)
}

func TestTokenNearExpiryFailedRefreshKeepsRemainingValidity(t *testing.T) {
	adapter, _ := newTestAdapter(t, &Credentials{
		AccessToken:  "almost-dead",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(10 * time.Second),
		RefreshToken: "refresh",
	})
	adapter.refresh = func(context.Context, string) (*Credentials, error) {
		return nil, errors.New("provider unreachable")
	}

	token, err := adapter.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "almost-dead", token)
}

func TestTokenUnauthenticated(t *testing.T) {
	adapter, _ := newTestAdapter(t, nil)
	_, err := adapter.Token(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestStateFromTokenClaims(t *testing.T) {
	access := signedTestToken(t, jwt.MapClaims{
		"sub":   "user-1",
		"email": "jafr@example.com",
		"name":  "Jafr User",
		"roles": []string{"jafr-admin", "jafr-reader"},
	})
	adapter, _ := newTestAdapter(t, &Credentials{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
		Subject:     "user-1",
	})

	state := adapter.State()
	assert.True(t, state.Authenticated)
	assert.Equal(t, "user-1", state.Subject)
	assert.Equal(t, "jafr@example.com", state.Email)
	assert.Equal(t, []string{"jafr-admin", "jafr-reader"}, state.ProviderRoles)
}

func TestStateUnauthenticated(t *testing.T) {
	adapter, _ := newTestAdapter(t, nil)
	assert.False(t, adapter.State().Authenticated)
}

func TestLogoutClearsCredentialsAndEmits(t *testing.T) {
	adapter, store := newTestAdapter(t, &Credentials{
		AccessToken: "x",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	events, cancel := adapter.SubscribeState()
	defer cancel()

	require.NoError(t, adapter.Logout())

	_, err := store.LoadCredentials()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	event := <-events
	assert.Equal(t, EventLogout, event.Type)
	assert.False(t, event.State.Authenticated)
}

func TestLoginRequiresConfiguredProvider(t *testing.T) {
	store := NewStoreBackedCredentials(storage.NewMemoryStore())
	adapter := NewAdapter(runtimecfg.IdentityConfig{}, store)
	_, err := adapter.Login(context.Background(), nil)
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestExtractProviderRoles(t *testing.T) {
	tests := []struct {
		name   string
		claims map[string]any
		field  string
		path   string
		want   []string
	}{
		{
			name:   "flat array",
			claims: map[string]any{"roles": []any{"a", "b"}},
			field:  "roles",
			want:   []string{"a", "b"},
		},
		{
			name:   "nested objects",
			claims: map[string]any{"roles": []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}}},
			field:  "roles",
			path:   "name",
			want:   []string{"a", "b"},
		},
		{
			name:   "absent claim",
			claims: map[string]any{},
			field:  "roles",
			want:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractProviderRoles(tt.claims, tt.field, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractProviderRolesRejectsBadShape(t *testing.T) {
	_, err := ExtractProviderRoles(map[string]any{"roles": "admin"}, "roles", "")
	require.Error(t, err)
}
