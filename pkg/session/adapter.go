// Package session wraps the identity provider's OIDC client and exposes
// authentication state, token retrieval, and profile access. The provider
// protocol itself stays inside the zitadel/oidc relying party; this package
// only consumes its flows and token accessors.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
)

var (
	// ErrNotAuthenticated is returned when no credentials are available.
	ErrNotAuthenticated = errors.New("session: not authenticated")
	// ErrReloginRequired is returned when the access token expired and
	// could not be refreshed. Callers get exactly one re-login signal;
	// the adapter never retries on its own.
	ErrReloginRequired = errors.New("session: token expired, re-login required")
	// ErrProviderNotConfigured is returned when identity settings are missing.
	ErrProviderNotConfigured = errors.New("session: identity provider not configured")
)

// EventType classifies authentication state transitions.
type EventType string

const (
	EventLogin   EventType = "login"
	EventRefresh EventType = "refresh"
	EventLogout  EventType = "logout"
	EventExpiry  EventType = "expiry"
)

// Event is emitted on every authentication state transition.
type Event struct {
	Type  EventType
	State State
}

// State is the observable authentication state.
type State struct {
	Authenticated bool
	Subject       string
	Email         string
	Name          string
	ExpiresAt     time.Time
	ProviderRoles []string
}

// DevicePrompt carries the user-facing instructions of the device
// authorization flow.
type DevicePrompt struct {
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
}

const defaultRefreshSkew = 30 * time.Second

// Adapter is the identity-provider adapter. All credential mutation funnels
// through its methods; consumers observe transitions via SubscribeState.
type Adapter struct {
	cfg         runtimecfg.IdentityConfig
	store       CredentialStore
	httpClient  *http.Client
	refreshSkew time.Duration

	rpOnce sync.Once
	rpInst rp.RelyingParty
	rpErr  error

	// refresh exchanges a refresh token for fresh credentials. Replaced in
	// tests; defaults to the relying party's token endpoint.
	refresh func(ctx context.Context, refreshToken string) (*Credentials, error)

	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// AdapterOption customises Adapter construction.
type AdapterOption func(*Adapter)

// WithHTTPClient overrides the HTTP client used for provider traffic.
func WithHTTPClient(client *http.Client) AdapterOption {
	return func(a *Adapter) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// WithRefreshSkew sets how long before expiry a token is refreshed.
func WithRefreshSkew(skew time.Duration) AdapterOption {
	return func(a *Adapter) {
		if skew > 0 {
			a.refreshSkew = skew
		}
	}
}

// NewAdapter creates an adapter around the configured identity provider.
// Provider discovery is deferred until the first flow that needs it.
func NewAdapter(cfg runtimecfg.IdentityConfig, store CredentialStore, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		cfg:         cfg,
		store:       store,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		refreshSkew: defaultRefreshSkew,
		subs:        make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.refresh = a.refreshViaProvider
	return a
}

// relyingParty performs OIDC discovery once and caches the result.
func (a *Adapter) relyingParty(ctx context.Context) (rp.RelyingParty, error) {
	if !a.cfg.Configured() {
		return nil, ErrProviderNotConfigured
	}
	a.rpOnce.Do(func() {
		scopes := a.scopes()
		a.rpInst, a.rpErr = rp.NewRelyingPartyOIDC(
			ctx,
			a.cfg.Issuer,
			a.cfg.ClientID,
			a.cfg.ClientSecret,
			a.cfg.RedirectURI,
			scopes,
			rp.WithHTTPClient(a.httpClient),
		)
		if a.rpErr != nil {
			a.rpErr = fmt.Errorf("discover identity provider at %s: %w", a.cfg.Issuer, a.rpErr)
		}
	})
	return a.rpInst, a.rpErr
}

func (a *Adapter) scopes() []string {
	if len(a.cfg.Scopes) > 0 {
		return a.cfg.Scopes
	}
	return []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail, oidc.ScopeOfflineAccess}
}

// Login runs the OIDC device authorization flow. prompt receives the user
// instructions; pass nil to log them instead. On success the credentials are
// persisted and a login event is emitted.
func (a *Adapter) Login(ctx context.Context, prompt func(DevicePrompt)) (State, error) {
	relyingParty, err := a.relyingParty(ctx)
	if err != nil {
		return State{}, err
	}

	authResponse, err := rp.DeviceAuthorization(ctx, a.scopes(), relyingParty, nil)
	if err != nil {
		return State{}, fmt.Errorf("start device authorization flow: %w", err)
	}

	p := DevicePrompt{
		UserCode:                authResponse.UserCode,
		VerificationURI:         authResponse.VerificationURI,
		VerificationURIComplete: authResponse.VerificationURIComplete,
	}
	if prompt != nil {
		prompt(p)
	} else {
		log.Printf("visit %s and enter code %s to authorize", p.VerificationURI, p.UserCode)
	}

	interval := time.Duration(authResponse.Interval) * time.Second
	if interval == 0 {
		interval = 5 * time.Second
	}

	token, err := rp.DeviceAccessToken(ctx, authResponse.DeviceCode, interval, relyingParty)
	if err != nil {
		return State{}, fmt.Errorf("device authorization failed: %w", err)
	}

	creds := &Credentials{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}
	if claims, err := ParseClaims(token.AccessToken); err == nil {
		creds.Subject = claimString(claims, "sub")
	}

	if err := a.store.SaveCredentials(creds); err != nil {
		return State{}, fmt.Errorf("persist credentials: %w", err)
	}

	state := a.stateFor(creds)
	a.emit(Event{Type: EventLogin, State: state})
	return state, nil
}

// LoginClientCredentials authenticates a machine principal using the OAuth2
// client credentials flow.
func (a *Adapter) LoginClientCredentials(ctx context.Context, clientID, clientSecret string) (State, error) {
	relyingParty, err := a.relyingParty(ctx)
	if err != nil {
		return State{}, err
	}

	ccConfig := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     relyingParty.OAuthConfig().Endpoint.TokenURL,
		Scopes:       a.scopes(),
	}

	token, err := ccConfig.Token(ctx)
	if err != nil {
		return State{}, fmt.Errorf("exchange client credentials: %w", err)
	}

	creds := &Credentials{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		Subject:      clientID,
	}
	if err := a.store.SaveCredentials(creds); err != nil {
		return State{}, fmt.Errorf("persist credentials: %w", err)
	}

	state := a.stateFor(creds)
	a.emit(Event{Type: EventLogin, State: state})
	return state, nil
}

// Logout clears stored credentials and emits a logout event.
func (a *Adapter) Logout() error {
	if err := a.store.DeleteCredentials(); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	a.emit(Event{Type: EventLogout, State: State{}})
	return nil
}

// Token returns a valid access token, refreshing it when expiry is within
// the configured skew. An expired token that cannot be refreshed yields
// ErrReloginRequired exactly once per expiry, after an expiry event.
func (a *Adapter) Token(ctx context.Context) (string, error) {
	creds, err := a.store.LoadCredentials()
	if err != nil {
		if errors.Is(err, ErrNotLoggedIn) {
			return "", ErrNotAuthenticated
		}
		return "", err
	}

	if !creds.ExpiresWithin(a.refreshSkew) {
		return creds.AccessToken, nil
	}

	if creds.RefreshToken == "" {
		if creds.IsExpired() {
			a.emit(Event{Type: EventExpiry, State: State{}})
			return "", ErrReloginRequired
		}
		// Near expiry but not refreshable: hand out the remaining validity.
		return creds.AccessToken, nil
	}

	refreshed, refreshErr := a.refresh(ctx, creds.RefreshToken)
	if refreshErr != nil {
		if creds.IsExpired() {
			a.emit(Event{Type: EventExpiry, State: State{}})
			return "", fmt.Errorf("%w: %v", ErrReloginRequired, refreshErr)
		}
		log.Printf("token refresh failed, using remaining validity: %v", refreshErr)
		return creds.AccessToken, nil
	}

	if refreshed.Subject == "" {
		refreshed.Subject = creds.Subject
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = creds.RefreshToken
	}
	if err := a.store.SaveCredentials(refreshed); err != nil {
		return "", fmt.Errorf("persist refreshed credentials: %w", err)
	}

	a.emit(Event{Type: EventRefresh, State: a.stateFor(refreshed)})
	return refreshed.AccessToken, nil
}

// TokenSource adapts the adapter into an oauth2.TokenSource.
func (a *Adapter) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &adapterTokenSource{adapter: a, ctx: ctx}
}

type adapterTokenSource struct {
	adapter *Adapter
	ctx     context.Context
}

func (s *adapterTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.adapter.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	creds, err := s.adapter.store.LoadCredentials()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: token,
		TokenType:   creds.TokenType,
		Expiry:      creds.ExpiresAt,
	}, nil
}

// State returns the current authentication state.
func (a *Adapter) State() State {
	creds, err := a.store.LoadCredentials()
	if err != nil || creds == nil {
		return State{}
	}
	return a.stateFor(creds)
}

// Claims returns the parsed claims of the current access token.
func (a *Adapter) Claims() (map[string]any, error) {
	creds, err := a.store.LoadCredentials()
	if err != nil {
		if errors.Is(err, ErrNotLoggedIn) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	return ParseClaims(creds.AccessToken)
}

// ProviderRoles returns the provider role strings of the current token.
// An unauthenticated adapter yields an empty list.
func (a *Adapter) ProviderRoles() []string {
	claims, err := a.Claims()
	if err != nil {
		return nil
	}
	roles, err := ExtractProviderRoles(claims, a.cfg.RolesClaim, a.cfg.RolesClaimPath)
	if err != nil {
		log.Printf("extract provider roles: %v", err)
		return nil
	}
	return roles
}

// Profile fetches the user profile from the provider's userinfo endpoint.
func (a *Adapter) Profile(ctx context.Context) (*oidc.UserInfo, error) {
	relyingParty, err := a.relyingParty(ctx)
	if err != nil {
		return nil, err
	}
	token, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	state := a.State()
	info, err := rp.Userinfo[*oidc.UserInfo](ctx, token, oidc.BearerToken, state.Subject, relyingParty)
	if err != nil {
		return nil, fmt.Errorf("fetch user profile: %w", err)
	}
	return info, nil
}

// SubscribeState registers for authentication events. Call the cancel func
// when done.
func (a *Adapter) SubscribeState() (<-chan Event, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.next
	a.next++
	ch := make(chan Event, 8)
	a.subs[id] = ch
	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subs, id)
	}
}

func (a *Adapter) stateFor(creds *Credentials) State {
	state := State{
		Authenticated: !creds.IsExpired(),
		Subject:       creds.Subject,
		ExpiresAt:     creds.ExpiresAt,
	}
	claims, err := ParseClaims(creds.AccessToken)
	if err != nil {
		return state
	}
	state.Email = claimString(claims, "email")
	state.Name = claimString(claims, "name")
	if roles, err := ExtractProviderRoles(claims, a.cfg.RolesClaim, a.cfg.RolesClaimPath); err == nil {
		state.ProviderRoles = roles
	}
	return state
}

func (a *Adapter) emit(event Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- event:
		default:
			// Drop when the subscriber is saturated; state transitions are
			// idempotent and the next event carries current state.
		}
	}
}

// refreshViaProvider exchanges the refresh token at the provider's token
// endpoint, following the discovery-based OAuth config.
func (a *Adapter) refreshViaProvider(ctx context.Context, refreshToken string) (*Credentials, error) {
	relyingParty, err := a.relyingParty(ctx)
	if err != nil {
		return nil, err
	}

	tokenSource := relyingParty.OAuthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	return &Credentials{
		AccessToken:  newToken.AccessToken,
		TokenType:    newToken.TokenType,
		RefreshToken: newToken.RefreshToken,
		ExpiresAt:    newToken.Expiry,
	}, nil
}
