// Package roles resolves the identity provider's opaque role strings into
// application-level roles. The mapping table comes from the backend once,
// is cached in a session-scoped store, and all lookups afterwards run
// against an immutable in-memory reverse index.
package roles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Janine65/jafr-ng-core/pkg/envelope"
)

// Wildcard in a role's ProviderRoles grants that role to every
// authenticated principal regardless of provider roles.
const Wildcard = "*"

// Role is an application-level permission derived from provider roles.
type Role struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	// ProviderRoles lists the provider role strings granting this role.
	ProviderRoles []string `json:"providerRoles"`
}

// FallbackRole is the built-in minimal role installed when the mapping
// table cannot be fetched. Role resolution never fails permanently.
var FallbackRole = Role{
	Name:          "user",
	DisplayName:   "User",
	Description:   "Built-in minimal role, granted when role mappings are unavailable",
	ProviderRoles: []string{Wildcard},
}

// Source fetches the role mapping table.
type Source interface {
	FetchRoles(ctx context.Context) ([]Role, error)
}

// HTTPSource fetches role mappings from the backend REST API, unwrapping the
// response envelope.
type HTTPSource struct {
	baseURL string
	path    string
	client  *http.Client
}

var _ Source = (*HTTPSource)(nil)

// HTTPSourceOption customises an HTTPSource.
type HTTPSourceOption func(*HTTPSource)

// WithHTTPClient overrides the HTTP client used for the fetch.
func WithHTTPClient(client *http.Client) HTTPSourceOption {
	return func(s *HTTPSource) {
		if client != nil {
			s.client = client
		}
	}
}

// WithPath overrides the role-mapping resource path (default /roles).
func WithPath(path string) HTTPSourceOption {
	return func(s *HTTPSource) {
		if path != "" {
			s.path = path
		}
	}
}

// NewHTTPSource creates a Source reading from baseURL.
func NewHTTPSource(baseURL string, opts ...HTTPSourceOption) *HTTPSource {
	s := &HTTPSource{
		baseURL: baseURL,
		path:    "/roles",
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) FetchRoles(ctx context.Context) ([]Role, error) {
	target, err := url.JoinPath(s.baseURL, s.path)
	if err != nil {
		return nil, fmt.Errorf("invalid role mapping URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build role mapping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch role mappings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("role mapping endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read role mapping response: %w", err)
	}

	unwrapped, err := envelope.Unwrap(body)
	if err != nil {
		return nil, err
	}
	if len(unwrapped.Errors) > 0 {
		return nil, fmt.Errorf("role mapping fetch failed: %s", unwrapped.Errors[0])
	}

	var fetched []Role
	if err := json.Unmarshal(unwrapped.Payload, &fetched); err != nil {
		return nil, fmt.Errorf("decode role mappings: %w", err)
	}
	return fetched, nil
}

// StaticSource serves a fixed role list. Useful for tests and applications
// that compile their mapping table in.
type StaticSource []Role

var _ Source = (StaticSource)(nil)

func (s StaticSource) FetchRoles(context.Context) ([]Role, error) {
	return append([]Role(nil), s...), nil
}
