package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/Janine65/jafr-ng-core/pkg/storage"
)

// Credentials represents the authentication credentials obtained from the
// identity provider.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Subject      string    `json:"subject,omitempty"`
}

// IsExpired reports whether the access token has passed its expiry.
func (c *Credentials) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// ExpiresWithin reports whether the access token expires inside d.
func (c *Credentials) ExpiresWithin(d time.Duration) bool {
	return time.Now().Add(d).After(c.ExpiresAt)
}

// CredentialStore persists credentials between adapter instances.
type CredentialStore interface {
	SaveCredentials(*Credentials) error
	LoadCredentials() (*Credentials, error)
	DeleteCredentials() error
}

// ErrNotLoggedIn is returned by stores when no credentials are saved.
var ErrNotLoggedIn = errors.New("not logged in")

const credentialsKey = "session.credentials"

// StoreBackedCredentials adapts a storage.Store into a CredentialStore.
// Combined with storage.FileStore this matches the durable credential file
// a CLI expects; with storage.MemoryStore it is session-scoped.
type StoreBackedCredentials struct {
	store storage.Store
}

var _ CredentialStore = (*StoreBackedCredentials)(nil)

// NewStoreBackedCredentials wraps store.
func NewStoreBackedCredentials(store storage.Store) *StoreBackedCredentials {
	return &StoreBackedCredentials{store: store}
}

func (s *StoreBackedCredentials) SaveCredentials(creds *Credentials) error {
	if err := storage.SetJSON(s.store, credentialsKey, creds); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *StoreBackedCredentials) LoadCredentials() (*Credentials, error) {
	var creds Credentials
	if err := storage.GetJSON(s.store, credentialsKey, &creds); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return &creds, nil
}

func (s *StoreBackedCredentials) DeleteCredentials() error {
	return s.store.Delete(credentialsKey)
}
