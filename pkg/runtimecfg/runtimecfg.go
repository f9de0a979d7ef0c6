// Package runtimecfg loads the runtime environment configuration shared by
// all jafr applications. Configuration is layered: compiled defaults, then
// environment.json, then environment.local.json, then a developer override
// persisted in a session-scoped store, then process environment variables.
// Later layers win per field.
package runtimecfg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Janine65/jafr-ng-core/pkg/storage"
)

const (
	// EnvironmentFile is the base configuration document.
	EnvironmentFile = "environment.json"
	// LocalEnvironmentFile overlays EnvironmentFile for local development.
	LocalEnvironmentFile = "environment.local.json"

	// OverrideKey is the session-store key holding a developer override.
	OverrideKey = "runtimecfg.override"
)

// Well-known stage identifiers. Stage is free-form and compared exactly;
// these constants cover the standard deployments.
const (
	StageDev  = "DEV"
	StageTest = "TEST"
	StageProd = "PROD"
)

// Environment is the resolved runtime configuration.
type Environment struct {
	// Stage identifies the deployment environment (DEV, TEST, PROD).
	Stage string `json:"stage"`

	// APIURL is the base URL all relative API requests are rewritten to.
	APIURL string `json:"apiUrl"`

	// APIPrefix is a literal path prefix stripped from relative requests
	// when the backend is reached directly instead of through a proxy.
	// Empty means no stripping.
	APIPrefix string `json:"apiPrefix,omitempty"`

	// LogLevel controls developer logging verbosity (debug, info, warn, error).
	LogLevel string `json:"logLevel"`

	// Identity carries the connection parameters for the identity provider.
	Identity IdentityConfig `json:"identity"`

	// Errors configures error surfacing behaviour.
	Errors ErrorPolicy `json:"errors"`
}

// IdentityConfig holds identity-provider connection parameters. The provider
// protocol itself is delegated entirely to the OIDC client.
type IdentityConfig struct {
	Issuer       string   `json:"issuer"`
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret,omitempty"`
	RedirectURI  string   `json:"redirectUri,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`

	// RolesClaim names the token claim carrying provider role strings.
	RolesClaim string `json:"rolesClaim"`
	// RolesClaimPath extracts from nested claim objects, e.g. "name" for
	// [{"name":"app-admin"}]. Empty for flat string arrays.
	RolesClaimPath string `json:"rolesClaimPath,omitempty"`
}

// Configured reports whether identity-provider settings are present.
func (c IdentityConfig) Configured() bool {
	return c.Issuer != "" && c.ClientID != ""
}

// ErrorPolicy configures how transport errors surface to the user.
type ErrorPolicy struct {
	// BannerThreshold is the number of qualifying server errors within
	// BannerWindowMS that escalates from toasts to a persistent banner.
	BannerThreshold int `json:"bannerThreshold"`
	BannerWindowMS  int `json:"bannerWindowMs"`

	// Routes navigated to on specific failures.
	AccessDeniedRoute string `json:"accessDeniedRoute"`
	MismatchRoute     string `json:"mismatchRoute"`
	DefaultRoute      string `json:"defaultRoute"`
}

// Defaults returns the compiled baseline configuration.
func Defaults() Environment {
	return Environment{
		Stage:    StageDev,
		LogLevel: "info",
		Identity: IdentityConfig{
			Scopes:     []string{"openid", "profile", "email"},
			RolesClaim: "roles",
		},
		Errors: ErrorPolicy{
			BannerThreshold:   3,
			BannerWindowMS:    60000,
			AccessDeniedRoute: "/access-denied",
			MismatchRoute:     "/error",
			DefaultRoute:      "/",
		},
	}
}

// LoadOptions controls Load. The zero value reads from the current directory
// with no override store.
type LoadOptions struct {
	// Dir is the directory containing environment.json. Defaults to ".".
	Dir string
	// OverrideStore supplies the developer override layer when non-nil.
	OverrideStore storage.Store
	// SkipEnvVars disables the process environment variable layer (tests).
	SkipEnvVars bool
}

// Load resolves the layered environment configuration and validates the
// merged result. environment.json must exist; the remaining layers are
// optional.
func Load(opts LoadOptions) (Environment, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	env := Defaults()

	if err := overlayFile(&env, filepath.Join(dir, EnvironmentFile), true); err != nil {
		return Environment{}, err
	}
	if err := overlayFile(&env, filepath.Join(dir, LocalEnvironmentFile), false); err != nil {
		return Environment{}, err
	}

	if opts.OverrideStore != nil {
		if err := overlayStore(&env, opts.OverrideStore); err != nil {
			return Environment{}, err
		}
	}

	if !opts.SkipEnvVars {
		overlayEnvVars(&env)
	}

	if err := ValidateEnvironment(env); err != nil {
		return Environment{}, err
	}

	return env, nil
}

// StoreOverride persists a developer override document. The raw JSON is kept
// as-is so partial overrides only touch the fields they name.
func StoreOverride(store storage.Store, override json.RawMessage) error {
	var probe map[string]any
	if err := json.Unmarshal(override, &probe); err != nil {
		return fmt.Errorf("override is not a JSON object: %w", err)
	}
	return store.Set(OverrideKey, override)
}

// ClearOverride removes a stored developer override.
func ClearOverride(store storage.Store) error {
	return store.Delete(OverrideKey)
}

func overlayFile(env *Environment, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	// Unmarshalling into the existing struct merges: absent fields keep
	// their current values.
	if err := json.Unmarshal(data, env); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func overlayStore(env *Environment, store storage.Store) error {
	data, ok, err := store.Get(OverrideKey)
	if err != nil {
		return fmt.Errorf("read stored override: %w", err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, env); err != nil {
		return fmt.Errorf("parse stored override: %w", err)
	}
	return nil
}

func overlayEnvVars(env *Environment) {
	env.Stage = getEnv("JAFR_STAGE", env.Stage)
	env.APIURL = getEnv("JAFR_API_URL", env.APIURL)
	env.APIPrefix = getEnv("JAFR_API_PREFIX", env.APIPrefix)
	env.LogLevel = getEnv("JAFR_LOG_LEVEL", env.LogLevel)
	env.Identity.Issuer = getEnv("JAFR_IDP_ISSUER", env.Identity.Issuer)
	env.Identity.ClientID = getEnv("JAFR_IDP_CLIENT_ID", env.Identity.ClientID)
	env.Identity.ClientSecret = getEnv("JAFR_IDP_CLIENT_SECRET", env.Identity.ClientSecret)
	env.Identity.RedirectURI = getEnv("JAFR_IDP_REDIRECT_URI", env.Identity.RedirectURI)
	env.Errors.BannerThreshold = getEnvInt("JAFR_ERROR_BANNER_THRESHOLD", env.Errors.BannerThreshold)
	env.Errors.BannerWindowMS = getEnvInt("JAFR_ERROR_BANNER_WINDOW_MS", env.Errors.BannerWindowMS)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}
