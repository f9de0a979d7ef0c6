// Package app wires the shared collaborators every jafrctl command needs:
// resolved runtime configuration, the credential store, the session
// adapter, the role resolver, and an HTTP client running the full
// interceptor pipeline.
package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Janine65/jafr-ng-core/pkg/envelope"
	"github.com/Janine65/jafr-ng-core/pkg/notify"
	"github.com/Janine65/jafr-ng-core/pkg/roles"
	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
	"github.com/Janine65/jafr-ng-core/pkg/session"
	"github.com/Janine65/jafr-ng-core/pkg/storage"
	"github.com/Janine65/jafr-ng-core/pkg/transport"
)

const appName = "jafrctl"

// App bundles the configured collaborators for one invocation.
type App struct {
	Env       runtimecfg.Environment
	Store     storage.Store
	Session   *session.Adapter
	Resolver  *roles.Resolver
	Client    *http.Client
	Notify    *notify.Center
	Tracker   *envelope.MetaTracker
	Navigator *transport.RecordingNavigator
	Log       *transport.RequestLog
}

// Load builds the app from the environment files in configDir and the
// user-scoped credential store.
func Load(configDir string) (*App, error) {
	store, err := storage.NewUserFileStore(appName)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	env, err := runtimecfg.Load(runtimecfg.LoadOptions{
		Dir:           configDir,
		OverrideStore: store,
	})
	if err != nil {
		return nil, fmt.Errorf("load runtime configuration: %w", err)
	}

	adapter := session.NewAdapter(env.Identity, session.NewStoreBackedCredentials(store))

	center := notify.NewCenter(env.Errors.BannerThreshold, time.Duration(env.Errors.BannerWindowMS)*time.Millisecond)
	tracker := envelope.NewMetaTracker()
	nav := &transport.RecordingNavigator{}
	logStore := transport.NewRequestLog(0, 0)

	client := transport.NewClient(transport.Pipeline{
		Env:       env,
		Tokens:    adapter,
		Notify:    center,
		Tracker:   tracker,
		Navigator: nav,
		Log:       logStore,
	})

	resolver := roles.NewResolver(
		roles.NewHTTPSource(env.APIURL, roles.WithHTTPClient(client)),
		roles.WithCacheStore(store),
	)

	return &App{
		Env:       env,
		Store:     store,
		Session:   adapter,
		Resolver:  resolver,
		Client:    client,
		Notify:    center,
		Tracker:   tracker,
		Navigator: nav,
		Log:       logStore,
	}, nil
}
