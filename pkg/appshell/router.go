package appshell

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/Janine65/jafr-ng-core/pkg/guard"
	"github.com/Janine65/jafr-ng-core/pkg/prefs"
	"github.com/Janine65/jafr-ng-core/pkg/roles"
	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
	"github.com/Janine65/jafr-ng-core/pkg/transport"
)

// RouterOptions controls the construction of the shell HTTP surface.
// The zero value is valid; sensible defaults are applied where fields are
// not set.
type RouterOptions struct {
	Env      runtimecfg.Environment
	Shell    *Shell
	Resolver *roles.Resolver
	Prefs    *prefs.Service
	Log      *transport.RequestLog

	// Guards wrap the /api/shell routes, typically guard.Auth plus a
	// role gate. Unset means the shell endpoints are open, which only
	// makes sense in tests and local tooling.
	Guards []func(http.Handler) http.Handler

	CORSOptions   *cors.Options
	Middleware    []func(http.Handler) http.Handler
	HealthHandler http.HandlerFunc
	ExtraRoutes   func(chi.Router)
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:4200",
			"http://127.0.0.1:4200",
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", transport.SuppressErrorToastHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy, and
// the shell endpoints mounted.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	r.Route("/api/shell", func(r chi.Router) {
		for _, g := range opts.Guards {
			if g != nil {
				r.Use(g)
			}
		}

		if opts.Shell != nil {
			r.Get("/config", handleShellConfig(opts.Shell))
			if opts.Resolver != nil {
				r.Get("/menu", handleMenu(opts.Shell, opts.Resolver, opts.Env))
			}
		}
		if opts.Resolver != nil {
			r.Get("/roles", handleRoles(opts.Resolver))
		}
		if opts.Prefs != nil {
			r.Get("/preferences", handleGetPreferences(opts.Prefs))
			r.Put("/preferences", handlePutPreferences(opts.Prefs))
		}
		if opts.Log != nil && opts.Env.Stage != runtimecfg.StageProd {
			r.Get("/debug/requests", handleDebugRequests(opts.Log))
		}
	})

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r
}

// NewH2CHandler wraps the shell router with an h2c server so development
// front ends can speak HTTP/2 over cleartext.
func NewH2CHandler(opts RouterOptions) http.Handler {
	return h2c.NewHandler(NewRouter(opts), &http2.Server{})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("appshell: write response: %v", err)
	}
}

func handleShellConfig(shell *Shell) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, shell.State())
	}
}

// viewerContext derives the visibility context from the authenticated
// principal. Unauthenticated viewers see only unguarded items.
func viewerContext(r *http.Request, resolver *roles.Resolver, env runtimecfg.Environment) VisibilityContext {
	ctx := VisibilityContext{Stage: env.Stage}
	principal, ok := guard.PrincipalFromContext(r.Context())
	if !ok {
		return ctx
	}
	ctx.Authenticated = true
	ctx.Roles = resolver.MapProviderRolesToInternal(principal.ProviderRoles)
	return ctx
}

func handleMenu(shell *Shell, resolver *roles.Resolver, env runtimecfg.Environment) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		menu := shell.MenuFor(viewerContext(r, resolver, env))
		if menu == nil {
			menu = []MenuItem{}
		}
		writeJSON(w, http.StatusOK, menu)
	}
}

func handleRoles(resolver *roles.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := guard.PrincipalFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusOK, []string{})
			return
		}
		granted := resolver.MapProviderRolesToInternal(principal.ProviderRoles)
		if granted == nil {
			granted = []string{}
		}
		writeJSON(w, http.StatusOK, granted)
	}
}

func handleGetPreferences(svc *prefs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Load()
		if err != nil {
			http.Error(w, "load preferences failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handlePutPreferences(svc *prefs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p prefs.Preferences
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid preferences document", http.StatusBadRequest)
			return
		}
		if err := svc.Save(p); err != nil {
			http.Error(w, "persist preferences failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleDebugRequests(logStore *transport.RequestLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := logStore.Entries()
		if entries == nil {
			entries = []transport.LogEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
