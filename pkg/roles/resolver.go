package roles

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Janine65/jafr-ng-core/pkg/storage"
)

// cacheVersion invalidates stored snapshots when the cache format changes.
const cacheVersion = 2

// cacheKey is the session-store key holding the serialized snapshot.
const cacheKey = "roles.snapshot"

// loadTimeout bounds the network fetch. Loads run detached from the waiting
// caller's context: a caller navigating away does not cancel the fetch, the
// result still lands in shared state.
const loadTimeout = 15 * time.Second

// snapshot is an immutable view of the role mapping table plus its reverse
// index. Never modified after creation; the resolver swaps whole snapshots.
type snapshot struct {
	roles []Role
	// index maps provider role string → internal role names.
	index    map[string][]string
	fallback bool
}

func buildSnapshot(list []Role, fallback bool) *snapshot {
	index := make(map[string][]string)
	for _, role := range list {
		for _, provider := range role.ProviderRoles {
			index[provider] = append(index[provider], role.Name)
		}
	}
	return &snapshot{roles: append([]Role(nil), list...), index: index, fallback: fallback}
}

type cachedSnapshot struct {
	Version int    `json:"version"`
	Roles   []Role `json:"roles"`
}

// Resolver loads role mappings once and answers synchronous role lookups.
// Loading state is explicit and observable so guards and loading screens can
// wait for a bounded resolution event instead of polling.
type Resolver struct {
	source Source
	store  storage.Store // session-scoped snapshot cache, may be nil

	current atomic.Value // holds *snapshot
	loading atomic.Bool

	mu     sync.Mutex
	flight chan struct{} // non-nil while a load is in progress
	subs   map[int]chan bool
	next   int
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithCacheStore enables snapshot caching in the given session-scoped store.
func WithCacheStore(store storage.Store) ResolverOption {
	return func(r *Resolver) {
		r.store = store
	}
}

// NewResolver creates a resolver around source. Nothing is fetched until
// EnsureLoaded is called.
func NewResolver(source Source, opts ...ResolverOption) *Resolver {
	r := &Resolver{source: source, subs: make(map[int]chan bool)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) getSnapshot() *snapshot {
	value := r.current.Load()
	if value == nil {
		return nil
	}
	return value.(*snapshot)
}

// Loaded reports whether a snapshot (fetched, cached, or fallback) is active.
func (r *Resolver) Loaded() bool {
	return r.getSnapshot() != nil
}

// Loading reports whether a load is currently in flight.
func (r *Resolver) Loading() bool {
	return r.loading.Load()
}

// SubscribeLoading registers for loading-state transitions (true when a load
// starts, false when it settles).
func (r *Resolver) SubscribeLoading() (<-chan bool, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	ch := make(chan bool, 4)
	r.subs[id] = ch
	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// EnsureLoaded blocks until role mappings are available, starting a load if
// none is in flight. Concurrent callers share a single flight. The load
// itself never fails permanently: a fetch error installs the built-in
// fallback role. The only error returned is ctx expiring before the load
// settles — the load still completes in the background.
func (r *Resolver) EnsureLoaded(ctx context.Context) error {
	if r.Loaded() {
		return nil
	}

	r.mu.Lock()
	if r.getSnapshot() != nil {
		r.mu.Unlock()
		return nil
	}
	if r.flight == nil {
		r.flight = make(chan struct{})
		r.setLoadingLocked(true)
		go r.load(r.flight)
	}
	flight := r.flight
	r.mu.Unlock()

	select {
	case <-flight:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// load runs detached from any caller context.
func (r *Resolver) load(flight chan struct{}) {
	defer func() {
		r.mu.Lock()
		r.flight = nil
		r.setLoadingLocked(false)
		r.mu.Unlock()
		close(flight)
	}()

	if snap, ok := r.loadFromCache(); ok {
		r.current.Store(snap)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	list, err := r.source.FetchRoles(ctx)
	if err != nil {
		log.Printf("role mapping fetch failed, installing fallback role: %v", err)
		r.current.Store(buildSnapshot([]Role{FallbackRole}, true))
		return
	}

	r.current.Store(buildSnapshot(list, false))
	r.saveToCache(list)
}

// MapProviderRolesToInternal is a pure, synchronous lookup against the
// in-memory reverse index. The result is deduplicated and sorted, so it is
// deterministic and independent of the input order. Returns an empty list
// when no snapshot is loaded.
func (r *Resolver) MapProviderRolesToInternal(providerRoles []string) []string {
	snap := r.getSnapshot()
	if snap == nil {
		return []string{}
	}

	roleSet := make(map[string]struct{})
	for _, name := range snap.index[Wildcard] {
		roleSet[name] = struct{}{}
	}
	for _, provider := range providerRoles {
		for _, name := range snap.index[provider] {
			roleSet[name] = struct{}{}
		}
	}

	result := make([]string, 0, len(roleSet))
	for name := range roleSet {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasRole reports whether the provider roles grant the internal role.
func (r *Resolver) HasRole(internal string, providerRoles []string) bool {
	for _, name := range r.MapProviderRolesToInternal(providerRoles) {
		if name == internal {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the provider roles grant at least one of the
// internal roles.
func (r *Resolver) HasAnyRole(internal []string, providerRoles []string) bool {
	granted := r.MapProviderRolesToInternal(providerRoles)
	for _, want := range internal {
		for _, have := range granted {
			if want == have {
				return true
			}
		}
	}
	return false
}

// HasAllRoles reports whether the provider roles grant every internal role.
func (r *Resolver) HasAllRoles(internal []string, providerRoles []string) bool {
	granted := make(map[string]struct{})
	for _, name := range r.MapProviderRolesToInternal(providerRoles) {
		granted[name] = struct{}{}
	}
	for _, want := range internal {
		if _, ok := granted[want]; !ok {
			return false
		}
	}
	return true
}

// Roles returns the active role list. Empty until loaded.
func (r *Resolver) Roles() []Role {
	snap := r.getSnapshot()
	if snap == nil {
		return nil
	}
	return append([]Role(nil), snap.roles...)
}

// UsingFallback reports whether the active snapshot is the built-in fallback.
func (r *Resolver) UsingFallback() bool {
	snap := r.getSnapshot()
	if snap == nil {
		return false
	}
	return snap.fallback
}

// ClearCache drops the in-memory snapshot and the stored one, then reloads
// asynchronously. Lookups between clear and reload settle see an empty
// mapping.
func (r *Resolver) ClearCache() {
	if r.store != nil {
		if err := r.store.Delete(cacheKey); err != nil {
			log.Printf("clear cached role snapshot: %v", err)
		}
	}
	r.current.Store((*snapshot)(nil))

	go func() {
		if err := r.EnsureLoaded(context.Background()); err != nil {
			log.Printf("role reload after cache clear: %v", err)
		}
	}()
}

func (r *Resolver) loadFromCache() (*snapshot, bool) {
	if r.store == nil {
		return nil, false
	}
	var cached cachedSnapshot
	if err := storage.GetJSON(r.store, cacheKey, &cached); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("read cached role snapshot: %v", err)
		}
		return nil, false
	}
	if cached.Version != cacheVersion {
		// Format changed; discard and refetch.
		_ = r.store.Delete(cacheKey)
		return nil, false
	}
	return buildSnapshot(cached.Roles, false), true
}

func (r *Resolver) saveToCache(list []Role) {
	if r.store == nil {
		return
	}
	cached := cachedSnapshot{Version: cacheVersion, Roles: list}
	if err := storage.SetJSON(r.store, cacheKey, cached); err != nil {
		log.Printf("cache role snapshot: %v", err)
	}
}

func (r *Resolver) setLoadingLocked(loading bool) {
	r.loading.Store(loading)
	for _, ch := range r.subs {
		select {
		case ch <- loading:
		default:
		}
	}
}
