package runtimecfg

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Manager holds the current environment and lets consumers observe reloads.
// Reads are lock-free; reloads swap an immutable snapshot.
type Manager struct {
	opts    LoadOptions
	current atomic.Value // holds Environment

	mu   sync.Mutex
	subs map[int]chan Environment
	next int
}

// NewManager loads the environment once and returns a manager around it.
func NewManager(opts LoadOptions) (*Manager, error) {
	env, err := Load(opts)
	if err != nil {
		return nil, err
	}
	m := &Manager{opts: opts, subs: make(map[int]chan Environment)}
	m.current.Store(env)
	return m, nil
}

// Current returns the active environment snapshot.
func (m *Manager) Current() Environment {
	return m.current.Load().(Environment)
}

// Subscribe registers for reload notifications. The returned cancel func
// must be called when the consumer goes away.
func (m *Manager) Subscribe() (<-chan Environment, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	ch := make(chan Environment, 1)
	m.subs[id] = ch
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Reload re-resolves all layers and publishes the new snapshot.
// A failed reload keeps the previous environment active.
func (m *Manager) Reload() error {
	env, err := Load(m.opts)
	if err != nil {
		return err
	}
	m.current.Store(env)
	m.publish(env)
	return nil
}

// Watch reloads the environment whenever environment.json or
// environment.local.json changes on disk. Intended for development; blocks
// until ctx is done.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := m.opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		return err
	}

	watched := map[string]bool{
		EnvironmentFile:      true,
		LocalEnvironmentFile: true,
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Base(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := m.Reload(); err != nil {
				log.Printf("environment reload failed, keeping previous: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("environment watch error: %v", err)
		}
	}
}

func (m *Manager) publish(env Environment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		// Drop the stale snapshot if the subscriber has not drained yet.
		select {
		case <-ch:
		default:
		}
		ch <- env
	}
}
