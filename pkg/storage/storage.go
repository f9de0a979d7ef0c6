// Package storage provides the key-value stores backing preferences,
// cached role mappings, and developer overrides. Two scopes exist, mirroring
// the two lifetimes consumers rely on: process-scoped (MemoryStore) and
// durable (FileStore).
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by GetJSON when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a minimal key-value contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the raw value and whether the key exists.
	Get(key string) ([]byte, bool, error)
	// Set writes the value, replacing any previous one.
	Set(key string, value []byte) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key string) error
	// Clear removes every key in the store's scope.
	Clear() error
	// Keys lists all keys currently present.
	Keys() ([]string, error)
}

// GetJSON loads and unmarshals the value at key into out.
// Returns ErrNotFound when the key is absent.
func GetJSON(s Store, key string, out any) error {
	data, ok, err := s.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode stored value %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals v and stores it at key.
func SetJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", key, err)
	}
	return s.Set(key, data)
}

// Namespaced wraps a Store so every key is transparently prefixed. Consumers
// share one underlying store without colliding on key names.
func Namespaced(s Store, prefix string) Store {
	return &namespaced{inner: s, prefix: prefix + "."}
}

type namespaced struct {
	inner  Store
	prefix string
}

func (n *namespaced) Get(key string) ([]byte, bool, error) {
	return n.inner.Get(n.prefix + key)
}

func (n *namespaced) Set(key string, value []byte) error {
	return n.inner.Set(n.prefix+key, value)
}

func (n *namespaced) Delete(key string) error {
	return n.inner.Delete(n.prefix + key)
}

func (n *namespaced) Clear() error {
	keys, err := n.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := n.inner.Delete(n.prefix + key); err != nil {
			return err
		}
	}
	return nil
}

func (n *namespaced) Keys() ([]string, error) {
	all, err := n.inner.Keys()
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, key := range all {
		if len(key) > len(n.prefix) && key[:len(n.prefix)] == n.prefix {
			keys = append(keys, key[len(n.prefix):])
		}
	}
	return keys, nil
}
