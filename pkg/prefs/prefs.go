// Package prefs persists per-user presentation preferences. The stored
// document is versioned: when the compiled layout of Preferences changes in
// an incompatible way, PreferencesVersion is bumped and every stored
// document from an older version is discarded wholesale in favour of
// defaults. There is no per-field migration.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/Janine65/jafr-ng-core/pkg/storage"
)

// PreferencesVersion is bumped whenever the stored shape changes
// incompatibly. Older stored documents are replaced by defaults.
const PreferencesVersion = 3

const prefsKey = "prefs.preferences"

// Preferences holds the user's presentation choices.
type Preferences struct {
	Language     string  `json:"language" mapstructure:"language"`
	Theme        string  `json:"theme" mapstructure:"theme"`
	DarkMode     bool    `json:"darkMode" mapstructure:"darkMode"`
	Scale        float64 `json:"scale" mapstructure:"scale"`
	MenuLayout   string  `json:"menuLayout" mapstructure:"menuLayout"`
	PrimaryColor string  `json:"primaryColor" mapstructure:"primaryColor"`
	Surface      string  `json:"surface" mapstructure:"surface"`
	FontSize     int     `json:"fontSize" mapstructure:"fontSize"`
}

// Defaults returns the preferences a fresh profile starts with.
func Defaults() Preferences {
	return Preferences{
		Language:     "de",
		Theme:        "aura-light",
		DarkMode:     false,
		Scale:        1.0,
		MenuLayout:   "static",
		PrimaryColor: "blue",
		Surface:      "slate",
		FontSize:     14,
	}
}

// stored is the on-disk document: the preferences plus the version they
// were written under.
type stored struct {
	Version int            `json:"version"`
	Values  map[string]any `json:"values"`
}

// Service loads, persists, and broadcasts preference changes.
type Service struct {
	store storage.Store

	mu      sync.Mutex
	current Preferences
	loaded  bool
	subs    map[int]chan Preferences
	nextSub int
}

// NewService creates a preferences service on top of the given store,
// typically a user-scoped FileStore.
func NewService(store storage.Store) *Service {
	return &Service{
		store: store,
		subs:  make(map[int]chan Preferences),
	}
}

// Load returns the stored preferences, falling back to defaults when
// nothing is stored, the document cannot be decoded, or its version does
// not match PreferencesVersion. In every fallback case the defaults are
// written back so the store is consistent afterwards.
func (s *Service) Load() (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLocked()
}

func (s *Service) loadLocked() (Preferences, error) {
	if s.loaded {
		return s.current, nil
	}

	var doc stored
	err := storage.GetJSON(s.store, prefsKey, &doc)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return s.resetLocked()
	case err != nil:
		log.Printf("prefs: discarding unreadable preferences: %v", err)
		return s.resetLocked()
	case doc.Version != PreferencesVersion:
		log.Printf("prefs: stored version %d != %d, resetting to defaults", doc.Version, PreferencesVersion)
		return s.resetLocked()
	}

	prefs := Defaults()
	if err := mapstructure.Decode(doc.Values, &prefs); err != nil {
		log.Printf("prefs: discarding undecodable preferences: %v", err)
		return s.resetLocked()
	}

	s.current = prefs
	s.loaded = true
	return prefs, nil
}

// Save persists p and notifies subscribers.
func (s *Service) Save(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(p)
}

// Update applies fn to the current preferences and persists the result.
func (s *Service) Update(fn func(*Preferences)) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.loadLocked(); err != nil {
		return Preferences{}, err
	}

	next := s.current
	fn(&next)
	if err := s.saveLocked(next); err != nil {
		return Preferences{}, err
	}
	return next, nil
}

// Reset discards stored preferences and reinstates defaults.
func (s *Service) Reset() (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

// Subscribe delivers every saved preferences value. Slow subscribers lose
// intermediate values, never block writers.
func (s *Service) Subscribe() (<-chan Preferences, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Preferences, 4)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Service) resetLocked() (Preferences, error) {
	defaults := Defaults()
	if err := s.saveLocked(defaults); err != nil {
		return Preferences{}, err
	}
	return defaults, nil
}

func (s *Service) saveLocked(p Preferences) error {
	values, err := toMap(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	doc := stored{Version: PreferencesVersion, Values: values}
	if err := storage.SetJSON(s.store, prefsKey, doc); err != nil {
		return fmt.Errorf("persist preferences: %w", err)
	}

	s.current = p
	s.loaded = true
	for _, ch := range s.subs {
		select {
		case ch <- p:
		default:
		}
	}
	return nil
}

func toMap(p Preferences) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
