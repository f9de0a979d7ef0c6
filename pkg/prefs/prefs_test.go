package prefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Janine65/jafr-ng-core/pkg/storage"
)

func TestLoadFreshStoreWritesDefaults(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewService(store)

	got, err := svc.Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)

	// The defaults are persisted, not just returned.
	var doc stored
	require.NoError(t, storage.GetJSON(store, prefsKey, &doc))
	assert.Equal(t, PreferencesVersion, doc.Version)
}

func TestSaveAndReload(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewService(store)

	want := Defaults()
	want.DarkMode = true
	want.Language = "fr"
	want.Scale = 1.25
	require.NoError(t, svc.Save(want))

	// A fresh service sees the persisted values.
	got, err := NewService(store).Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestVersionMismatchDiscardsWholesale(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, storage.SetJSON(store, prefsKey, stored{
		Version: PreferencesVersion - 1,
		Values:  map[string]any{"language": "it", "darkMode": true},
	}))

	got, err := NewService(store).Load()
	require.NoError(t, err)

	// No per-field carry-over: the old language is gone too.
	assert.Equal(t, Defaults(), got)

	var doc stored
	require.NoError(t, storage.GetJSON(store, prefsKey, &doc))
	assert.Equal(t, PreferencesVersion, doc.Version)
}

func TestPartialDocumentKeepsDefaultsForMissingFields(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, storage.SetJSON(store, prefsKey, stored{
		Version: PreferencesVersion,
		Values:  map[string]any{"darkMode": true},
	}))

	got, err := NewService(store).Load()
	require.NoError(t, err)
	assert.True(t, got.DarkMode)
	assert.Equal(t, Defaults().Language, got.Language)
	assert.Equal(t, Defaults().Scale, got.Scale)
}

func TestUpdateNotifiesSubscribers(t *testing.T) {
	svc := NewService(storage.NewMemoryStore())
	ch, cancel := svc.Subscribe()
	defer cancel()

	got, err := svc.Update(func(p *Preferences) { p.FontSize = 18 })
	require.NoError(t, err)
	assert.Equal(t, 18, got.FontSize)

	select {
	case published := <-ch:
		// Load-on-demand writes defaults first, the update follows.
		if published.FontSize != 18 {
			published = <-ch
		}
		assert.Equal(t, 18, published.FontSize)
	default:
		t.Fatal("expected a published preferences value")
	}
}

func TestResetReinstatesDefaults(t *testing.T) {
	svc := NewService(storage.NewMemoryStore())
	_, err := svc.Update(func(p *Preferences) { p.Theme = "custom" })
	require.NoError(t, err)

	got, err := svc.Reset()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)

	reloaded, err := svc.Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), reloaded)
}
