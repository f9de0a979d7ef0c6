package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("a", []byte("1")))
	value, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), value)

	// Mutating the returned slice must not affect the stored value.
	value[0] = 'x'
	again, _, _ := s.Get("a")
	assert.Equal(t, []byte("1"), again)

	require.NoError(t, s.Delete("a"))
	_, ok, _ = s.Get("a")
	assert.False(t, ok)
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Set("theme", []byte(`"dark"`)))

	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	value, ok, err := s2.Get("theme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"dark"`, string(value))

	require.NoError(t, s2.Clear())
	_, ok, err = s2.Get("theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNamespacedIsolation(t *testing.T) {
	base := NewMemoryStore()
	prefs := Namespaced(base, "prefs")
	roles := Namespaced(base, "roles")

	require.NoError(t, prefs.Set("lang", []byte(`"de"`)))
	require.NoError(t, roles.Set("lang", []byte(`"en"`)))

	v, ok, _ := prefs.Get("lang")
	require.True(t, ok)
	assert.Equal(t, `"de"`, string(v))

	keys, err := roles.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"lang"}, keys)

	require.NoError(t, prefs.Clear())
	_, ok, _ = prefs.Get("lang")
	assert.False(t, ok)
	_, ok, _ = roles.Get("lang")
	assert.True(t, ok, "clearing one namespace must not touch another")
}

func TestJSONHelpers(t *testing.T) {
	s := NewMemoryStore()

	type doc struct {
		Version int    `json:"version"`
		Name    string `json:"name"`
	}

	require.NoError(t, SetJSON(s, "doc", doc{Version: 2, Name: "jafr"}))

	var got doc
	require.NoError(t, GetJSON(s, "doc", &got))
	assert.Equal(t, doc{Version: 2, Name: "jafr"}, got)

	err := GetJSON(s, "absent", &got)
	assert.ErrorIs(t, err, ErrNotFound)
}
