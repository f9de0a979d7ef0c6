package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapCurrentFormat(t *testing.T) {
	body := []byte(`{
		"meta": {
			"session": "s-123",
			"stage": "PROD",
			"version": "2.4.1",
			"timestamp": "2026-01-15T12:00:00Z",
			"cacheValidThru": "2026-01-15T12:05:00Z"
		},
		"data": {"x": 1}
	}`)

	got, err := Unwrap(body)
	require.NoError(t, err)
	assert.Equal(t, KindCurrent, got.Kind)
	assert.JSONEq(t, `{"x":1}`, string(got.Payload))
	assert.Equal(t, "s-123", got.Meta.SessionID)
	assert.Equal(t, "PROD", got.Meta.Stage)
	assert.Equal(t, "2.4.1", got.Meta.Version)
	assert.Equal(t, "2026-01-15T12:05:00Z", got.Meta.CacheValidThru)
	assert.Empty(t, got.Errors)
}

func TestUnwrapLegacyFormat(t *testing.T) {
	body := []byte(`{"status": 1, "result": {"y": 2}, "session": "abc"}`)

	got, err := Unwrap(body)
	require.NoError(t, err)
	assert.Equal(t, KindLegacy, got.Kind)
	assert.JSONEq(t, `{"y":2}`, string(got.Payload))
	assert.Equal(t, "abc", got.Meta.SessionID)
	assert.Empty(t, got.Errors)
}

func TestUnwrapLegacyErrorStatusSurfacesMessage(t *testing.T) {
	body := []byte(`{"status": 0, "result": null, "session": "abc", "message": "validation failed"}`)

	got, err := Unwrap(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"validation failed"}, got.Errors)
}

func TestUnwrapEmbeddedErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"string array", `{"meta":{}, "data":null, "errors":["a","b"]}`, []string{"a", "b"}},
		{"object array", `{"meta":{}, "data":null, "errors":[{"message":"a"}]}`, []string{"a"}},
		{"single string", `{"meta":{}, "data":null, "errors":"a"}`, []string{"a"}},
		{"meta error field", `{"meta":{"error":"a"}, "data":null}`, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unwrap([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Errors)
		})
	}
}

func TestUnwrapPassesThroughPlainBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"plain object", `{"x": 1}`},
		{"array", `[1,2,3]`},
		{"non-json", `hello`},
		{"meta without data sibling", `{"meta": {"stage": "DEV"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unwrap([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, KindNone, got.Kind)
			assert.Equal(t, tt.body, string(got.Payload))
		})
	}
}

func TestMetaTrackerHoldsLatestValue(t *testing.T) {
	tracker := NewMetaTracker()
	assert.Equal(t, Meta{}, tracker.Current())

	ch, cancel := tracker.Subscribe()
	defer cancel()

	tracker.Record(Meta{SessionID: "one", Stage: "DEV"})
	tracker.Record(Meta{SessionID: "two", Stage: "DEV"})

	assert.Equal(t, "two", tracker.Current().SessionID)

	// Undrained subscribers see only the newest value.
	got := <-ch
	assert.Equal(t, "two", got.SessionID)
}
