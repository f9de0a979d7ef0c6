// Package envelope consumes the REST response envelope convention used by
// the jafr backends. Two formats are in circulation and both are supported:
//
//	current: {"meta": {"session", "stage", "version", "timestamp",
//	          "cacheValidThru"?, "error"?}, "data": ..., "errors"?: [...]}
//	legacy:  {"status": 1, "result": ..., "session": "...", "message"?: "..."}
//
// The package only unwraps; it never defines the envelope.
package envelope

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which envelope format a response used.
type Kind string

const (
	// KindCurrent is the {meta,data} format.
	KindCurrent Kind = "current"
	// KindLegacy is the {status,result} format.
	KindLegacy Kind = "legacy"
	// KindNone means the body is not enveloped and passes through as-is.
	KindNone Kind = "none"
)

// Meta carries per-response metadata. It is transient state, replaced on
// every enveloped response.
type Meta struct {
	SessionID      string `json:"session,omitempty"`
	Stage          string `json:"stage,omitempty"`
	Version        string `json:"version,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
	CacheValidThru string `json:"cacheValidThru,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Unwrapped is the result of peeling an envelope off a response body.
type Unwrapped struct {
	Kind    Kind
	Payload json.RawMessage
	Meta    Meta
	// Errors are messages embedded in the envelope by the server.
	Errors []string
}

type currentEnvelope struct {
	Meta   *Meta           `json:"meta"`
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type legacyEnvelope struct {
	Status  *int            `json:"status"`
	Result  json.RawMessage `json:"result"`
	Session string          `json:"session"`
	Message string          `json:"message"`
}

const legacyStatusOK = 1

// Detect reports the envelope format of body without fully unwrapping it.
func Detect(body []byte) Kind {
	var probe struct {
		Meta   json.RawMessage `json:"meta"`
		Data   json.RawMessage `json:"data"`
		Status json.RawMessage `json:"status"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return KindNone
	}
	if probe.Meta != nil && probe.Data != nil {
		return KindCurrent
	}
	if probe.Status != nil && probe.Result != nil {
		return KindLegacy
	}
	return KindNone
}

// Unwrap extracts the payload and metadata from body. Non-enveloped bodies
// come back unchanged with KindNone. A JSON body that is not an object is
// never treated as enveloped.
func Unwrap(body []byte) (Unwrapped, error) {
	switch Detect(body) {
	case KindCurrent:
		return unwrapCurrent(body)
	case KindLegacy:
		return unwrapLegacy(body)
	default:
		return Unwrapped{Kind: KindNone, Payload: body}, nil
	}
}

func unwrapCurrent(body []byte) (Unwrapped, error) {
	var env currentEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Unwrapped{}, fmt.Errorf("parse response envelope: %w", err)
	}

	out := Unwrapped{Kind: KindCurrent, Payload: env.Data}
	if env.Meta != nil {
		out.Meta = *env.Meta
		if env.Meta.Error != "" {
			out.Errors = append(out.Errors, env.Meta.Error)
		}
	}
	out.Errors = append(out.Errors, decodeErrors(env.Errors)...)
	return out, nil
}

func unwrapLegacy(body []byte) (Unwrapped, error) {
	var env legacyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Unwrapped{}, fmt.Errorf("parse legacy response envelope: %w", err)
	}

	out := Unwrapped{
		Kind:    KindLegacy,
		Payload: env.Result,
		Meta:    Meta{SessionID: env.Session},
	}
	if env.Status != nil && *env.Status != legacyStatusOK && env.Message != "" {
		out.Errors = append(out.Errors, env.Message)
	}
	return out, nil
}

// decodeErrors accepts the shapes servers have been seen to emit:
// ["msg"], [{"message":"msg"}], or "msg".
func decodeErrors(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var asStrings []string
	if err := json.Unmarshal(raw, &asStrings); err == nil {
		return asStrings
	}

	var asObjects []struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &asObjects); err == nil {
		out := make([]string, 0, len(asObjects))
		for _, o := range asObjects {
			if o.Message != "" {
				out = append(out, o.Message)
			}
		}
		return out
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil && asString != "" {
		return []string{asString}
	}

	return nil
}
