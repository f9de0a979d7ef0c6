// Package transport composes the outbound HTTP pipeline every jafr app
// sends its API traffic through: base-URL rewriting, bearer injection,
// envelope unwrapping, error escalation, and an in-memory request log for
// the developer panel. Each concern is an http.RoundTripper decorator and
// the composition order is fixed.
package transport

import (
	"net/http"
	"time"

	"github.com/Janine65/jafr-ng-core/pkg/envelope"
	"github.com/Janine65/jafr-ng-core/pkg/notify"
	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
)

// Decorator wraps a RoundTripper with one pipeline concern.
type Decorator func(http.RoundTripper) http.RoundTripper

type roundTripFunc func(*http.Request) (*http.Response, error)

func (fn roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return fn(req)
}

// Chain applies decorators so that the first one sees the request first and
// the response last. A nil base falls back to http.DefaultTransport.
func Chain(base http.RoundTripper, decorators ...Decorator) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(decorators) - 1; i >= 0; i-- {
		rt = decorators[i](rt)
	}
	return rt
}

// Pipeline bundles the collaborators of the standard chain.
type Pipeline struct {
	Env       runtimecfg.Environment
	Tokens    TokenProvider
	Notify    *notify.Center
	Tracker   *envelope.MetaTracker
	Navigator Navigator
	Log       *RequestLog

	// Base is the innermost RoundTripper; http.DefaultTransport when nil.
	Base http.RoundTripper
}

// NewClient builds an http.Client running the full chain in its fixed
// order: rewrite, auth, envelope, errors, debug log. Collaborators left nil
// disable their stage.
func NewClient(p Pipeline) *http.Client {
	decorators := []Decorator{
		Rewrite(p.Env),
	}
	if p.Tokens != nil {
		decorators = append(decorators, Auth(p.Tokens, p.Env))
	}
	decorators = append(decorators,
		Envelope(p.Tracker, p.Notify, p.Navigator, p.Env),
		Errors(p.Notify, p.Navigator, p.Env),
	)
	if p.Log != nil {
		decorators = append(decorators, DebugLog(p.Log, p.Env))
	}
	return &http.Client{
		Transport: Chain(p.Base, decorators...),
		Timeout:   60 * time.Second,
	}
}

// cloneRequest makes a shallow copy with a deep-copied URL and header, so
// decorators never mutate the caller's request.
func cloneRequest(req *http.Request) *http.Request {
	out := req.Clone(req.Context())
	return out
}
