package transport

import "sync"

// Navigator abstracts client-side navigation so the pipeline can send the
// user to an error route without knowing how the host application routes.
type Navigator interface {
	NavigateTo(route string, params map[string]string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(route string, params map[string]string)

func (fn NavigatorFunc) NavigateTo(route string, params map[string]string) {
	fn(route, params)
}

// Navigation is one recorded NavigateTo call.
type Navigation struct {
	Route  string
	Params map[string]string
}

// RecordingNavigator collects navigations instead of performing them. The
// CLI uses it to report where a browser shell would have gone; tests assert
// on it.
type RecordingNavigator struct {
	mu    sync.Mutex
	calls []Navigation
}

func (n *RecordingNavigator) NavigateTo(route string, params map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, Navigation{Route: route, Params: params})
}

// Calls returns a copy of the recorded navigations in order.
func (n *RecordingNavigator) Calls() []Navigation {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Navigation, len(n.calls))
	copy(out, n.calls)
	return out
}
