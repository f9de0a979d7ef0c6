// Package appshell holds the application shell: header, menu, footer, and
// banner configuration, plus the HTTP surface that serves the shell state
// to the browser client. Layout rendering itself stays in the front end;
// this package owns the data the front end renders.
package appshell

import "sync"

// HeaderConfig configures the top bar.
type HeaderConfig struct {
	Title    string `json:"title"`
	LogoURL  string `json:"logoUrl,omitempty"`
	ShowUser bool   `json:"showUser"`
}

// FooterConfig configures the footer line.
type FooterConfig struct {
	Text    string `json:"text,omitempty"`
	Version string `json:"version,omitempty"`
	Visible bool   `json:"visible"`
}

// BannerConfig configures the persistent banner slot.
type BannerConfig struct {
	Enabled bool `json:"enabled"`
}

// State is one immutable snapshot of the shell.
type State struct {
	Header HeaderConfig `json:"header"`
	Menu   []MenuItem   `json:"menu"`
	Footer FooterConfig `json:"footer"`
	Banner BannerConfig `json:"banner"`
}

// Shell owns the current state and broadcasts changes.
type Shell struct {
	mu      sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int
}

// ShellOption mutates the shell state inside Apply.
type ShellOption func(*State)

// WithHeader replaces the header configuration.
func WithHeader(header HeaderConfig) ShellOption {
	return func(s *State) { s.Header = header }
}

// WithMenu replaces the full menu tree.
func WithMenu(items []MenuItem) ShellOption {
	return func(s *State) { s.Menu = items }
}

// WithFooter replaces the footer configuration.
func WithFooter(footer FooterConfig) ShellOption {
	return func(s *State) { s.Footer = footer }
}

// WithBanner replaces the banner configuration.
func WithBanner(banner BannerConfig) ShellOption {
	return func(s *State) { s.Banner = banner }
}

// NewShell creates a shell with the given initial options applied.
func NewShell(opts ...ShellOption) *Shell {
	s := &Shell{subs: make(map[int]chan State)}
	s.Apply(opts...)
	return s
}

// Apply mutates the state through the options and publishes the result.
func (s *Shell) Apply(opts ...ShellOption) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	for _, opt := range opts {
		opt(&next)
	}
	s.state = next

	for _, ch := range s.subs {
		select {
		case ch <- next:
		default:
		}
	}
	return next
}

// State returns the current snapshot.
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe delivers every applied state. Slow subscribers miss
// intermediate states, never block Apply.
func (s *Shell) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan State, 4)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// MenuFor filters the shell's menu tree for a viewer.
func (s *Shell) MenuFor(ctx VisibilityContext) []MenuItem {
	return MenuFor(s.State().Menu, ctx)
}
