package envelope

import (
	"sync"
	"sync/atomic"
)

// MetaTracker holds the metadata of the most recent enveloped response.
// It is a single current-value stream: Current never blocks, and subscribers
// receive each replacement.
type MetaTracker struct {
	current atomic.Value // holds Meta

	mu   sync.Mutex
	subs map[int]chan Meta
	next int
}

// NewMetaTracker creates an empty tracker.
func NewMetaTracker() *MetaTracker {
	t := &MetaTracker{subs: make(map[int]chan Meta)}
	t.current.Store(Meta{})
	return t
}

// Current returns the most recently recorded metadata.
func (t *MetaTracker) Current() Meta {
	return t.current.Load().(Meta)
}

// Record replaces the current metadata and notifies subscribers. Subscribers
// that have not drained their previous value only see the newest one.
func (t *MetaTracker) Record(meta Meta) {
	t.current.Store(meta)

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		select {
		case <-ch:
		default:
		}
		ch <- meta
	}
}

// Subscribe registers for metadata replacements. Call the cancel func when
// done.
func (t *MetaTracker) Subscribe() (<-chan Meta, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	ch := make(chan Meta, 1)
	t.subs[id] = ch
	return ch, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}
