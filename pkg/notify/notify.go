// Package notify carries user-facing notification state: transient toasts
// and persistent banners. It replaces the message-service subjects of the
// web shell with a subscription registry; publishers never block on slow
// consumers.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity classifies a notification.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Kind distinguishes transient toasts from persistent banners.
type Kind string

const (
	KindToast  Kind = "toast"
	KindBanner Kind = "banner"
)

// Notification is a single user-facing message.
type Notification struct {
	ID       string    `json:"id"`
	Severity Severity  `json:"severity"`
	Kind     Kind      `json:"kind"`
	Summary  string    `json:"summary"`
	Detail   string    `json:"detail,omitempty"`
	Time     time.Time `json:"time"`
}

const subscriberBuffer = 16

// Center publishes notifications and implements the server-error escalation
// policy: once Threshold qualifying errors occur inside Window, individual
// toasts give way to one persistent banner until it is dismissed.
type Center struct {
	threshold int
	window    time.Duration
	now       func() time.Time

	mu         sync.Mutex
	subs       map[int]chan Notification
	nextSub    int
	errorTimes []time.Time
	bannerID   string
}

// Option customises Center construction.
type Option func(*Center)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Center) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCenter creates a Center escalating after threshold qualifying errors
// within window.
func NewCenter(threshold int, window time.Duration, opts ...Option) *Center {
	c := &Center{
		threshold: threshold,
		window:    window,
		now:       time.Now,
		subs:      make(map[int]chan Notification),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers a consumer. The channel is buffered; when a consumer
// falls behind, the oldest pending notification is dropped rather than
// blocking the publisher.
func (c *Center) Subscribe() (<-chan Notification, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan Notification, subscriberBuffer)
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Toast publishes a transient notification.
func (c *Center) Toast(severity Severity, summary, detail string) Notification {
	n := c.build(severity, KindToast, summary, detail)
	c.mu.Lock()
	c.publishLocked(n)
	c.mu.Unlock()
	return n
}

// Banner publishes a persistent notification.
func (c *Center) Banner(severity Severity, summary, detail string) Notification {
	n := c.build(severity, KindBanner, summary, detail)
	c.mu.Lock()
	c.publishLocked(n)
	c.mu.Unlock()
	return n
}

// ReportServerError feeds the escalation policy. Below the threshold each
// error surfaces as an individual error toast. The Nth error within the
// window escalates to a banner; while that banner is active, further reports
// are swallowed.
func (c *Center) ReportServerError(summary, detail string) (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bannerID != "" {
		return Notification{}, false
	}

	now := c.now()
	c.pruneLocked(now)
	c.errorTimes = append(c.errorTimes, now)

	if len(c.errorTimes) >= c.threshold {
		banner := c.build(SeverityError, KindBanner, summary, detail)
		c.bannerID = banner.ID
		c.publishLocked(banner)
		return banner, true
	}

	toast := c.build(SeverityError, KindToast, summary, detail)
	c.publishLocked(toast)
	return toast, true
}

// Dismiss retires a notification. Dismissing the active escalation banner
// re-arms toast delivery and resets the error count.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != "" && id == c.bannerID {
		c.bannerID = ""
		c.errorTimes = nil
	}
}

// BannerActive reports whether the escalation banner is currently shown.
func (c *Center) BannerActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bannerID != ""
}

func (c *Center) build(severity Severity, kind Kind, summary, detail string) Notification {
	return Notification{
		ID:       uuid.NewString(),
		Severity: severity,
		Kind:     kind,
		Summary:  summary,
		Detail:   detail,
		Time:     c.now(),
	}
}

func (c *Center) pruneLocked(now time.Time) {
	cutoff := now.Add(-c.window)
	kept := c.errorTimes[:0]
	for _, t := range c.errorTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.errorTimes = kept
}

func (c *Center) publishLocked(n Notification) {
	for _, ch := range c.subs {
		select {
		case ch <- n:
		default:
			// Full buffer: drop the oldest entry and retry once.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- n:
			default:
			}
		}
	}
}
