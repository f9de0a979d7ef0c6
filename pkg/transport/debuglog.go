package transport

import (
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
)

const (
	defaultLogSize = 256
	defaultLogTTL  = 15 * time.Minute
)

// LogEntry is one completed request/response pair in the debug panel.
type LogEntry struct {
	ID       string        `json:"id"`
	Method   string        `json:"method"`
	URL      string        `json:"url"`
	Status   int           `json:"status,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Time     time.Time     `json:"time"`
}

// RequestLog keeps a bounded, expiring window of recent requests. Old
// entries age out on their own so a long-lived shell never accumulates an
// unbounded log.
type RequestLog struct {
	entries *expirable.LRU[string, LogEntry]
}

// NewRequestLog creates a log holding at most size entries for at most ttl.
// Zero values pick sensible defaults.
func NewRequestLog(size int, ttl time.Duration) *RequestLog {
	if size <= 0 {
		size = defaultLogSize
	}
	if ttl <= 0 {
		ttl = defaultLogTTL
	}
	return &RequestLog{entries: expirable.NewLRU[string, LogEntry](size, nil, ttl)}
}

func (l *RequestLog) add(entry LogEntry) {
	l.entries.Add(entry.ID, entry)
}

// Entries returns the live entries, oldest first.
func (l *RequestLog) Entries() []LogEntry {
	values := l.entries.Values()
	sort.Slice(values, func(i, j int) bool { return values[i].Time.Before(values[j].Time) })
	return values
}

// Clear drops all recorded entries.
func (l *RequestLog) Clear() {
	l.entries.Purge()
}

// DebugLog records every request into the log. Production builds carry the
// stage in their environment, and the recorder turns itself off there: the
// debug panel is a development tool, not an audit trail.
func DebugLog(logStore *RequestLog, env runtimecfg.Environment) Decorator {
	return func(next http.RoundTripper) http.RoundTripper {
		if env.Stage == runtimecfg.StageProd {
			return next
		}
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)

			entry := LogEntry{
				ID:       uuid.NewString(),
				Method:   req.Method,
				URL:      req.URL.String(),
				Duration: time.Since(start),
				Time:     start,
			}
			if err != nil {
				entry.Error = err.Error()
			} else {
				entry.Status = resp.StatusCode
			}
			logStore.add(entry)

			return resp, err
		})
	}
}
