package logger

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Entry is one structured log line.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	QueryID   string         `json:"queryId,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	QueryID   string
	Component string
	MinLevel  zerolog.Level
	Limit     int
}

// Recent keeps the last N log entries in memory. It is an io.Writer for
// zerolog JSON output.
type Recent struct {
	mu    sync.RWMutex
	ring  []Entry
	next  int
	count int
}

// NewRecent creates a tail holding up to size entries.
func NewRecent(size int) *Recent {
	if size <= 0 {
		size = 1
	}
	return &Recent{ring: make([]Entry, size)}
}

// Write parses one zerolog line. Malformed lines are dropped.
func (r *Recent) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return len(p), nil //nolint:nilerr // a broken line must not fail the logger
	}

	entry := Entry{
		Timestamp: take(raw, zerolog.TimestampFieldName),
		Level:     take(raw, zerolog.LevelFieldName),
		Component: take(raw, "component"),
		QueryID:   take(raw, "queryId"),
		Message:   take(raw, zerolog.MessageFieldName),
	}
	if len(raw) > 0 {
		entry.Fields = raw
	}

	r.mu.Lock()
	r.ring[r.next] = entry
	r.next = (r.next + 1) % len(r.ring)
	if r.count < len(r.ring) {
		r.count++
	}
	r.mu.Unlock()
	return len(p), nil
}

// Entries returns matching entries, oldest first. With a Limit only the
// newest Limit matches are returned.
func (r *Recent) Entries(f Filter) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := (r.next - r.count + len(r.ring)) % len(r.ring)
	out := make([]Entry, 0, r.count)
	for i := range r.count {
		e := r.ring[(start+i)%len(r.ring)]
		if f.matches(e) {
			out = append(out, e)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

// Len returns the number of buffered entries.
func (r *Recent) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

func (f Filter) matches(e Entry) bool {
	if f.QueryID != "" && e.QueryID != f.QueryID {
		return false
	}
	if f.Component != "" && e.Component != f.Component {
		return false
	}
	if f.MinLevel > zerolog.TraceLevel {
		lvl, err := zerolog.ParseLevel(e.Level)
		if err == nil && lvl < f.MinLevel {
			return false
		}
	}
	return true
}

func take(raw map[string]any, key string) string {
	v, ok := raw[key].(string)
	if ok {
		delete(raw, key)
	}
	return v
}
