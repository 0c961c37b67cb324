package cache

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// ErrInvalidTTL is returned when an entry is stored with a negative lifetime.
var ErrInvalidTTL = errors.New("ttl must not be negative")

// Entry is one cached value. Entries returned by GetByPattern are copies.
type Entry struct {
	Key         string         `json:"key"`
	Value       any            `json:"value"`
	CreatedAt   time.Time      `json:"createdAt"`
	TTL         time.Duration  `json:"ttl"`
	AccessCount int64          `json:"accessCount"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	seq uint64
}

// ExpiresAt is the instant after which the entry is no longer served.
func (e *Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL)
}

func (e *Entry) expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// Config holds cache configuration.
type Config struct {
	MaxSize       int
	DefaultTTL    time.Duration
	SweepInterval time.Duration
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxSize:       1000,
		DefaultTTL:    time.Hour,
		SweepInterval: 5 * time.Minute,
	}
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Size        int     `json:"size"`
	MaxSize     int     `json:"maxSize"`
	HitRate     float64 `json:"hitRate"`
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Sets        uint64  `json:"sets"`
	Deletes     uint64  `json:"deletes"`
	Evictions   uint64  `json:"evictions"`
	Expirations uint64  `json:"expirations"`
	Sweeps      uint64  `json:"sweeps"`
}

// Cache is a bounded in-memory store with per-entry TTL. Expired entries are
// dropped lazily on read and by a periodic sweep job. When full, inserting a
// new key evicts the entry that was inserted earliest.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	maxSize int
	ttl     time.Duration
	seq     uint64
	stats   Stats

	now       func() time.Time
	scheduler gocron.Scheduler
	closeOnce sync.Once
	logger    zerolog.Logger
}

// New creates a cache. A zero SweepInterval falls back to the default; a
// negative one disables the background sweep.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	defaults := DefaultConfig()
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaults.MaxSize
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = defaults.DefaultTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}

	c := &Cache{
		entries: make(map[string]*Entry),
		maxSize: cfg.MaxSize,
		ttl:     cfg.DefaultTTL,
		now:     time.Now,
		logger:  logger.With().Str("component", "cache").Logger(),
	}

	if cfg.SweepInterval > 0 {
		s, err := gocron.NewScheduler()
		if err != nil {
			return nil, fmt.Errorf("failed to create sweep scheduler: %w", err)
		}
		_, err = s.NewJob(
			gocron.DurationJob(cfg.SweepInterval),
			gocron.NewTask(func() { c.Sweep() }),
			gocron.WithName("cache-sweep"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("failed to schedule cache sweep: %w", err)
		}
		s.Start()
		c.scheduler = s
	}

	return c, nil
}

// Set stores value under key. A zero ttl uses the configured default.
// Overwriting a key restarts its lifetime and never evicts another entry.
func (c *Cache) Set(key string, value any, ttl time.Duration, metadata map[string]any) error {
	if ttl < 0 {
		return ErrInvalidTTL
	}
	if ttl == 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.seq++
	c.entries[key] = &Entry{
		Key:       key,
		Value:     value,
		CreatedAt: c.now(),
		TTL:       ttl,
		Metadata:  metadata,
		seq:       c.seq,
	}
	c.stats.Sets++
	return nil
}

// Get returns the value stored under key if it has not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		c.stats.Expirations++
		c.stats.Misses++
		return nil, false
	}

	e.AccessCount++
	c.stats.Hits++
	return e.Value, true
}

// GetAs returns the value under key when it exists and has type T.
func GetAs[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Has reports whether key holds a live entry without counting a hit.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		c.stats.Expirations++
		return false
	}
	return true
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	c.stats.Deletes++
	return true
}

// Clear removes every entry and returns how many were dropped.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*Entry)
	c.stats.Deletes += uint64(n)
	return n
}

// GetByPattern returns copies of the live entries whose key matches re,
// in insertion order.
func (c *Cache) GetByPattern(re *regexp.Regexp) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var out []Entry
	for key, e := range c.entries {
		if e.expired(now) || !re.MatchString(key) {
			continue
		}
		out = append(out, *e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// UpdateTTL makes key expire ttl from now. It returns false when the key is
// absent or already expired.
func (c *Cache) UpdateTTL(key string, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	now := c.now()
	if !ok || e.expired(now) {
		return false
	}

	// Insertion time stays put so eviction order is unchanged.
	e.TTL = now.Sub(e.CreatedAt) + ttl
	return true
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.stats.Expirations += uint64(removed)
	c.stats.Sweeps++
	size := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug().Int("removed", removed).Int("size", size).Msg("Swept expired cache entries")
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = len(c.entries)
	s.MaxSize = c.maxSize
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Close stops the sweep job. It is safe to call more than once.
func (c *Cache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.scheduler != nil {
			err = c.scheduler.Shutdown()
		}
	})
	return err
}

// evictOldest removes the earliest-inserted entry (must be called with lock held).
func (c *Cache) evictOldest() {
	var oldest *Entry
	for _, e := range c.entries {
		if oldest == nil || e.CreatedAt.Before(oldest.CreatedAt) ||
			(e.CreatedAt.Equal(oldest.CreatedAt) && e.seq < oldest.seq) {
			oldest = e
		}
	}
	if oldest == nil {
		return
	}
	delete(c.entries, oldest.Key)
	c.stats.Evictions++
}
