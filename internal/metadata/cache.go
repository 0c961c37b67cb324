package metadata

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cloudseek/cloudseek/internal/cache"
	"github.com/cloudseek/cloudseek/internal/media"
)

// Cache key prefixes for the metadata data classes.
const (
	KeyPrefixAbsolute = "meta:abs:"
	KeyPrefixTitles   = "meta:alt:"
	KeyPrefixAnime    = "meta:anime:"
)

// TTL holds per data class cache lifetimes.
type TTL struct {
	Absolute time.Duration
	Titles   time.Duration
	Anime    time.Duration
	Negative time.Duration
}

// DefaultTTL returns lifetimes matched to how often each kind of data changes.
func DefaultTTL() TTL {
	return TTL{
		Absolute: 24 * time.Hour,
		Titles:   12 * time.Hour,
		Anime:    6 * time.Hour,
		Negative: time.Hour,
	}
}

// notFound is stored for lookups that completed with ErrNotFound.
type notFound struct{}

// Cached memoizes a Provider in the shared TTL cache. Failures other than
// ErrNotFound are never cached.
type Cached struct {
	next  Provider
	cache *cache.Cache
	ttl   TTL
}

var _ Provider = (*Cached)(nil)

// NewCached wraps next. Zero TTL fields take their defaults.
func NewCached(next Provider, c *cache.Cache, ttl TTL) *Cached {
	def := DefaultTTL()
	if ttl.Absolute <= 0 {
		ttl.Absolute = def.Absolute
	}
	if ttl.Titles <= 0 {
		ttl.Titles = def.Titles
	}
	if ttl.Anime <= 0 {
		ttl.Anime = def.Anime
	}
	if ttl.Negative <= 0 {
		ttl.Negative = def.Negative
	}
	return &Cached{next: next, cache: c, ttl: ttl}
}

func (c *Cached) ResolveAbsoluteEpisode(ctx context.Context, id string, season, episode int) (*media.EpisodeMapping, error) {
	key := fmt.Sprintf("%s%s:%d:%d", KeyPrefixAbsolute, id, season, episode)
	m, err := lookup(c, key, c.ttl.Absolute, "absolute", func() (*media.EpisodeMapping, error) {
		return c.next.ResolveAbsoluteEpisode(ctx, id, season, episode)
	})
	if m != nil {
		cp := *m
		return &cp, err
	}
	return nil, err
}

func (c *Cached) FetchAlternateTitles(ctx context.Context, id string, contentType media.ContentType) ([]AlternateTitle, error) {
	key := fmt.Sprintf("%s%s:%s", KeyPrefixTitles, contentType, id)
	titles, err := lookup(c, key, c.ttl.Titles, "titles", func() ([]AlternateTitle, error) {
		return c.next.FetchAlternateTitles(ctx, id, contentType)
	})
	return slices.Clone(titles), err
}

func (c *Cached) FetchAnimeSeasons(ctx context.Context, query string) ([]AnimeSeason, error) {
	key := KeyPrefixAnime + strings.ToLower(strings.TrimSpace(query))
	seasons, err := lookup(c, key, c.ttl.Anime, "anime", func() ([]AnimeSeason, error) {
		return c.next.FetchAnimeSeasons(ctx, query)
	})
	return slices.Clone(seasons), err
}

func lookup[T any](c *Cached, key string, ttl time.Duration, class string, fetch func() (T, error)) (T, error) {
	var zero T
	if v, ok := c.cache.Get(key); ok {
		if _, miss := v.(notFound); miss {
			return zero, ErrNotFound
		}
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	val, err := fetch()
	switch {
	case err == nil:
		_ = c.cache.Set(key, val, ttl, map[string]any{"class": class})
	case errors.Is(err, ErrNotFound):
		_ = c.cache.Set(key, notFound{}, c.ttl.Negative, map[string]any{"class": class, "negative": true})
	}
	return val, err
}
