package api

import (
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cloudseek/cloudseek/internal/cache"
)

// CacheHandlers exposes the shared TTL cache for inspection.
type CacheHandlers struct {
	cache *cache.Cache
}

// NewCacheHandlers creates new cache handlers.
func NewCacheHandlers(c *cache.Cache) *CacheHandlers {
	return &CacheHandlers{cache: c}
}

// RegisterRoutes registers the cache routes.
func (h *CacheHandlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.DELETE("", h.Delete)
	g.GET("/stats", h.Stats)
}

// CacheEntry is the wire form of a cache entry.
type CacheEntry struct {
	Key         string         `json:"key"`
	Value       any            `json:"value,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	TTL         time.Duration  `json:"ttl"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	AccessCount int64          `json:"accessCount"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// List handles GET /api/v1/cache?pattern=...&values=true
func (h *CacheHandlers) List(c echo.Context) error {
	re, err := compilePattern(c.QueryParam("pattern"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	withValues := c.QueryParam("values") == "true"

	entries := h.cache.GetByPattern(re)
	out := make([]CacheEntry, 0, len(entries))
	for _, e := range entries {
		ce := CacheEntry{
			Key:         e.Key,
			CreatedAt:   e.CreatedAt,
			TTL:         e.TTL,
			ExpiresAt:   e.ExpiresAt(),
			AccessCount: e.AccessCount,
			Metadata:    e.Metadata,
		}
		if withValues {
			ce.Value = e.Value
		}
		out = append(out, ce)
	}
	return c.JSON(http.StatusOK, out)
}

// Delete handles DELETE /api/v1/cache?pattern=... Without a pattern the
// whole cache is cleared.
func (h *CacheHandlers) Delete(c echo.Context) error {
	pattern := c.QueryParam("pattern")
	if pattern == "" {
		return c.JSON(http.StatusOK, map[string]int{"deleted": h.cache.Clear()})
	}

	re, err := compilePattern(pattern)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	deleted := 0
	for _, e := range h.cache.GetByPattern(re) {
		if h.cache.Delete(e.Key) {
			deleted++
		}
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": deleted})
}

// Stats handles GET /api/v1/cache/stats
func (h *CacheHandlers) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cache.Stats())
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = ".*"
	}
	return regexp.Compile(pattern)
}
