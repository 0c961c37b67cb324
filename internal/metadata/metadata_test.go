package metadata

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudseek/cloudseek/internal/cache"
	"github.com/cloudseek/cloudseek/internal/media"
)

type fakeProvider struct {
	mu sync.Mutex

	mapping    *media.EpisodeMapping
	mappingErr error
	titles     []AlternateTitle
	titlesErr  error
	seasons    []AnimeSeason
	seasonsErr error

	calls map[string]int
}

func (f *fakeProvider) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
}

func (f *fakeProvider) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeProvider) ResolveAbsoluteEpisode(context.Context, string, int, int) (*media.EpisodeMapping, error) {
	f.record("abs")
	return f.mapping, f.mappingErr
}

func (f *fakeProvider) FetchAlternateTitles(context.Context, string, media.ContentType) ([]AlternateTitle, error) {
	f.record("titles")
	return f.titles, f.titlesErr
}

func (f *fakeProvider) FetchAnimeSeasons(context.Context, string) ([]AnimeSeason, error) {
	f.record("anime")
	return f.seasons, f.seasonsErr
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(cache.Config{MaxSize: 100, SweepInterval: -1}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestComposite_MissingSources(t *testing.T) {
	c := &Composite{}
	ctx := context.Background()

	_, err := c.ResolveAbsoluteEpisode(ctx, "tt1", 1, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = c.FetchAlternateTitles(ctx, "tt1", media.ContentSeries)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = c.FetchAnimeSeasons(ctx, "show")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestComposite_Delegates(t *testing.T) {
	f := &fakeProvider{titles: []AlternateTitle{{Title: "Shingeki no Kyojin", CountryCode: "JP"}}}
	c := &Composite{Titles: f, Anime: f}

	titles, err := c.FetchAlternateTitles(context.Background(), "tt1", media.ContentSeries)
	require.NoError(t, err)
	assert.Equal(t, "Shingeki no Kyojin", titles[0].Title)
	assert.Equal(t, 1, f.count("titles"))
}

func TestCached_MemoizesSuccess(t *testing.T) {
	c := newTestCache(t)
	f := &fakeProvider{mapping: &media.EpisodeMapping{Season: 2, Episode: 5, AbsoluteEpisode: 29, Title: "Show"}}
	p := NewCached(f, c, TTL{})

	for range 3 {
		m, err := p.ResolveAbsoluteEpisode(context.Background(), "tt1", 2, 5)
		require.NoError(t, err)
		assert.Equal(t, 29, m.AbsoluteEpisode)
		m.AbsoluteEpisode = 0 // must not leak into the cache
	}
	assert.Equal(t, 1, f.count("abs"))

	entries := c.GetByPattern(regexp.MustCompile(`^meta:abs:`))
	require.Len(t, entries, 1)
	assert.Equal(t, "meta:abs:tt1:2:5", entries[0].Key)
	assert.Equal(t, 24*time.Hour, entries[0].TTL)
	assert.Equal(t, "absolute", entries[0].Metadata["class"])
}

func TestCached_NegativeEntries(t *testing.T) {
	c := newTestCache(t)
	f := &fakeProvider{seasonsErr: ErrNotFound}
	p := NewCached(f, c, TTL{Negative: 10 * time.Minute})

	for range 2 {
		_, err := p.FetchAnimeSeasons(context.Background(), " Show ")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 1, f.count("anime"))

	entries := c.GetByPattern(regexp.MustCompile(`^meta:anime:show$`))
	require.Len(t, entries, 1)
	assert.Equal(t, 10*time.Minute, entries[0].TTL)
	assert.Equal(t, true, entries[0].Metadata["negative"])
}

func TestCached_FailuresNotCached(t *testing.T) {
	c := newTestCache(t)
	f := &fakeProvider{titlesErr: errors.New("boom")}
	p := NewCached(f, c, DefaultTTL())

	for range 2 {
		_, err := p.FetchAlternateTitles(context.Background(), "tt1", media.ContentMovie)
		assert.Error(t, err)
	}
	assert.Equal(t, 2, f.count("titles"))
	assert.Equal(t, 0, c.Len())
}

func TestCached_ReturnsCopies(t *testing.T) {
	c := newTestCache(t)
	f := &fakeProvider{titles: []AlternateTitle{{Title: "A", CountryCode: "US"}}}
	p := NewCached(f, c, DefaultTTL())

	first, err := p.FetchAlternateTitles(context.Background(), "tt1", media.ContentMovie)
	require.NoError(t, err)
	first[0].Title = "mutated"

	second, err := p.FetchAlternateTitles(context.Background(), "tt1", media.ContentMovie)
	require.NoError(t, err)
	assert.Equal(t, "A", second[0].Title)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	f := &fakeProvider{seasonsErr: errors.New("upstream down")}
	b := NewBreaker(f, BreakerConfig{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 2}, nil, zerolog.Nop())
	ctx := context.Background()

	for range 2 {
		_, err := b.FetchAnimeSeasons(ctx, "show")
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	_, err := b.FetchAnimeSeasons(ctx, "show")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, f.count("anime"), "open breaker short-circuits the call")

	// Other capabilities keep their own breaker.
	_, err = b.FetchAlternateTitles(ctx, "tt1", media.ContentSeries)
	assert.NoError(t, err)
}

func TestBreaker_NotFoundAndCancelDoNotTrip(t *testing.T) {
	f := &fakeProvider{mappingErr: ErrNotFound}
	b := NewBreaker(f, BreakerConfig{FailureThreshold: 1, Timeout: time.Minute}, nil, zerolog.Nop())

	for range 3 {
		_, err := b.ResolveAbsoluteEpisode(context.Background(), "tt1", 1, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	f.mappingErr = context.Canceled
	for range 3 {
		_, err := b.ResolveAbsoluteEpisode(context.Background(), "tt1", 1, 1)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 6, f.count("abs"))
}
