package absolute

import (
	"regexp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudseek/cloudseek/internal/cache"
	"github.com/cloudseek/cloudseek/internal/media"
	"github.com/cloudseek/cloudseek/internal/parser"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		absolute int
		want     bool
	}{
		{"explicit season episode never matches", "Show.S02E05.mkv", 29, false},
		{"zero padded anime numbering", "Show - 029 MULTI.mkv", 29, true},
		{"different number", "Show - 030 MULTI.mkv", 29, false},
		{"bracketed", "[Group] Show [105] [1080p].mkv", 105, true},
		{"episode word", "Show Episode 220.mkv", 220, true},
		{"version suffix", "Show - 12v2.mkv", 12, true},
		{"resolution is not an episode", "Show 1080p.mkv", 1080, false},
		{"codec is not an episode", "Show x264.mkv", 264, false},
		{"season dash refused", "Show S2-05.mkv", 5, false},
		{"season indicator refused", "Show S2 - 05.mkv", 5, false},
		{"roman season refused", "Overlord II - 05.mkv", 5, false},
		{"small number needs dash", "Show 05 720p.mkv", 5, false},
		{"small number with dash", "Show - 05.mkv", 5, true},
		{"small number with episode word", "Show Ep 5.mkv", 5, true},
		{"small number ignores extension digits", "Show.mp4", 4, false},
		{"out of range", "Show - 0.mkv", 0, false},
		{"adjacent numbers share a separator", "Show 12 13 [720p].mkv", 13, true},
		{"longer number is not a match", "Show 112.mkv", 12, false},
		{"heavy zero padding", "Show - 0012.mkv", 12, true},
	}

	p := New(nil, zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Matches(tt.filename, tt.absolute))
		})
	}
}

func TestMatches_Memoized(t *testing.T) {
	c, err := cache.New(cache.Config{MaxSize: 10, SweepInterval: -1}, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	p := New(c, zerolog.Nop())
	assert.True(t, p.Matches("Show - 029 MULTI.mkv", 29))
	assert.True(t, p.Matches("Show - 029 MULTI.mkv", 29))

	entries := c.GetByPattern(regexp.MustCompile(`^absolute:29:`))
	require.Len(t, entries, 1)
	assert.Equal(t, "absolute:29:Show - 029 MULTI.mkv", entries[0].Key)
	assert.Equal(t, CacheTTL, entries[0].TTL)
	assert.Equal(t, uint64(1), c.Stats().Hits)
}

func TestProcessAbsoluteEpisodes(t *testing.T) {
	absoluteFile := parser.Parse("Show - 029 MULTI.mkv")
	explicitFile := parser.Parse("Show.S02E05.mkv")

	results := []*media.MatchedVideo{
		{ID: "a", Video: media.VideoFile{Name: "Show - 029 MULTI.mkv", ParsedInfo: absoluteFile}},
		{ID: "b", Video: media.VideoFile{Name: "Show.S02E05.mkv", ParsedInfo: explicitFile}},
		{ID: "c", Video: media.VideoFile{Name: "Show - 029.mkv"}},
	}
	mapping := &media.EpisodeMapping{Season: 2, Episode: 5, AbsoluteEpisode: 29}

	p := New(nil, zerolog.Nop())
	assert.Equal(t, 2, p.ProcessAbsoluteEpisodes(results, mapping))

	assert.True(t, results[0].IsAbsoluteMatch)
	assert.Equal(t, 2, *results[0].Video.ParsedInfo.Season)
	assert.Equal(t, 5, *results[0].Video.ParsedInfo.Episode)
	assert.False(t, results[0].Video.ParsedInfo.SeasonDefaulted)
	assert.Equal(t, 1, *absoluteFile.Season, "original parse result is not mutated")

	assert.False(t, results[1].IsAbsoluteMatch)
	assert.Equal(t, 2, *results[1].Video.ParsedInfo.Season)

	assert.True(t, results[2].IsAbsoluteMatch)
	require.NotNil(t, results[2].Video.ParsedInfo)
	assert.Equal(t, 5, *results[2].Video.ParsedInfo.Episode)
}

func TestProcessAbsoluteEpisodes_NoMapping(t *testing.T) {
	results := []*media.MatchedVideo{{Video: media.VideoFile{Name: "Show - 029.mkv"}}}

	p := New(nil, zerolog.Nop())
	assert.Equal(t, 0, p.ProcessAbsoluteEpisodes(results, nil))
	assert.Equal(t, 0, p.ProcessAbsoluteEpisodes(results, &media.EpisodeMapping{Season: 2, Episode: 5}))
	assert.False(t, results[0].IsAbsoluteMatch)
}
