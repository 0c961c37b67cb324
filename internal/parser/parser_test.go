package parser

import (
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudseek/cloudseek/internal/cache"
)

func TestParse_SeasonEpisode(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantTitle   string
		wantSeason  *int
		wantEpisode *int
		wantEnd     *int
		wantAbs     *int
		defaulted   bool
	}{
		{
			name:        "standard",
			filename:    "Breaking.Bad.S01E02.1080p.BluRay.x264-GROUP.mkv",
			wantTitle:   "Breaking Bad",
			wantSeason:  intPtr(1),
			wantEpisode: intPtr(2),
		},
		{
			name:        "specials keep season zero and no absolute",
			filename:    "Show.Name.S00E03.Special.mkv",
			wantTitle:   "Show Name",
			wantSeason:  intPtr(0),
			wantEpisode: intPtr(3),
		},
		{
			name:        "multi episode",
			filename:    "Game.of.Thrones.S01E01E02.1080p.mkv",
			wantTitle:   "Game of Thrones",
			wantSeason:  intPtr(1),
			wantEpisode: intPtr(1),
			wantEnd:     intPtr(2),
		},
		{
			name:        "marker glued to title",
			filename:    "ShowS01E02.mkv",
			wantTitle:   "Show",
			wantSeason:  intPtr(1),
			wantEpisode: intPtr(2),
		},
		{
			name:        "underscores",
			filename:    "Stranger_Things_S04E09_1080p.mkv",
			wantTitle:   "Stranger Things",
			wantSeason:  intPtr(4),
			wantEpisode: intPtr(9),
		},
		{
			name:        "cross format",
			filename:    "Show.Name.1x05.HDTV.mkv",
			wantTitle:   "Show Name",
			wantSeason:  intPtr(1),
			wantEpisode: intPtr(5),
		},
		{
			name:        "absolute anime numbering",
			filename:    "Show - 029 MULTI.mkv",
			wantTitle:   "Show",
			wantSeason:  intPtr(1),
			wantEpisode: intPtr(29),
			wantAbs:     intPtr(29),
			defaulted:   true,
		},
		{
			name:      "absolute beyond episode range",
			filename:  "[Erai-raws] One Piece - 1071 [1080p][Multiple Subtitle].mkv",
			wantTitle: "One Piece",
			wantAbs:   intPtr(1071),
		},
		{
			name:        "roman numeral season",
			filename:    "[SubsPlease] Overlord II - 05 (1080p).mkv",
			wantTitle:   "Overlord II",
			wantSeason:  intPtr(2),
			wantEpisode: intPtr(5),
		},
		{
			name:        "written roman season",
			filename:    "Show Season II - 05.mkv",
			wantTitle:   "Show",
			wantSeason:  intPtr(2),
			wantEpisode: intPtr(5),
		},
		{
			name:        "ordinal season beats defaulted season",
			filename:    "Show 2nd Season - 05 [1080p].mkv",
			wantTitle:   "Show",
			wantSeason:  intPtr(2),
			wantEpisode: intPtr(5),
		},
		{
			name:       "season pack",
			filename:   "Show.S02.1080p.WEB-DL.DDP5.1.x265-GRP",
			wantTitle:  "Show",
			wantSeason: intPtr(2),
		},
		{
			name:        "year before season marker",
			filename:    "Doctor.Who.2005.S01E01.mkv",
			wantTitle:   "Doctor Who",
			wantSeason:  intPtr(1),
			wantEpisode: intPtr(1),
		},
		{
			name:      "movie",
			filename:  "The.Matrix.1999.1080p.BluRay.x264-GROUP.mkv",
			wantTitle: "The Matrix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.filename)
			assert.Equal(t, tt.wantTitle, got.Title, "title")
			assert.Equal(t, tt.wantSeason, got.Season, "season")
			assert.Equal(t, tt.wantEpisode, got.Episode, "episode")
			assert.Equal(t, tt.wantEnd, got.EndEpisode, "end episode")
			assert.Equal(t, tt.wantAbs, got.AbsoluteEpisode, "absolute episode")
			assert.Equal(t, tt.defaulted, got.SeasonDefaulted, "season defaulted")
		})
	}
}

func TestParse_RomanSeasonInfo(t *testing.T) {
	got := Parse("[SubsPlease] Overlord II - 05 (1080p).mkv")

	require.NotNil(t, got.RomanSeason)
	assert.Equal(t, 2, got.RomanSeason.Season)
	assert.Equal(t, "II", got.RomanSeason.RomanText)
	assert.Nil(t, got.AbsoluteEpisode)
	assert.Equal(t, "SubsPlease", got.ReleaseGroup)
	assert.Equal(t, "1080p", got.Resolution)
}

func TestParse_QualityTags(t *testing.T) {
	tests := []struct {
		filename string
		want     ParsedTitle
	}{
		{
			filename: "The.Matrix.1999.1080p.BluRay.x264-GROUP.mkv",
			want: ParsedTitle{
				Year: 1999, Resolution: "1080p", Source: "BluRay", Codec: "x264",
				ReleaseGroup: "GROUP", Container: "mkv",
			},
		},
		{
			filename: "Show.S02.1080p.WEB-DL.DDP5.1.x265-GRP",
			want: ParsedTitle{
				Resolution: "1080p", Source: "WEB-DL", Codec: "x265", Audio: "DD+",
				Channels: "5.1", ReleaseGroup: "GRP",
			},
		},
		{
			filename: "Movie.2019.2160p.UHD.BluRay.REMUX.HDR10.DV.TrueHD.Atmos.7.1-GRP.mkv",
			want: ParsedTitle{
				Year: 2019, Resolution: "2160p", Source: "Remux", Audio: "Atmos", HDR: "DV",
				Channels: "7.1", ReleaseGroup: "GRP", Container: "mkv",
			},
		},
		{
			filename: "Show.S01E05.10bit.HEVC.23.976fps.mkv",
			want: ParsedTitle{
				Codec: "x265", BitDepth: "10bit", FrameRate: "23.976fps", Container: "mkv",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got := Parse(tt.filename)
			assert.Equal(t, tt.want.Year, got.Year, "year")
			assert.Equal(t, tt.want.Resolution, got.Resolution, "resolution")
			assert.Equal(t, tt.want.Source, got.Source, "source")
			assert.Equal(t, tt.want.Codec, got.Codec, "codec")
			assert.Equal(t, tt.want.Audio, got.Audio, "audio")
			assert.Equal(t, tt.want.HDR, got.HDR, "hdr")
			assert.Equal(t, tt.want.BitDepth, got.BitDepth, "bit depth")
			assert.Equal(t, tt.want.Channels, got.Channels, "channels")
			assert.Equal(t, tt.want.FrameRate, got.FrameRate, "frame rate")
			assert.Equal(t, tt.want.ReleaseGroup, got.ReleaseGroup, "release group")
			assert.Equal(t, tt.want.Container, got.Container, "container")
		})
	}
}

func TestParse_Languages(t *testing.T) {
	tests := []struct {
		filename string
		want     []string
	}{
		{"Show - 029 MULTI.mkv", []string{"multi"}},
		{"Show.S01E01.MULTI.TRUEFRENCH.ENG.1080p.mkv", []string{"multi", "fr", "en"}},
		{"www.Torrent9.to - Show.S03E04.VOSTFR.mkv", []string{"vostfr"}},
		{"The.French.Dispatch.2021.1080p.mkv", nil},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.filename).Languages)
		})
	}
}

func TestParse_SitePrefixes(t *testing.T) {
	tests := []struct {
		filename  string
		wantTitle string
	}{
		{"[www.Torrent9.com] Show.S01E01.FRENCH.720p.HDTV.mkv", "Show"},
		{"www.Torrent9.to - Show.S03E04.VOSTFR.mkv", "Show"},
		{"Site.com - Show.S01E02.mkv", "Show"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got := Parse(tt.filename)
			assert.Equal(t, tt.wantTitle, got.Title)
			assert.Empty(t, got.ReleaseGroup)
		})
	}
}

func TestParse_EpisodeTitle(t *testing.T) {
	assert.Equal(t, "Special", Parse("Show.Name.S00E03.Special.mkv").EpisodeTitle)
	assert.Equal(t, "Pilot", Parse("Show.S01E01.Pilot.720p.HDTV.mkv").EpisodeTitle)
	assert.Empty(t, Parse("The.Matrix.1999.1080p.mkv").EpisodeTitle)
}

func TestParse_NoReleaseGroupInHyphenatedTitle(t *testing.T) {
	assert.Empty(t, Parse("Spider-Man.mkv").ReleaseGroup)
}

func TestParser_CachesResults(t *testing.T) {
	c, err := cache.New(cache.Config{MaxSize: 100, SweepInterval: -1}, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	p := New(c)
	first := p.Parse("Show - 029 MULTI.mkv")
	require.NotNil(t, first.Episode)

	entries := c.GetByPattern(regexp.MustCompile(`^parser:`))
	assert.Len(t, entries, 2, "raw and cleaned keys are both stored")
	for _, e := range entries {
		assert.Equal(t, CacheTTL, e.TTL)
	}

	// Mutating a returned value must not leak into the cache.
	*first.Episode = 99
	first.Languages[0] = "xx"

	second := p.Parse("Show - 029 MULTI.mkv")
	assert.Equal(t, 29, *second.Episode)
	assert.Equal(t, []string{"multi"}, second.Languages)
	assert.GreaterOrEqual(t, c.Stats().Hits, uint64(1))
}

func TestParser_CleanedVariantSharesEntry(t *testing.T) {
	c, err := cache.New(cache.Config{MaxSize: 100, SweepInterval: -1}, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	p := New(c)
	p.Parse("[www.Site.com] Show.S01E02.mkv")
	hitsBefore := c.Stats().Hits

	got := p.Parse("Show.S01E02.mp4")
	assert.Equal(t, "Show", got.Title)
	assert.Equal(t, "mp4", got.Container, "container comes from the raw name")
	assert.Greater(t, c.Stats().Hits, hitsBefore, "cleaned name is served from cache")
}

func TestParse_Idempotent(t *testing.T) {
	names := []string{
		"Show - 029 MULTI.mkv",
		"[SubsPlease] Overlord II - 05 (1080p).mkv",
		"Show.Name.S00E03.Special.mkv",
		"The.Matrix.1999.1080p.BluRay.x264-GROUP.mkv",
	}

	c, err := cache.New(cache.Config{MaxSize: 100, DefaultTTL: time.Hour, SweepInterval: -1}, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()
	cached := New(c)

	for _, name := range names {
		assert.Equal(t, Parse(name), Parse(name), name)
		assert.Equal(t, Parse(name), cached.Parse(name), name)
		assert.Equal(t, cached.Parse(name), cached.Parse(name), name)
	}
}

func TestParsedTitle_CoversEpisode(t *testing.T) {
	p := &ParsedTitle{Season: intPtr(1), Episode: intPtr(3), EndEpisode: intPtr(5)}

	assert.True(t, p.CoversEpisode(1, 3))
	assert.True(t, p.CoversEpisode(1, 4))
	assert.True(t, p.CoversEpisode(1, 5))
	assert.False(t, p.CoversEpisode(1, 6))
	assert.False(t, p.CoversEpisode(2, 3))
	assert.False(t, (&ParsedTitle{Episode: intPtr(3)}).CoversEpisode(1, 3))
}
