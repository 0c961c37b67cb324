// Package absolute decides whether a release name refers to an episode by
// its running (absolute) number and rewrites matched results to canonical
// season/episode numbering.
package absolute

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudseek/cloudseek/internal/cache"
	"github.com/cloudseek/cloudseek/internal/episode"
	"github.com/cloudseek/cloudseek/internal/media"
	"github.com/cloudseek/cloudseek/internal/parser"
)

// CacheTTL is how long match decisions stay memoized.
const CacheTTL = 24 * time.Hour

// Numbers below this need an episode word or a dash in front of them.
const smallNumberLimit = 10

var explicitSeasonRe = regexp.MustCompile(`(?i)s\d+(?:e\d+|-\d+)`)

// Number patterns run against the name padded with a space on both sides,
// so every boundary is a real character. Group 1 is the number.
var (
	episodeWordRe = regexp.MustCompile(`(?i)[^a-z](?:episode|ep|e)[ ._-]*(\d+)(?:v\d+)?[^0-9]`)
	dashRe        = regexp.MustCompile(`\s-\s*(\d+)(?:v\d+)?[^0-9]`)
	standaloneRe  = regexp.MustCompile(`(?i)[^a-z0-9](\d+)(?:v\d+)?[^a-z0-9]`)
	delimitedRe   = regexp.MustCompile(`[ ._\-\[(#](\d+)(?:v\d+)?[ ._\-\])]`)

	smallNumberRes = []*regexp.Regexp{episodeWordRe, dashRe}
	numberRes      = []*regexp.Regexp{standaloneRe, delimitedRe, episodeWordRe, dashRe}
)

// Processor matches and annotates absolute-numbered files.
type Processor struct {
	cache  *cache.Cache
	logger zerolog.Logger
}

// New creates a processor. A nil cache disables memoization.
func New(c *cache.Cache, logger zerolog.Logger) *Processor {
	return &Processor{
		cache:  c,
		logger: logger.With().Str("component", "absolute").Logger(),
	}
}

// Matches reports whether filename refers to episode number absolute using
// absolute numbering. Names that carry any season information never match.
func (p *Processor) Matches(filename string, absolute int) bool {
	key := fmt.Sprintf("absolute:%d:%s", absolute, filename)
	if p.cache != nil {
		if v, ok := cache.GetAs[bool](p.cache, key); ok {
			return v
		}
	}

	name, _ := parser.StripExtension(filename)
	result := matches(name, absolute)

	if p.cache != nil {
		_ = p.cache.Set(key, result, CacheTTL, map[string]any{"class": "absolute"})
	}
	return result
}

func matches(name string, absolute int) bool {
	if !episode.ValidAbsolute(absolute) {
		return false
	}
	if episode.ParseRomanSeason(name) != nil ||
		explicitSeasonRe.MatchString(name) ||
		episode.ParseSeason(name, false) != nil {
		return false
	}

	res := numberRes
	if absolute < smallNumberLimit {
		res = smallNumberRes
	}
	padded := " " + name + " "
	for _, re := range res {
		if containsNumber(re, padded, absolute) {
			return true
		}
	}
	return false
}

// containsNumber reports whether any match of re captures want. Scanning
// resumes at the end of each captured number so neighbouring numbers can
// share a separator.
func containsNumber(re *regexp.Regexp, text string, want int) bool {
	for start := 0; start < len(text); {
		loc := re.FindStringSubmatchIndex(text[start:])
		if loc == nil {
			return false
		}
		if n, err := strconv.Atoi(text[start+loc[2] : start+loc[3]]); err == nil && n == want {
			return true
		}
		start += loc[3]
	}
	return false
}

// ProcessAbsoluteEpisodes rewrites every result whose file matches the
// mapping's absolute number to the canonical season/episode and flags it.
// It returns the number of results rewritten.
func (p *Processor) ProcessAbsoluteEpisodes(results []*media.MatchedVideo, mapping *media.EpisodeMapping) int {
	if mapping == nil || mapping.AbsoluteEpisode <= 0 {
		return 0
	}

	rewritten := 0
	for _, r := range results {
		if !p.Matches(r.Video.Name, mapping.AbsoluteEpisode) {
			continue
		}

		info := r.Video.ParsedInfo.Clone()
		if info == nil {
			info = &parser.ParsedTitle{}
		}
		season, ep := mapping.Season, mapping.Episode
		info.Season = &season
		info.Episode = &ep
		info.EndEpisode = nil
		info.SeasonDefaulted = false

		r.Video.ParsedInfo = info
		r.IsAbsoluteMatch = true
		rewritten++
	}

	if rewritten > 0 {
		p.logger.Debug().
			Int("absolute", mapping.AbsoluteEpisode).
			Int("season", mapping.Season).
			Int("episode", mapping.Episode).
			Int("rewritten", rewritten).
			Msg("Applied absolute episode mapping")
	}
	return rewritten
}
