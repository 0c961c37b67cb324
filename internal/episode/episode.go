// Package episode recognises season, episode and absolute-episode numbering
// in release names. Every function is pure.
package episode

import (
	"regexp"
	"strconv"
)

// Accepted numeric ranges.
const (
	MinSeason      = 0
	MaxSeason      = 30
	MinEpisode     = 1
	MaxEpisode     = 999
	MinAbsolute    = 1
	MaxAbsolute    = 9999
	MinRomanSeason = 1
	MaxRomanSeason = 10
)

// Pattern names reported in Match.Pattern.
const (
	PatternStandard      = "standard"
	PatternCross         = "cross"
	PatternWritten       = "season-episode-written"
	PatternSeasonDash    = "season-dash-episode"
	PatternEpisodeWord   = "episode-word"
	PatternEpisodeLetter = "episode-letter"
	PatternAnimeDash     = "anime-dash"
)

// Match is the outcome of ParseEpisode.
type Match struct {
	Season     int
	Episode    int
	EndEpisode int
	Pattern    string
	// SeasonExplicit is false when the pattern carries no season and Season
	// was defaulted to 1.
	SeasonExplicit bool
}

type episodePattern struct {
	name     string
	re       *regexp.Regexp
	explicit bool
	// hasEnd marks patterns whose third group is a closing episode.
	hasEnd bool
}

// Ordered; the first pattern that yields an in-range pair wins.
var episodePatterns = []episodePattern{
	{
		name:     PatternStandard,
		re:       regexp.MustCompile(`(?i)(?:^|[^0-9])s(\d{1,2})[ ._-]?e(\d{1,3})(?:[ ._-]?(?:e|-e?)(\d{1,3}))?(?:[^0-9]|$)`),
		explicit: true,
		hasEnd:   true,
	},
	{
		name:     PatternCross,
		re:       regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(\d{1,2})x(\d{2,3})(?:[^0-9a-z]|$)`),
		explicit: true,
	},
	{
		name:     PatternWritten,
		re:       regexp.MustCompile(`(?i)(?:^|[^a-z])(?:season|saison|temporada|stagione)[ ._-]*(\d{1,2})[ ._,-]*(?:episode|episodio|[eé]pisode|ep\.?)[ ._-]*(\d{1,3})(?:[^0-9]|$)`),
		explicit: true,
	},
	{
		name:     PatternSeasonDash,
		re:       regexp.MustCompile(`(?i)(?:^|[^a-z0-9])s(\d{1,2})[ ._]*-[ ._]*(?:ep?)?(\d{1,3})(?:[^0-9]|$)`),
		explicit: true,
	},
	{
		name:     PatternSeasonDash,
		re:       regexp.MustCompile(`(?i)(?:^|[^a-z])season[ ._]*(\d{1,2})[ ._]*-[ ._]*(\d{1,3})(?:[^0-9]|$)`),
		explicit: true,
	},
	{
		name: PatternEpisodeWord,
		re:   regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:episode|episodio|ep)[ ._-]*(\d{1,3})(?:[^0-9]|$)`),
	},
	{
		name: PatternEpisodeLetter,
		re:   regexp.MustCompile(`(?i)(?:^|[ ._\[(-])e(\d{2,3})(?:[^0-9a-z]|$)`),
	},
	{
		name: PatternAnimeDash,
		re:   regexp.MustCompile(`(?:^|\s)-\s+(\d{1,3})(?:v\d)?(?:[\s.\[(]|$)`),
	},
}

// ParseEpisode extracts a season/episode pair. Patterns that carry no season
// report season 1 with SeasonExplicit unset. Returns nil when nothing
// in range is found.
func ParseEpisode(text string) *Match {
	for _, p := range episodePatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			match := p.build(m)
			if match != nil {
				return match
			}
		}
	}
	return nil
}

func (p episodePattern) build(m []string) *Match {
	result := &Match{Pattern: p.name, SeasonExplicit: p.explicit}
	if p.explicit {
		result.Season = atoi(m[1])
		result.Episode = atoi(m[2])
	} else {
		result.Season = 1
		result.Episode = atoi(m[1])
	}

	if !ValidSeason(result.Season) || !ValidEpisode(result.Episode) {
		return nil
	}

	if p.hasEnd && len(m) > 3 && m[3] != "" {
		end := atoi(m[3])
		if end > result.Episode && end-result.Episode <= 50 && ValidEpisode(end) {
			result.EndEpisode = end
		}
	}
	return result
}

var (
	strictSeasonPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:^|[^0-9])s(\d{1,2})[ ._-]?e\d{1,3}`),
		regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(\d{1,2})x\d{2,3}(?:[^0-9a-z]|$)`),
		regexp.MustCompile(`(?i)(?:^|[^a-z])(?:season|saison|temporada|stagione)[ ._]*(\d{1,2})(?:[^0-9]|$)`),
	}
	looseSeasonPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(\d{1,2})(?:st|nd|rd|th)[ ._-]*season(?:[^a-z]|$)`),
		regexp.MustCompile(`(?i)(?:^|[^a-z0-9])s(\d{1,2})(?:[^a-z0-9]|$)`),
	}
)

// ParseSeason returns the season number named in text. Strict mode accepts
// only SxxEyy, NxNN and "Season N" forms; otherwise ordinal seasons
// ("2nd Season") and bare "S02" are accepted too.
func ParseSeason(text string, strict bool) *int {
	if s := firstSeason(strictSeasonPatterns, text); s != nil || strict {
		return s
	}
	return firstSeason(looseSeasonPatterns, text)
}

func firstSeason(patterns []*regexp.Regexp, text string) *int {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if s := atoi(m[1]); ValidSeason(s) {
				return &s
			}
		}
	}
	return nil
}

var (
	explicitSeasonEpisodeRe = regexp.MustCompile(`(?i)s\d+e\d+`)
	crossIndicatorRe        = regexp.MustCompile(`(?:^|[^0-9])\d{1,2}x\d{2,3}(?:[^0-9]|$)`)
)

// HasExplicitSeasonEpisode reports whether text contains an SxxEyy marker.
func HasExplicitSeasonEpisode(text string) bool {
	return explicitSeasonEpisodeRe.MatchString(text)
}

// HasSeasonIndicator reports whether text names a season in any form,
// including NxNN and Roman numerals.
func HasSeasonIndicator(text string) bool {
	return ParseSeason(text, false) != nil ||
		crossIndicatorRe.MatchString(text) ||
		ParseRomanSeason(text) != nil
}

type absolutePattern struct {
	name string
	re   *regexp.Regexp
}

var absolutePatterns = []absolutePattern{
	{PatternAnimeDash, regexp.MustCompile(`(?:^|\s)-\s+(\d{1,4})(?:v\d)?(?:[\s.\[(]|$)`)},
	{"bracketed", regexp.MustCompile(`\[(\d{1,4})(?:v\d)?\]`)},
	{PatternEpisodeWord, regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:episode|ep)[ ._-]*(\d{1,4})(?:[^0-9]|$)`)},
	{"hash", regexp.MustCompile(`#(\d{1,4})(?:[^0-9]|$)`)},
}

// ParseAbsoluteEpisode infers a single running episode number from text that
// carries no season information. Four-digit numbers between 1900 and 2099
// are treated as years.
func ParseAbsoluteEpisode(text string) *int {
	if HasExplicitSeasonEpisode(text) || HasSeasonIndicator(text) {
		return nil
	}

	for _, p := range absolutePatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			n := atoi(m[1])
			if !ValidAbsolute(n) || looksLikeYear(m[1], n) {
				continue
			}
			return &n
		}
	}
	return nil
}

func looksLikeYear(digits string, n int) bool {
	return len(digits) == 4 && n >= 1900 && n <= 2099
}

// ValidSeason reports whether s is an accepted season number.
func ValidSeason(s int) bool { return s >= MinSeason && s <= MaxSeason }

// ValidEpisode reports whether e is an accepted episode number.
func ValidEpisode(e int) bool { return e >= MinEpisode && e <= MaxEpisode }

// ValidAbsolute reports whether n is an accepted absolute episode number.
func ValidAbsolute(n int) bool { return n >= MinAbsolute && n <= MaxAbsolute }

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
