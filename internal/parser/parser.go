package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloudseek/cloudseek/internal/cache"
	"github.com/cloudseek/cloudseek/internal/episode"
)

// CacheTTL is how long parse results stay memoized.
const CacheTTL = 24 * time.Hour

const cacheKeyPrefix = "parser:"

// Parser parses release names, memoizing results in an optional cache.
type Parser struct {
	cache *cache.Cache
}

// New creates a parser. A nil cache disables memoization.
func New(c *cache.Cache) *Parser {
	return &Parser{cache: c}
}

// Parse returns the structured reading of filename. Equal inputs always
// produce equal results; the returned value is owned by the caller.
func (p *Parser) Parse(filename string) *ParsedTitle {
	rawKey := cacheKeyPrefix + filename
	if cached, ok := p.lookup(rawKey); ok {
		return cached
	}

	name, container := StripExtension(strings.TrimSpace(filename))
	name = stripSitePrefixes(name)
	cleanKey := cacheKeyPrefix + "clean:" + name

	if cached, ok := p.lookup(cleanKey); ok {
		cached.Container = container
		p.store(rawKey, cached)
		return cached.Clone()
	}

	parsed := parseName(name)
	parsed.Container = container

	p.store(rawKey, parsed)
	p.store(cleanKey, parsed)
	return parsed.Clone()
}

func (p *Parser) lookup(key string) (*ParsedTitle, bool) {
	if p == nil || p.cache == nil {
		return nil, false
	}
	parsed, ok := cache.GetAs[*ParsedTitle](p.cache, key)
	if !ok {
		return nil, false
	}
	return parsed.Clone(), true
}

func (p *Parser) store(key string, parsed *ParsedTitle) {
	if p == nil || p.cache == nil {
		return
	}
	_ = p.cache.Set(key, parsed.Clone(), CacheTTL, map[string]any{"class": "parser"})
}

// Parse parses filename without memoization.
func Parse(filename string) *ParsedTitle {
	return New(nil).Parse(filename)
}

var (
	siteTLDs      = `(?:com|org|net|io|me|to|cc|tv|in|info|co|xyz|lol|click|nz|ws|biz|ru|fr|se|li|vip|site|club|pw|one|mx)`
	sitePrefixRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*[\[{(]\s*(?:www\.)?[a-z0-9-]+(?:\.[a-z0-9-]+)?\.` + siteTLDs + `\s*[\]})]\s*[-_.]*\s*`),
		regexp.MustCompile(`(?i)^\s*www\.[a-z0-9-]+\.` + siteTLDs + `\s*[-_.]+\s*`),
		regexp.MustCompile(`(?i)^\s*[a-z0-9-]+\.` + siteTLDs + `\s+-\s+`),
	}
	leadingGroupRe  = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*`)
	trailingTagRe   = regexp.MustCompile(`\s*\[[^\]]*\]\s*$`)
	trailingGroupRe = regexp.MustCompile(`-([A-Za-z0-9]{2,})$`)
	notAGroupRe     = regexp.MustCompile(`(?i)^(?:dl|rip|hd|web|x26[45]|h26[45]|hevc|\d+p|\d+)$`)
	cleanupRe       = regexp.MustCompile(`[.\s_-]+`)
)

// stripSitePrefixes removes tracker or site tags such as "[www.site.com] - ".
func stripSitePrefixes(name string) string {
	for changed := true; changed; {
		changed = false
		for _, re := range sitePrefixRes {
			if loc := re.FindStringIndex(name); loc != nil && loc[1] < len(name) {
				name = name[loc[1]:]
				changed = true
			}
		}
	}
	return name
}

type baselinePattern struct {
	name       string
	re         *regexp.Regexp
	hasEpisode bool
	// glued patterns may follow a letter directly ("ShowS01E02"); the title
	// then ends at the character before the season digits.
	glued bool
}

// Ordered season/episode heuristics used before the episode library.
var baselinePatterns = []baselinePattern{
	{"standard", regexp.MustCompile(`(?i)(?:^|[^0-9])s(\d{1,2})[ ._-]?e(\d{1,3})(?:[ ._-]?(?:e|-e?)(\d{1,3}))?(?:[^0-9]|$)`), true, true},
	{"cross", regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(\d{1,2})x(\d{2,3})(?:[^0-9a-z]|$)`), true, false},
	{"ordinal-season", regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(\d{1,2})(?:st|nd|rd|th)[ ._-]*season(?:[^a-z]|$)`), false, false},
	{"season-word", regexp.MustCompile(`(?i)(?:^|[^a-z])(?:season|saison|temporada|stagione)[ ._]*(\d{1,2})(?:[^0-9]|$)`), false, false},
	{"season-pack", regexp.MustCompile(`(?i)(?:^|[^a-z0-9])s(\d{1,2})(?:[^a-z0-9]|$)`), false, false},
}

var (
	yearRe = regexp.MustCompile(`(?:^|[ .(\[-])((?:19|20)\d{2})(?:[ .)\]-]|$)`)

	// Markers that end the title when no season marker is present.
	titleEndRes = []*regexp.Regexp{
		regexp.MustCompile(`\s-\s+\d{1,4}(?:v\d)?(?:[\s.\[(]|$)`),
		regexp.MustCompile(`(?i)(?:^|[ .-])(?:episode|ep|e)[ .-]?\d{1,4}(?:[^0-9a-z]|$)`),
		regexp.MustCompile(`(?i)(?:^|[ .-])(?:\d{3,4}[pi]|4k|uhd|web[ .-]?dl|web[ .-]?rip|blu-?ray|bdrip|brrip|hdtv|hdrip|dvdrip|remux|x\.?26[45]|h\.?26[45]|hevc|xvid|proper|repack|complete)(?:[^a-z0-9]|$)`),
		regexp.MustCompile(`(?i)(?:^|[ .-])(?:season|saison|temporada|stagione)(?:[ .]|$)`),
		regexp.MustCompile(`[\[(#]`),
	}
)

// baseline is the outcome of the heuristic pass.
type baseline struct {
	season     *int
	episode    *int
	endEpisode *int
	pattern    string
	start      int
}

func parseBaseline(name string) baseline {
	for _, p := range baselinePatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(name, -1) {
			season := atoi(name[loc[2]:loc[3]])
			if !episode.ValidSeason(season) {
				continue
			}
			b := baseline{season: intPtr(season), pattern: p.name, start: loc[0]}
			if p.glued {
				b.start = loc[2] - 1
			}
			if p.hasEpisode {
				ep := atoi(name[loc[4]:loc[5]])
				if !episode.ValidEpisode(ep) {
					continue
				}
				b.episode = intPtr(ep)
				if len(loc) > 7 && loc[6] >= 0 {
					if end := atoi(name[loc[6]:loc[7]]); end > ep && end-ep <= 50 && episode.ValidEpisode(end) {
						b.endEpisode = intPtr(end)
					}
				}
			}
			return b
		}
	}
	return baseline{start: -1}
}

// parseName runs the full pipeline on a name with its extension and site
// prefixes already removed.
func parseName(name string) *ParsedTitle {
	parsed := &ParsedTitle{}

	if m := leadingGroupRe.FindStringSubmatch(name); m != nil && len(m[0]) < len(name) {
		parsed.ReleaseGroup = strings.TrimSpace(m[1])
		name = name[len(m[0]):]
	}
	name = strings.ReplaceAll(name, "_", " ")

	base := parseBaseline(name)
	d := decideSeasonEpisode(name, base)
	parsed.Season = d.season
	parsed.Episode = d.episode
	parsed.EndEpisode = d.endEpisode
	parsed.SeasonDefaulted = d.seasonDefaulted
	parsed.AbsoluteEpisode = d.absolute
	parsed.RomanSeason = d.roman
	parsed.EpisodePattern = d.pattern

	titleEnd := findTitleEnd(name, base)
	if y := findYear(name); y.value != 0 {
		parsed.Year = y.value
		if y.index > 0 && (titleEnd < 0 || y.index < titleEnd) {
			titleEnd = y.index
		}
	}

	var tail string
	if titleEnd >= 0 {
		parsed.Title = cleanTitle(name[:titleEnd])
		tail = name[titleEnd:]
	} else {
		parsed.Title = cleanTitle(name)
	}
	parseQualityInfo(tail, parsed)

	if parsed.Season != nil || parsed.Episode != nil {
		if title, ok := episode.ExtractEpisodeTitle(name); ok {
			parsed.EpisodeTitle = title
		}
	}

	if parsed.ReleaseGroup == "" {
		parsed.ReleaseGroup = trailingReleaseGroup(name, titleEnd)
	}
	return parsed
}

func findTitleEnd(name string, base baseline) int {
	if base.start >= 0 {
		return base.start
	}
	end := -1
	for _, re := range titleEndRes {
		loc := re.FindStringIndex(name)
		if loc == nil || loc[0] == 0 {
			continue
		}
		if end < 0 || loc[0] < end {
			end = loc[0]
		}
	}
	return end
}

type yearMatch struct {
	value int
	index int
}

// findYear returns the first plausible year that does not start the name.
func findYear(name string) yearMatch {
	for _, loc := range yearRe.FindAllStringSubmatchIndex(name, -1) {
		if loc[2] == 0 {
			continue
		}
		return yearMatch{value: atoi(name[loc[2]:loc[3]]), index: loc[0]}
	}
	return yearMatch{index: -1}
}

// trailingReleaseGroup returns the "-GROUP" suffix, which only counts when
// it follows the title.
func trailingReleaseGroup(name string, titleEnd int) string {
	if titleEnd < 0 {
		return ""
	}
	name = trailingTagRe.ReplaceAllString(name, "")
	loc := trailingGroupRe.FindStringSubmatchIndex(name)
	if loc == nil || loc[0] < titleEnd {
		return ""
	}
	group := name[loc[2]:loc[3]]
	if notAGroupRe.MatchString(group) {
		return ""
	}
	return group
}

// cleanTitle replaces separators with spaces and trims leftover punctuation.
func cleanTitle(title string) string {
	cleaned := cleanupRe.ReplaceAllString(title, " ")
	return strings.Trim(cleaned, " -([{")
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
