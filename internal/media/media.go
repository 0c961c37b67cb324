package media

import (
	"strings"
	"time"

	"github.com/cloudseek/cloudseek/internal/parser"
)

// ContentType distinguishes the two kinds of searches.
type ContentType string

const (
	ContentMovie  ContentType = "movie"
	ContentSeries ContentType = "series"
)

// ParseContentType accepts the canonical names plus a few common aliases.
func ParseContentType(s string) (ContentType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies", "film":
		return ContentMovie, true
	case "series", "show", "tv", "episode":
		return ContentSeries, true
	}
	return "", false
}

// ItemKind is the provider-specific shape a catalog item arrived in.
type ItemKind string

const (
	ItemUnknown  ItemKind = ""
	ItemTorrent  ItemKind = "torrent"
	ItemDownload ItemKind = "download"
)

// VideoFile is one playable file inside a candidate.
type VideoFile struct {
	Name       string              `json:"name"`
	Size       int64               `json:"size"`
	Link       string              `json:"link,omitempty"`
	Path       string              `json:"path,omitempty"`
	StreamURL  string              `json:"streamUrl,omitempty"`
	ParsedInfo *parser.ParsedTitle `json:"parsedInfo,omitempty"`
}

// Candidate is a single item from a provider's catalog. Catalog entries are
// mutated in place as later phases attach videos and parse results, so each
// query must own its candidates.
type Candidate struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Size       int64               `json:"size"`
	Kind       ItemKind            `json:"kind,omitempty"`
	Container  bool                `json:"container"`
	Videos     []*VideoFile        `json:"videos,omitempty"`
	CreatedAt  time.Time           `json:"createdAt,omitzero"`
	ParsedInfo *parser.ParsedTitle `json:"parsedInfo,omitempty"`
}

// NeedsDetails reports whether the candidate's file list still has to be
// fetched before its episodes can be analysed.
func (c *Candidate) NeedsDetails() bool {
	return c.Container && len(c.Videos) == 0
}

// LargestVideo returns the biggest non-sample video, or nil.
func (c *Candidate) LargestVideo() *VideoFile {
	var best *VideoFile
	for _, v := range c.Videos {
		if !parser.IsVideoFile(v.Name) || parser.IsSampleFile(v.Name) {
			continue
		}
		if best == nil || v.Size > best.Size {
			best = v
		}
	}
	return best
}

// EpisodeMapping is a canonical season/episode pair with its absolute number.
type EpisodeMapping struct {
	Season          int    `json:"season"`
	Episode         int    `json:"episode"`
	AbsoluteEpisode int    `json:"absoluteEpisode"`
	Title           string `json:"title,omitempty"`
}

// AnimeMapping records a numbering translation produced by the anime fallback.
type AnimeMapping struct {
	OriginalSeason  int    `json:"originalSeason"`
	OriginalEpisode int    `json:"originalEpisode"`
	MappedSeason    int    `json:"mappedSeason"`
	MappedEpisode   int    `json:"mappedEpisode"`
	AbsoluteEpisode int    `json:"absoluteEpisode,omitempty"`
	SourceTitle     string `json:"sourceTitle,omitempty"`
}

// MatchedVideo is a single search result.
type MatchedVideo struct {
	ID              string        `json:"id"`
	Source          string        `json:"source"`
	ContainerName   string        `json:"containerName,omitempty"`
	Video           VideoFile     `json:"video"`
	MatchedTerm     string        `json:"matchedTerm,omitempty"`
	Score           float64       `json:"score"`
	IsAbsoluteMatch bool          `json:"isAbsoluteMatch,omitempty"`
	AnimeMapping    *AnimeMapping `json:"animeMapping,omitempty"`
}
