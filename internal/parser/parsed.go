package parser

import "github.com/cloudseek/cloudseek/internal/episode"

// ParsedTitle is the structured reading of a release name.
type ParsedTitle struct {
	Title           string `json:"title"`
	Season          *int   `json:"season,omitempty"`
	Episode         *int   `json:"episode,omitempty"`
	EndEpisode      *int   `json:"endEpisode,omitempty"`
	AbsoluteEpisode *int   `json:"absoluteEpisode,omitempty"`
	// SeasonDefaulted is set when no season was present and Season was
	// assumed to be 1 because an episode-only pattern matched.
	SeasonDefaulted bool                 `json:"seasonDefaulted,omitempty"`
	EpisodePattern  string               `json:"episodePattern,omitempty"`
	EpisodeTitle    string               `json:"episodeTitle,omitempty"`
	RomanSeason     *episode.RomanSeason `json:"romanSeason,omitempty"`
	Year            int                  `json:"year,omitempty"`
	Resolution      string               `json:"resolution,omitempty"`
	Source          string               `json:"source,omitempty"`
	Codec           string               `json:"codec,omitempty"`
	Audio           string               `json:"audio,omitempty"`
	HDR             string               `json:"hdr,omitempty"`
	BitDepth        string               `json:"bitDepth,omitempty"`
	Channels        string               `json:"channels,omitempty"`
	FrameRate       string               `json:"frameRate,omitempty"`
	Languages       []string             `json:"languages,omitempty"`
	ReleaseGroup    string               `json:"releaseGroup,omitempty"`
	Container       string               `json:"container,omitempty"`
}

// HasSeasonEpisode reports whether both season and episode are known.
func (p *ParsedTitle) HasSeasonEpisode() bool {
	return p.Season != nil && p.Episode != nil
}

// CoversEpisode reports whether the file contains season/episode, taking
// multi-episode ranges into account.
func (p *ParsedTitle) CoversEpisode(season, ep int) bool {
	if !p.HasSeasonEpisode() || *p.Season != season {
		return false
	}
	if *p.Episode == ep {
		return true
	}
	return p.EndEpisode != nil && ep >= *p.Episode && ep <= *p.EndEpisode
}

// Clone returns a deep copy so cached results cannot be mutated by callers.
func (p *ParsedTitle) Clone() *ParsedTitle {
	if p == nil {
		return nil
	}
	c := *p
	c.Season = cloneInt(p.Season)
	c.Episode = cloneInt(p.Episode)
	c.EndEpisode = cloneInt(p.EndEpisode)
	c.AbsoluteEpisode = cloneInt(p.AbsoluteEpisode)
	if p.RomanSeason != nil {
		r := *p.RomanSeason
		r.Episode = cloneInt(p.RomanSeason.Episode)
		c.RomanSeason = &r
	}
	if p.Languages != nil {
		c.Languages = append([]string(nil), p.Languages...)
	}
	return &c
}

func cloneInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

func intPtr(n int) *int { return &n }
