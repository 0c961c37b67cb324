package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/cloudseek/cloudseek/internal/media"
)

var (
	// ErrUnavailable marks a collaborator that failed, timed out or is
	// short-circuited by an open breaker.
	ErrUnavailable = errors.New("metadata collaborator unavailable")
	// ErrNotFound means the collaborator answered but has no data.
	ErrNotFound = errors.New("metadata not found")
)

// AlternateTitle is a regional or original-language title for a work.
type AlternateTitle struct {
	Title       string `json:"title"`
	CountryCode string `json:"countryCode"`
}

// AnimeSeason is one season-like entry reported by an anime catalog.
type AnimeSeason struct {
	Title        string    `json:"title"`
	EpisodeCount int       `json:"episodeCount"`
	AiredDate    time.Time `json:"airedDate"`
	SeasonLabel  string    `json:"seasonLabel"`

	// AlternateTitles are the entry's other names, romanized or synonyms.
	AlternateTitles []string `json:"alternateTitles,omitempty"`
}

// EpisodeResolver resolves a season/episode pair to its absolute number.
type EpisodeResolver interface {
	ResolveAbsoluteEpisode(ctx context.Context, id string, season, episode int) (*media.EpisodeMapping, error)
}

// TitleSource lists alternate titles for an identifier.
type TitleSource interface {
	FetchAlternateTitles(ctx context.Context, id string, contentType media.ContentType) ([]AlternateTitle, error)
}

// AnimeSeasonSource lists the seasons an anime catalog knows for a title.
type AnimeSeasonSource interface {
	FetchAnimeSeasons(ctx context.Context, query string) ([]AnimeSeason, error)
}

// Provider is the full metadata capability the search coordinator consumes.
type Provider interface {
	EpisodeResolver
	TitleSource
	AnimeSeasonSource
}

// Composite assembles a Provider from independent sources. A nil source
// reports ErrUnavailable.
type Composite struct {
	Episodes EpisodeResolver
	Titles   TitleSource
	Anime    AnimeSeasonSource
}

var _ Provider = (*Composite)(nil)

func (c *Composite) ResolveAbsoluteEpisode(ctx context.Context, id string, season, episode int) (*media.EpisodeMapping, error) {
	if c.Episodes == nil {
		return nil, ErrUnavailable
	}
	return c.Episodes.ResolveAbsoluteEpisode(ctx, id, season, episode)
}

func (c *Composite) FetchAlternateTitles(ctx context.Context, id string, contentType media.ContentType) ([]AlternateTitle, error) {
	if c.Titles == nil {
		return nil, ErrUnavailable
	}
	return c.Titles.FetchAlternateTitles(ctx, id, contentType)
}

func (c *Composite) FetchAnimeSeasons(ctx context.Context, query string) ([]AnimeSeason, error) {
	if c.Anime == nil {
		return nil, ErrUnavailable
	}
	return c.Anime.FetchAnimeSeasons(ctx, query)
}
