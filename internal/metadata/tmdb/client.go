package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/media"
	"github.com/cloudseek/cloudseek/internal/metadata"
	"github.com/cloudseek/cloudseek/internal/retry"
)

var (
	ErrAPIKeyMissing = errors.New("TMDB API key is not configured")
	ErrAPIError      = errors.New("TMDB API error")
	ErrRateLimited   = errors.New("TMDB API rate limited")
)

// Client is a TMDB API client covering episode numbering and alternate titles.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	retry      retry.Config
	logger     zerolog.Logger
}

var (
	_ metadata.EpisodeResolver = (*Client)(nil)
	_ metadata.TitleSource     = (*Client)(nil)
)

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, retryCfg retry.Config, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		retry:  retryCfg,
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "tmdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// ResolveAbsoluteEpisode maps season/episode of the series identified by an
// IMDb ID to its absolute number, counting every regular season before it.
// Specials (season 0) have no absolute number.
func (c *Client) ResolveAbsoluteEpisode(ctx context.Context, imdbID string, season, episode int) (*media.EpisodeMapping, error) {
	if season <= 0 || episode <= 0 {
		return nil, fmt.Errorf("%w: no absolute number for S%02dE%02d", metadata.ErrNotFound, season, episode)
	}

	found, err := c.find(ctx, imdbID)
	if err != nil {
		return nil, err
	}
	if len(found.TVResults) == 0 {
		return nil, fmt.Errorf("%w: no series for %s", metadata.ErrNotFound, imdbID)
	}

	series, err := c.GetSeries(ctx, found.TVResults[0].ID)
	if err != nil {
		return nil, err
	}

	absolute, ok := AbsoluteNumber(series.Seasons, season, episode)
	if !ok {
		return nil, fmt.Errorf("%w: S%02dE%02d not in %s", metadata.ErrNotFound, season, episode, series.Name)
	}

	c.logger.Debug().
		Str("imdbId", imdbID).
		Int("season", season).
		Int("episode", episode).
		Int("absolute", absolute).
		Msg("Resolved absolute episode")

	return &media.EpisodeMapping{
		Season:          season,
		Episode:         episode,
		AbsoluteEpisode: absolute,
		Title:           series.Name,
	}, nil
}

// AbsoluteNumber sums the episode counts of all regular seasons before
// season and adds episode. It fails when the season is unknown or the
// episode exceeds that season's count.
func AbsoluteNumber(seasons []SeasonSummary, season, episode int) (int, bool) {
	absolute := 0
	found := false
	for _, s := range seasons {
		switch {
		case s.SeasonNumber <= 0:
			continue
		case s.SeasonNumber < season:
			absolute += s.EpisodeCount
		case s.SeasonNumber == season:
			if episode > s.EpisodeCount {
				return 0, false
			}
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return absolute + episode, true
}

// FetchAlternateTitles returns the original-language title followed by every
// regional title TMDB lists for the work.
func (c *Client) FetchAlternateTitles(ctx context.Context, imdbID string, contentType media.ContentType) ([]metadata.AlternateTitle, error) {
	found, err := c.find(ctx, imdbID)
	if err != nil {
		return nil, err
	}

	var (
		titles []metadata.AlternateTitle
		alts   []AlternativeTitle
	)

	switch contentType {
	case media.ContentMovie:
		if len(found.MovieResults) == 0 {
			return nil, fmt.Errorf("%w: no movie for %s", metadata.ErrNotFound, imdbID)
		}
		m := found.MovieResults[0]
		if m.OriginalTitle != "" && m.OriginalTitle != m.Title {
			titles = append(titles, metadata.AlternateTitle{Title: m.OriginalTitle, CountryCode: languageCountry(m.OriginalLanguage)})
		}

		var resp MovieAlternativeTitles
		endpoint := fmt.Sprintf("%s/movie/%d/alternative_titles", c.config.BaseURL, m.ID)
		if err := c.get(ctx, endpoint, nil, &resp); err != nil {
			return nil, err
		}
		alts = resp.Titles

	default:
		if len(found.TVResults) == 0 {
			return nil, fmt.Errorf("%w: no series for %s", metadata.ErrNotFound, imdbID)
		}
		s := found.TVResults[0]
		if s.OriginalName != "" && s.OriginalName != s.Name {
			country := languageCountry(s.OriginalLanguage)
			if len(s.OriginCountry) > 0 {
				country = s.OriginCountry[0]
			}
			titles = append(titles, metadata.AlternateTitle{Title: s.OriginalName, CountryCode: country})
		}

		var resp SeriesAlternativeTitles
		endpoint := fmt.Sprintf("%s/tv/%d/alternative_titles", c.config.BaseURL, s.ID)
		if err := c.get(ctx, endpoint, nil, &resp); err != nil {
			return nil, err
		}
		alts = resp.Results
	}

	for _, a := range alts {
		if strings.TrimSpace(a.Title) == "" {
			continue
		}
		titles = append(titles, metadata.AlternateTitle{Title: a.Title, CountryCode: strings.ToUpper(a.ISO3166)})
	}

	c.logger.Debug().Str("imdbId", imdbID).Int("titles", len(titles)).Msg("Fetched alternate titles")
	return titles, nil
}

// GetSeries gets series details including the season list.
func (c *Client) GetSeries(ctx context.Context, id int) (*SeriesDetails, error) {
	endpoint := fmt.Sprintf("%s/tv/%d", c.config.BaseURL, id)
	var details SeriesDetails
	if err := c.get(ctx, endpoint, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *Client) find(ctx context.Context, imdbID string) (*FindResponse, error) {
	if imdbID == "" {
		return nil, fmt.Errorf("%w: empty IMDb ID", metadata.ErrNotFound)
	}
	endpoint := fmt.Sprintf("%s/find/%s", c.config.BaseURL, url.PathEscape(imdbID))
	params := url.Values{}
	params.Set("external_source", "imdb_id")

	var resp FindResponse
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// get issues an authenticated GET, retrying transient failures.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result any) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.config.APIKey)

	return retry.Do(ctx, "tmdb "+strings.TrimPrefix(endpoint, c.config.BaseURL), c.retry, c.logger, func(ctx context.Context) error {
		return c.doRequest(ctx, endpoint, params, result)
	})
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.StatusMessage != "" {
			c.logger.Warn().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		status := &retry.StatusError{StatusCode: resp.StatusCode, RetryAfter: retry.ParseRetryAfter(resp.Header)}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", metadata.ErrNotFound, strings.TrimPrefix(endpoint, c.config.BaseURL))
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", ErrRateLimited, status)
		default:
			return fmt.Errorf("%w: %w", ErrAPIError, status)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var languageCountries = map[string]string{
	"ja": "JP",
	"ko": "KR",
	"zh": "CN",
	"en": "US",
	"fr": "FR",
	"de": "DE",
	"es": "ES",
	"it": "IT",
	"pt": "BR",
}

func languageCountry(lang string) string {
	if c, ok := languageCountries[strings.ToLower(lang)]; ok {
		return c
	}
	return strings.ToUpper(lang)
}
