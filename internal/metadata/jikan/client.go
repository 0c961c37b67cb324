// Package jikan queries the Jikan (MyAnimeList) API for the seasons an anime
// franchise is split into.
package jikan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/fuzzy"
	"github.com/cloudseek/cloudseek/internal/metadata"
	"github.com/cloudseek/cloudseek/internal/retry"
)

var ErrAPIError = errors.New("jikan API error")

// Client is a Jikan API client. Requests are throttled client-side because
// Jikan rejects bursts well below typical fan-out.
type Client struct {
	httpClient *http.Client
	config     config.JikanConfig
	retry      retry.Config
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

var _ metadata.AnimeSeasonSource = (*Client)(nil)

// NewClient creates a new Jikan client.
func NewClient(cfg config.JikanConfig, retryCfg retry.Config, logger zerolog.Logger) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10
	}

	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		config:     cfg,
		retry:      retryCfg,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     logger.With().Str("component", "jikan").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "jikan"
}

type searchResponse struct {
	Data []animeEntry `json:"data"`
}

type animeEntry struct {
	MalID         int      `json:"mal_id"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english"`
	TitleSynonyms []string `json:"title_synonyms"`
	Type          string   `json:"type"`
	Episodes      *int     `json:"episodes"`
	Season        string   `json:"season"`
	Year          int      `json:"year"`
	Aired         struct {
		From string `json:"from"`
	} `json:"aired"`
}

// FetchAnimeSeasons searches TV entries for query, ordered by air date.
// Entries with an unknown episode count are skipped.
func (c *Client) FetchAnimeSeasons(ctx context.Context, query string) ([]metadata.AnimeSeason, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", metadata.ErrNotFound)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "tv")
	params.Set("order_by", "start_date")
	params.Set("sort", "asc")
	params.Set("limit", "25")

	var resp searchResponse
	err := retry.Do(ctx, "jikan anime search", c.retry, c.logger, func(ctx context.Context) error {
		return c.doRequest(ctx, c.config.BaseURL+"/anime", params, &resp)
	})
	if err != nil {
		return nil, err
	}

	seasons := make([]metadata.AnimeSeason, 0, len(resp.Data))
	for _, e := range resp.Data {
		if !strings.EqualFold(e.Type, "TV") || e.Episodes == nil || *e.Episodes <= 0 {
			continue
		}
		title := pickTitle(query, e.Title, e.TitleEnglish)
		var alternates []string
		for _, t := range append([]string{e.Title, e.TitleEnglish}, e.TitleSynonyms...) {
			if t != "" && t != title && !slices.Contains(alternates, t) {
				alternates = append(alternates, t)
			}
		}
		aired, _ := time.Parse(time.RFC3339, e.Aired.From)
		seasons = append(seasons, metadata.AnimeSeason{
			Title:           title,
			AlternateTitles: alternates,
			EpisodeCount:    *e.Episodes,
			AiredDate:       aired,
			SeasonLabel:     seasonLabel(e.Season, e.Year),
		})
	}

	if len(seasons) == 0 {
		return nil, fmt.Errorf("%w: no TV entries for %q", metadata.ErrNotFound, query)
	}

	sort.SliceStable(seasons, func(i, j int) bool {
		return seasons[i].AiredDate.Before(seasons[j].AiredDate)
	})

	c.logger.Debug().Str("query", query).Int("seasons", len(seasons)).Msg("Fetched anime seasons")
	return seasons, nil
}

// pickTitle prefers whichever of the romanized and English titles shares
// the query's prefix, falling back to the English one.
func pickTitle(query, title, english string) string {
	q := fuzzy.NormalizeTitle(query)
	if english != "" && strings.HasPrefix(fuzzy.NormalizeTitle(english), q) {
		return english
	}
	if title != "" && strings.HasPrefix(fuzzy.NormalizeTitle(title), q) {
		return title
	}
	if english != "" {
		return english
	}
	return title
}

func seasonLabel(season string, year int) string {
	switch {
	case season != "" && year > 0:
		return fmt.Sprintf("%s %d", season, year)
	case year > 0:
		return fmt.Sprintf("%d", year)
	default:
		return season
	}
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", metadata.ErrNotFound, endpoint)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %w", ErrAPIError, &retry.StatusError{
			StatusCode: resp.StatusCode,
			RetryAfter: retry.ParseRetryAfter(resp.Header),
		})
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
