package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cloudseek/cloudseek/internal/absolute"
	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/media"
	"github.com/cloudseek/cloudseek/internal/metadata"
	"github.com/cloudseek/cloudseek/internal/metrics"
	"github.com/cloudseek/cloudseek/internal/parser"
	"github.com/cloudseek/cloudseek/internal/provider"
)

// Config tunes the coordinator.
type Config struct {
	FuzzyThreshold   float64
	DetailBatchSize  int
	TermConcurrency  int
	QueryTimeout     time.Duration
	MaxAnimeVariants int
	OriginCountries  []string
	RegionPriority   []string
}

// DefaultConfig returns the coordinator defaults.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:   0.3,
		DetailBatchSize:  15,
		TermConcurrency:  20,
		QueryTimeout:     30 * time.Second,
		MaxAnimeVariants: 5,
		OriginCountries:  []string{"JP", "KR", "CN"},
		RegionPriority:   []string{"US", "GB", "CA", "AU"},
	}
}

// ConfigFromSearch converts the file configuration.
func ConfigFromSearch(sc config.SearchConfig) Config {
	return Config{
		FuzzyThreshold:   sc.FuzzyThreshold,
		DetailBatchSize:  sc.DetailBatchSize,
		TermConcurrency:  sc.TermConcurrency,
		QueryTimeout:     sc.QueryTimeout,
		MaxAnimeVariants: sc.MaxAnimeVariants,
		OriginCountries:  sc.OriginCountries,
		RegionPriority:   sc.RegionPriority,
	}
}

// AliasSource supplies manual search titles per identifier.
type AliasSource interface {
	Lookup(id string) []string
}

// Deps are the coordinator's collaborators. Metadata, Aliases and Metrics
// may be nil.
type Deps struct {
	Providers *provider.Registry
	Metadata  metadata.Provider
	Aliases   AliasSource
	Parser    *parser.Parser
	Absolute  *absolute.Processor
	Metrics   *metrics.Metrics
}

// Coordinator runs queries through the matching phases. It is safe for
// concurrent use; every query owns its own state.
type Coordinator struct {
	deps   Deps
	cfg    Config
	logger zerolog.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(deps Deps, cfg Config, logger zerolog.Logger) *Coordinator {
	if deps.Parser == nil {
		deps.Parser = parser.New(nil)
	}
	if deps.Absolute == nil {
		deps.Absolute = absolute.New(nil, logger)
	}
	if deps.Providers == nil {
		deps.Providers = provider.NewRegistry()
	}
	if cfg.DetailBatchSize <= 0 {
		cfg.DetailBatchSize = DefaultConfig().DetailBatchSize
	}
	if cfg.TermConcurrency <= 0 {
		cfg.TermConcurrency = DefaultConfig().TermConcurrency
	}
	return &Coordinator{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With().Str("component", "search").Logger(),
	}
}

// Coordinate runs one query to completion. Collaborator failures degrade the
// query instead of failing it. Only invalid input, the query deadline and
// caller cancellation produce an error; on a deadline the result is empty.
func (c *Coordinator) Coordinate(ctx context.Context, req SearchRequest) (*Result, error) {
	start := time.Now()
	contentType := string(req.ContentType)

	if err := req.Validate(); err != nil {
		c.deps.Metrics.ObserveQuery(contentType, "invalid", 0, time.Since(start))
		return nil, err
	}
	prov, err := c.deps.Providers.Lookup(req.Provider)
	if err != nil {
		c.deps.Metrics.ObserveQuery(contentType, "invalid", 0, time.Since(start))
		return nil, &InputError{Field: "provider", Reason: err.Error(), Err: err}
	}

	threshold := c.cfg.FuzzyThreshold
	if req.FuzzyThreshold != nil {
		threshold = *req.FuzzyThreshold
	}

	queryID := uuid.NewString()
	q := &query{
		Coordinator: c,
		req:         req,
		provider:    prov,
		threshold:   threshold,
		result:      &Result{QueryID: queryID},
		logger: c.logger.With().
			Str("queryId", queryID).
			Str("provider", string(prov.Kind())).
			Str("contentType", contentType).
			Logger(),
	}

	runCtx := ctx
	if c.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.QueryTimeout)
		defer cancel()
	}

	q.logger.Info().Str("title", req.Title).Msg("Starting search")

	if err := q.run(runCtx); err != nil {
		q.result.Results = []*media.MatchedVideo{}
		switch {
		case ctx.Err() != nil:
			c.deps.Metrics.ObserveQuery(contentType, "canceled", 0, time.Since(start))
			return q.result, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded):
			c.deps.Metrics.ObserveQuery(contentType, "timeout", 0, time.Since(start))
			q.logger.Warn().Dur("timeout", c.cfg.QueryTimeout).Msg("Search timed out")
			return q.result, fmt.Errorf("%w after %s: %w", ErrQueryTimeout, c.cfg.QueryTimeout, err)
		default:
			c.deps.Metrics.ObserveQuery(contentType, "error", 0, time.Since(start))
			return q.result, err
		}
	}

	outcome := "match"
	if len(q.result.Results) == 0 {
		outcome = "no_match"
	}
	c.deps.Metrics.ObserveQuery(contentType, outcome, len(q.result.Results), time.Since(start))

	q.logger.Info().
		Int("results", len(q.result.Results)).
		Int("terms", len(q.result.Terms)).
		Dur("duration", time.Since(start)).
		Msg("Search completed")
	return q.result, nil
}

// query is the state of one Coordinate call.
type query struct {
	*Coordinator
	req       SearchRequest
	provider  provider.Provider
	threshold float64
	logger    zerolog.Logger

	alternates []metadata.AlternateTitle
	catalog    []*media.Candidate
	matches    []*match
	result     *Result
}

func (q *query) enter(p Phase) {
	q.result.Phases = append(q.result.Phases, p)
	q.deps.Metrics.PhaseEntered(string(p))
	q.logger.Debug().Str("phase", string(p)).Msg("Entering phase")
}

// run drives the state machine. A returned error is always a context error.
func (q *query) run(ctx context.Context) error {
	q.enter(PhasePreparing)
	if err := q.prepare(ctx); err != nil {
		return err
	}

	q.enter(PhaseTitleMatching)
	ok, err := q.matchTitles(ctx)
	if err != nil {
		return err
	}
	if !ok {
		q.result.Results = []*media.MatchedVideo{}
		q.enter(PhaseDone)
		return nil
	}

	if !q.req.isSeries() {
		q.result.Results = q.movieResults(ctx)
		q.enter(PhaseDone)
		return ctx.Err()
	}

	season, episode := *q.req.Season, *q.req.Episode
	var results []*media.MatchedVideo
	if len(q.matches) > 0 {
		q.enter(PhaseContentAnalysis)
		results, err = q.analyze(ctx, q.matches, season, episode, nil)
		if err != nil {
			return err
		}
	}

	if len(results) == 0 && season > 0 {
		q.enter(PhaseAnimeFallback)
		results, err = q.animeFallback(ctx, season, episode)
		if err != nil {
			return err
		}
	}

	if q.result.AbsoluteEpisode != nil {
		q.deps.Absolute.ProcessAbsoluteEpisodes(results, q.result.AbsoluteEpisode)
	}
	if results == nil {
		results = []*media.MatchedVideo{}
	}
	q.result.Results = results
	q.enter(PhaseDone)
	return nil
}

// prepare resolves the absolute episode and alternate titles concurrently,
// then builds the search terms. Metadata failures only narrow the terms.
func (q *query) prepare(ctx context.Context) error {
	meta := q.deps.Metadata
	id := strings.TrimSpace(q.req.ImdbID)

	if meta != nil && id != "" {
		g, gctx := errgroup.WithContext(ctx)
		if q.req.isSeries() && *q.req.Season > 0 {
			g.Go(func() error {
				mapping, err := meta.ResolveAbsoluteEpisode(gctx, id, *q.req.Season, *q.req.Episode)
				if err != nil {
					q.metadataFailure(err, "resolve_absolute")
					return nil
				}
				q.result.AbsoluteEpisode = mapping
				return nil
			})
		}
		g.Go(func() error {
			titles, err := meta.FetchAlternateTitles(gctx, id, q.req.ContentType)
			if err != nil {
				q.metadataFailure(err, "alternate_titles")
				return nil
			}
			q.alternates = titles
			return nil
		})
		_ = g.Wait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var aliases []string
	if q.deps.Aliases != nil && id != "" {
		aliases = q.deps.Aliases.Lookup(id)
	}
	q.result.Terms = BuildSearchTerms(q.req.Title, aliases, q.alternates)

	ev := q.logger.Debug().Strs("terms", q.result.Terms).Int("alternates", len(q.alternates))
	if q.result.AbsoluteEpisode != nil {
		ev = ev.Int("absolute", q.result.AbsoluteEpisode.AbsoluteEpisode)
	}
	ev.Msg("Prepared search terms")
	return nil
}

func (q *query) metadataFailure(err error, operation string) {
	if errors.Is(err, metadata.ErrNotFound) {
		q.logger.Debug().Str("operation", operation).Msg("Metadata has no data")
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	q.deps.Metrics.CollaboratorFailure("metadata", operation)
	q.logger.Warn().Err(err).Str("operation", operation).Msg("Metadata lookup failed, continuing without it")
}

func (q *query) providerFailure(err error, operation string) {
	q.deps.Metrics.CollaboratorFailure("provider", operation)
	q.logger.Warn().Err(err).Str("operation", operation).Msg("Provider call failed")
}

// matchTitles is Phase 1. It reports false when the provider could not be
// listed, which ends the query with no results.
func (q *query) matchTitles(ctx context.Context) (bool, error) {
	catalog, err := q.fetchCatalog(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		q.providerFailure(err, "list")
		return false, nil
	}
	q.catalog = catalog

	q.matches, err = q.matchCandidates(ctx, q.catalog, q.result.Terms)
	if err != nil {
		return false, err
	}

	q.logger.Debug().
		Int("catalog", len(q.catalog)).
		Int("matches", len(q.matches)).
		Msg("Title matching finished")
	return true, nil
}

// fetchCatalog lists the provider, falling back to per-term search when
// bulk listing is not offered.
func (q *query) fetchCatalog(ctx context.Context) ([]*media.Candidate, error) {
	catalog, err := q.provider.BulkList(ctx, q.req.APIKey)
	if err == nil {
		return catalog, nil
	}
	if !errors.Is(err, provider.ErrBulkUnsupported) {
		return nil, fmt.Errorf("failed to list provider: %w", err)
	}

	lists := make([][]*media.Candidate, len(q.result.Terms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.cfg.TermConcurrency)
	for i, term := range q.result.Terms {
		g.Go(func() error {
			found, err := q.provider.SearchByTitle(gctx, q.req.APIKey, term, q.threshold)
			if err != nil {
				return fmt.Errorf("failed to search provider for %q: %w", term, err)
			}
			lists[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mergeCandidates(lists), nil
}

// matchCandidates prefilters candidates, parses the survivors and scores
// them against terms.
func (q *query) matchCandidates(ctx context.Context, candidates []*media.Candidate, terms []string) ([]*match, error) {
	prepared := prepareTerms(terms)
	if len(prepared) == 0 || len(candidates) == 0 {
		return nil, nil
	}

	pool := candidates
	if q.threshold < 1 {
		pool = prefilter(candidates, prepared)
	}
	for _, c := range pool {
		if c.ParsedInfo == nil {
			c.ParsedInfo = q.deps.Parser.Parse(c.Name)
		}
	}
	return matchTerms(ctx, pool, prepared, q.threshold, q.cfg.TermConcurrency)
}

// movieResults turns Phase-1 matches into results. Containers resolve to
// their largest non-sample video when the file list is known.
func (q *query) movieResults(ctx context.Context) []*media.MatchedVideo {
	results := make([]*media.MatchedVideo, 0, len(q.matches))
	for _, m := range q.matches {
		c := m.candidate
		video := &media.VideoFile{Name: c.Name, Size: c.Size, ParsedInfo: c.ParsedInfo}
		if c.Container {
			if v := c.LargestVideo(); v != nil {
				video = v
				if video.ParsedInfo == nil {
					video.ParsedInfo = q.deps.Parser.Parse(video.Name)
				}
			}
		}
		if r := q.buildResult(ctx, m, video); r != nil {
			results = append(results, r)
		}
	}
	return results
}

// buildResult resolves the stream URL. A file whose URL cannot be built is
// not playable and is dropped.
func (q *query) buildResult(ctx context.Context, m *match, video *media.VideoFile) *media.MatchedVideo {
	c := m.candidate
	url, err := q.provider.BuildStreamURL(ctx, q.req.APIKey, c.ID, video)
	if err != nil {
		q.providerFailure(err, "stream_url")
		return nil
	}

	r := &media.MatchedVideo{
		ID:          c.ID,
		Source:      string(q.provider.Kind()),
		Video:       *video,
		MatchedTerm: m.term,
		Score:       m.score,
	}
	r.Video.StreamURL = url
	if c.Container {
		r.ContainerName = c.Name
	}
	return r
}
