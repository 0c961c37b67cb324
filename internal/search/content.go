package search

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/cloudseek/cloudseek/internal/anime"
	"github.com/cloudseek/cloudseek/internal/media"
	"github.com/cloudseek/cloudseek/internal/metadata"
	"github.com/cloudseek/cloudseek/internal/parser"
)

// analyze is Phase 2: fetch file lists for containers that lack them, then
// keep the files that hold season/episode. mapping is attached to every
// result when the numbering came from the anime fallback.
func (q *query) analyze(ctx context.Context, matches []*match, season, episode int, mapping *media.AnimeMapping) ([]*media.MatchedVideo, error) {
	if err := q.fetchDetails(ctx, matches); err != nil {
		return nil, err
	}

	absolute := 0
	if q.result.AbsoluteEpisode != nil {
		absolute = q.result.AbsoluteEpisode.AbsoluteEpisode
	}

	var results []*media.MatchedVideo
	add := func(m *match, v *media.VideoFile) {
		if r := q.buildResult(ctx, m, v); r != nil {
			r.AnimeMapping = mapping
			results = append(results, r)
		}
	}

	for _, m := range matches {
		c := m.candidate
		if !c.Container {
			if parser.IsSampleFile(c.Name) {
				continue
			}
			if episodeMatches(c.ParsedInfo, season, episode, absolute) {
				add(m, &media.VideoFile{Name: c.Name, Size: c.Size, ParsedInfo: c.ParsedInfo})
			}
			continue
		}

		for _, v := range c.Videos {
			if !parser.IsVideoFile(v.Name) || parser.IsSampleFile(v.Name) {
				continue
			}
			if v.ParsedInfo == nil {
				v.ParsedInfo = inheritSeason(q.deps.Parser.Parse(v.Name), c.ParsedInfo)
			}
			if episodeMatches(v.ParsedInfo, season, episode, absolute) {
				add(m, v)
			}
		}
	}

	q.logger.Debug().
		Int("candidates", len(matches)).
		Int("results", len(results)).
		Int("season", season).
		Int("episode", episode).
		Msg("Content analysis finished")
	return results, ctx.Err()
}

// fetchDetails loads file lists in batches of DetailBatchSize. A candidate
// whose details fail is left without files and yields nothing.
func (q *query) fetchDetails(ctx context.Context, matches []*match) error {
	var pending []*media.Candidate
	for _, m := range matches {
		if m.candidate.NeedsDetails() {
			pending = append(pending, m.candidate)
		}
	}

	for start := 0; start < len(pending); start += q.cfg.DetailBatchSize {
		batch := pending[start:min(start+q.cfg.DetailBatchSize, len(pending))]

		g, gctx := errgroup.WithContext(ctx)
		for _, c := range batch {
			g.Go(func() error {
				details, err := q.provider.GetDetails(gctx, q.req.APIKey, c.ID)
				if err != nil {
					if gctx.Err() == nil {
						q.providerFailure(err, "details")
					}
					return nil
				}
				c.Videos = details.Videos
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// episodeMatches is season/episode equality (including multi-episode
// ranges) or equality with the canonical absolute number.
func episodeMatches(info *parser.ParsedTitle, season, episode, absolute int) bool {
	if info == nil {
		return false
	}
	if info.CoversEpisode(season, episode) {
		return true
	}
	return absolute > 0 && info.AbsoluteEpisode != nil && *info.AbsoluteEpisode == absolute
}

// inheritSeason gives a file without a season of its own the season named by
// its container.
func inheritSeason(file, container *parser.ParsedTitle) *parser.ParsedTitle {
	if file == nil || container == nil || container.Season == nil || container.SeasonDefaulted {
		return file
	}
	if file.Season != nil && !file.SeasonDefaulted {
		return file
	}
	if file.Episode == nil {
		return file
	}
	season := *container.Season
	file.Season = &season
	file.SeasonDefaulted = false
	return file
}

// animeFallback is Phase 3: remap season/episode onto the anime catalog's
// season split and re-run content analysis on the Phase-1 candidates. With
// no Phase-1 matches the variant titles are matched against the catalog that
// was already fetched.
func (q *query) animeFallback(ctx context.Context, season, episode int) ([]*media.MatchedVideo, error) {
	meta := q.deps.Metadata
	if meta == nil {
		return nil, nil
	}

	absolute := 0
	if q.result.AbsoluteEpisode != nil {
		absolute = q.result.AbsoluteEpisode.AbsoluteEpisode
	}

	variants := anime.TitleVariants(q.req.Title, q.alternates, q.cfg.OriginCountries, q.cfg.RegionPriority, q.cfg.MaxAnimeVariants)

	var (
		mapping     *media.AnimeMapping
		sourceNames []string
	)
	for _, variant := range variants {
		entries, err := meta.FetchAnimeSeasons(ctx, variant)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if !errors.Is(err, metadata.ErrNotFound) {
				q.metadataFailure(err, "anime_seasons")
			}
			continue
		}
		seasons := anime.GroupSeasons(variant, entries)
		if len(seasons) == 0 {
			continue
		}
		mapping = anime.ComputeRemap(season, episode, seasons, absolute, variant)
		sourceNames = entryTitles(entries)
		break
	}
	if mapping == nil {
		q.logger.Debug().Int("variants", len(variants)).Msg("No anime season remap")
		return nil, nil
	}

	q.logger.Info().
		Int("season", mapping.OriginalSeason).
		Int("episode", mapping.OriginalEpisode).
		Int("mappedSeason", mapping.MappedSeason).
		Int("mappedEpisode", mapping.MappedEpisode).
		Str("source", mapping.SourceTitle).
		Msg("Applying anime season remap")

	matches := q.matches
	if len(matches) == 0 {
		var err error
		matches, err = q.matchCandidates(ctx, q.catalog, append(variants, sourceNames...))
		if err != nil {
			return nil, err
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	return q.analyze(ctx, matches, mapping.MappedSeason, mapping.MappedEpisode, mapping)
}

func entryTitles(entries []metadata.AnimeSeason) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Title)
		out = append(out, e.AlternateTitles...)
	}
	return out
}
