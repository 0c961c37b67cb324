package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloudseek/cloudseek/internal/media"
	"github.com/cloudseek/cloudseek/internal/search"
)

type searchFlags struct {
	contentType string
	imdbID      string
	season      int
	episode     int
	provider    string
	apiKey      string
	threshold   float64
	json        bool
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search <title>",
		Short: "Run a single search against the configured providers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ctx.ensure()
			if err != nil {
				return err
			}

			req, err := f.request(cmd, args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			runCtx, cancel := context.WithTimeout(cmd.Context(), a.queryTimeout())
			defer cancel()

			result, err := a.search.Coordinate(runCtx, req)
			if err != nil && !errors.Is(err, search.ErrQueryTimeout) {
				return err
			}
			if f.json {
				return writeJSON(cmd, result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderResults(result))
			return err
		},
	}

	cmd.Flags().StringVarP(&f.contentType, "type", "t", "movie", "Content type: movie or series")
	cmd.Flags().StringVar(&f.imdbID, "imdb", "", "IMDb identifier used for metadata lookups")
	cmd.Flags().IntVarP(&f.season, "season", "s", 0, "Season number (series only)")
	cmd.Flags().IntVarP(&f.episode, "episode", "e", 0, "Episode number (series only)")
	cmd.Flags().StringVarP(&f.provider, "provider", "p", "", "Provider to search")
	cmd.Flags().StringVar(&f.apiKey, "key", os.Getenv("CLOUDSEEK_PROVIDER_KEY"), "Provider API key")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "Fuzzy threshold override in [0, 1]")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print the result as JSON")
	return cmd
}

func (f *searchFlags) request(cmd *cobra.Command, title string) (search.SearchRequest, error) {
	ct, ok := media.ParseContentType(f.contentType)
	if !ok {
		return search.SearchRequest{}, fmt.Errorf("unknown content type %q", f.contentType)
	}
	req := search.SearchRequest{
		Title:       title,
		ContentType: ct,
		ImdbID:      f.imdbID,
		Provider:    f.provider,
		APIKey:      f.apiKey,
	}
	if cmd.Flags().Changed("season") {
		s := f.season
		req.Season = &s
	}
	if cmd.Flags().Changed("episode") {
		e := f.episode
		req.Episode = &e
	}
	if cmd.Flags().Changed("threshold") {
		t := f.threshold
		req.FuzzyThreshold = &t
	}
	return req, nil
}

func renderResults(result *search.Result) string {
	if result == nil || len(result.Results) == 0 {
		return "No matches"
	}
	rows := make([][]string, 0, len(result.Results))
	for _, r := range result.Results {
		rows = append(rows, []string{
			r.Video.Name,
			r.ContainerName,
			episodeLabel(r),
			strconv.FormatFloat(r.Score, 'f', 3, 64),
			r.MatchedTerm,
			r.Video.StreamURL,
		})
	}
	return renderTable(
		[]string{"File", "Container", "Episode", "Score", "Term", "Stream"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func episodeLabel(r *media.MatchedVideo) string {
	p := r.Video.ParsedInfo
	if p == nil || !p.HasSeasonEpisode() {
		return ""
	}
	label := fmt.Sprintf("S%02dE%02d", *p.Season, *p.Episode)
	switch {
	case r.AnimeMapping != nil:
		label += fmt.Sprintf(" (from S%02dE%02d)", r.AnimeMapping.OriginalSeason, r.AnimeMapping.OriginalEpisode)
	case r.IsAbsoluteMatch:
		label += " (absolute)"
	}
	return label
}
