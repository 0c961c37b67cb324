// Package anime translates catalogue season/episode numbers into the
// numbering an anime's own releases use, based on per-season episode counts.
package anime

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cloudseek/cloudseek/internal/fuzzy"
	"github.com/cloudseek/cloudseek/internal/media"
	"github.com/cloudseek/cloudseek/internal/metadata"
)

// Season is one logical season after merging multi-part entries.
type Season struct {
	Number       int
	Title        string
	EpisodeCount int
	Parts        int
}

var (
	partRe         = regexp.MustCompile(`(?i)[\s:,-]*(?:part|cour)\s*(?:\d+|[ivx]+)\s*$`)
	ordinalCourRe  = regexp.MustCompile(`(?i)[\s:,-]*\d+(?:st|nd|rd|th)\s+cour\s*$`)
	trailingPartRe = regexp.MustCompile(`(?i)[\s:,-]*(?:\(part\s*\d+\)|\(cour\s*\d+\))\s*$`)
)

// seasonKey drops trailing part/cour markers so the halves of a split season
// collapse onto one key.
func seasonKey(title string) string {
	t := strings.TrimSpace(title)
	for _, re := range []*regexp.Regexp{trailingPartRe, ordinalCourRe, partRe} {
		t = re.ReplaceAllString(t, "")
	}
	return fuzzy.NormalizeTitle(t)
}

// GroupSeasons turns catalog entries for query into numbered seasons.
// Entries whose title does not start with the query are dropped, entries
// sharing a season key are merged (episode counts summed) and seasons are
// numbered by first air date.
func GroupSeasons(query string, entries []metadata.AnimeSeason) []Season {
	prefix := fuzzy.NormalizeTitle(query)

	sorted := make([]metadata.AnimeSeason, 0, len(entries))
	for _, e := range entries {
		if e.EpisodeCount <= 0 {
			continue
		}
		if prefix != "" && !strings.HasPrefix(fuzzy.NormalizeTitle(e.Title), prefix) {
			continue
		}
		sorted = append(sorted, e)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].AiredDate, sorted[j].AiredDate
		if a.IsZero() || b.IsZero() {
			return false
		}
		return a.Before(b)
	})

	var seasons []Season
	index := make(map[string]int)
	for _, e := range sorted {
		key := seasonKey(e.Title)
		if i, ok := index[key]; ok {
			seasons[i].EpisodeCount += e.EpisodeCount
			seasons[i].Parts++
			continue
		}
		index[key] = len(seasons)
		seasons = append(seasons, Season{
			Number:       len(seasons) + 1,
			Title:        e.Title,
			EpisodeCount: e.EpisodeCount,
			Parts:        1,
		})
	}
	return seasons
}

// ComputeRemap translates season/episode into the grouped numbering.
//
// A season that exists and holds the episode needs no remap (nil). When the
// episode overflows its season the surplus carries into the following
// seasons; the last season absorbs whatever is left. A season absent from
// the grouping is located through absolute when it is known (> 0).
func ComputeRemap(season, episode int, seasons []Season, absolute int, sourceTitle string) *media.AnimeMapping {
	if len(seasons) == 0 || season <= 0 || episode <= 0 {
		return nil
	}

	var (
		idx       int
		remaining int
		abs       int
	)

	if season <= len(seasons) {
		idx = season - 1
		if episode <= seasons[idx].EpisodeCount {
			return nil
		}
		abs = episode
		for _, s := range seasons[:idx] {
			abs += s.EpisodeCount
		}
		remaining = episode
	} else {
		if absolute <= 0 {
			return nil
		}
		idx, remaining, abs = 0, absolute, absolute
		if remaining <= seasons[0].EpisodeCount {
			return &media.AnimeMapping{
				OriginalSeason:  season,
				OriginalEpisode: episode,
				MappedSeason:    1,
				MappedEpisode:   remaining,
				AbsoluteEpisode: abs,
				SourceTitle:     sourceTitle,
			}
		}
	}

	for remaining > seasons[idx].EpisodeCount && idx+1 < len(seasons) {
		remaining -= seasons[idx].EpisodeCount
		idx++
	}
	if idx == season-1 {
		// Overflowed the last known season with nowhere to carry into.
		return nil
	}

	return &media.AnimeMapping{
		OriginalSeason:  season,
		OriginalEpisode: episode,
		MappedSeason:    seasons[idx].Number,
		MappedEpisode:   remaining,
		AbsoluteEpisode: abs,
		SourceTitle:     sourceTitle,
	}
}
