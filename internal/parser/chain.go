package parser

import "github.com/cloudseek/cloudseek/internal/episode"

// decision accumulates the season/episode reading of one name.
type decision struct {
	season          *int
	episode         *int
	endEpisode      *int
	seasonDefaulted bool
	// seasonExplicit is set once a season-bearing pattern has claimed the name.
	seasonExplicit bool
	absolute       *int
	roman          *episode.RomanSeason
	pattern        string
}

// A decisionStep refines d and reports whether the decision is final.
type decisionStep func(name string, base baseline, d *decision) (final bool)

// Precedence runs top to bottom: a complete baseline reading is trusted
// outright, then the episode library, absolute inference, conflict
// resolution and finally the Roman-numeral fallback.
var decisionSteps = []decisionStep{
	trustBaseline,
	applyEpisodePatterns,
	inferAbsolute,
	dropConflictingAbsolute,
	applyRomanFallback,
}

func decideSeasonEpisode(name string, base baseline) decision {
	var d decision
	for _, step := range decisionSteps {
		if step(name, base, &d) {
			break
		}
	}
	return d
}

func trustBaseline(_ string, base baseline, d *decision) bool {
	d.season = base.season
	d.episode = base.episode
	d.endEpisode = base.endEpisode
	d.seasonExplicit = base.season != nil
	d.pattern = base.pattern
	return base.season != nil && base.episode != nil
}

func applyEpisodePatterns(name string, _ baseline, d *decision) bool {
	m := episode.ParseEpisode(name)
	if m == nil {
		return false
	}

	d.pattern = m.Pattern
	d.episode = intPtr(m.Episode)
	if m.EndEpisode > 0 {
		d.endEpisode = intPtr(m.EndEpisode)
	}

	switch {
	case m.SeasonExplicit:
		d.season = intPtr(m.Season)
		d.seasonExplicit = true
		d.seasonDefaulted = false
	case d.season == nil:
		d.season = intPtr(m.Season)
		d.seasonDefaulted = true
	}
	return false
}

func inferAbsolute(name string, _ baseline, d *decision) bool {
	d.absolute = episode.ParseAbsoluteEpisode(name)
	return false
}

// dropConflictingAbsolute discards an absolute number once an explicit
// season-bearing pattern has matched.
func dropConflictingAbsolute(_ string, _ baseline, d *decision) bool {
	if d.absolute != nil && d.seasonExplicit {
		d.absolute = nil
	}
	return false
}

func applyRomanFallback(name string, base baseline, d *decision) bool {
	if d.absolute != nil {
		return true
	}

	incomplete := d.season == nil || d.seasonDefaulted || d.episode == nil
	suspiciousFirst := base.season != nil && *base.season == 1
	if !incomplete && !suspiciousFirst {
		return true
	}

	r := episode.ParseRomanSeason(name)
	if r == nil || (!incomplete && r.Season <= 1) {
		return true
	}

	d.roman = r
	d.season = intPtr(r.Season)
	d.seasonDefaulted = false
	d.seasonExplicit = true
	if r.Episode != nil {
		d.episode = intPtr(*r.Episode)
	}
	d.absolute = nil
	d.pattern = "roman"
	return true
}
