package episode

import (
	"regexp"
	"strings"
)

// RomanSeason is a season expressed as a Roman numeral, e.g. "Overlord II - 05".
type RomanSeason struct {
	Season    int    `json:"season"`
	Episode   *int   `json:"episode,omitempty"`
	RomanText string `json:"romanText"`
}

var romanValues = map[string]int{
	"i": 1, "ii": 2, "iii": 3, "iv": 4, "v": 5,
	"vi": 6, "vii": 7, "viii": 8, "ix": 9, "x": 10,
}

var (
	// Bare numerals must be upper case and directly followed by an episode
	// number; a lone "I" is never a season.
	bareRomanRe = regexp.MustCompile(`(?:^|[ ._])(VIII|VII|VI|IV|IX|III|II|V|X)[ ._]+(?:-[ ._]+)?(?:EP?|Ep|ep|e)?(\d{1,3})(?:[ ._\[(v]|$)`)

	writtenRomanRe     = regexp.MustCompile(`(?i)(?:^|[^a-z])(?:season|saison)[ ._]+(viii|vii|vi|iv|ix|iii|ii|i|v|x)(?:[^a-z0-9]|$)`)
	writtenRomanTailRe = regexp.MustCompile(`(?i)^[ ._]*-?[ ._]*(?:ep?\.?|episode)?[ ._]*(\d{1,3})(?:[^0-9]|$)`)
)

// ParseRomanSeason finds a Roman-numeral season. It returns nil when text
// already carries an SxxEyy marker.
func ParseRomanSeason(text string) *RomanSeason {
	if HasExplicitSeasonEpisode(text) {
		return nil
	}

	if loc := writtenRomanRe.FindStringSubmatchIndex(text); loc != nil {
		roman := text[loc[2]:loc[3]]
		season := romanValues[strings.ToLower(roman)]
		if validRomanSeason(season) {
			result := &RomanSeason{Season: season, RomanText: roman}
			if m := writtenRomanTailRe.FindStringSubmatch(text[loc[3]:]); m != nil {
				if ep := atoi(m[1]); ValidEpisode(ep) {
					result.Episode = &ep
				}
			}
			return result
		}
	}

	for _, m := range bareRomanRe.FindAllStringSubmatch(text, -1) {
		season := romanValues[strings.ToLower(m[1])]
		ep := atoi(m[2])
		if !validRomanSeason(season) || !ValidEpisode(ep) {
			continue
		}
		return &RomanSeason{Season: season, Episode: &ep, RomanText: m[1]}
	}
	return nil
}

func validRomanSeason(s int) bool {
	return s >= MinRomanSeason && s <= MaxRomanSeason
}
