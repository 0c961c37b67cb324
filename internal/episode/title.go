package episode

import (
	"regexp"
	"strings"
)

var (
	episodeMarkerRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)s\d{1,2}[ ._-]?e\d{1,3}(?:[ ._-]?(?:e|-e?)\d{1,3})?`),
		regexp.MustCompile(`(?i)(?:^|[^0-9])\d{1,2}x\d{2,3}`),
		regexp.MustCompile(`\s-\s+\d{1,4}(?:v\d)?`),
	}

	qualityMarkerRe = regexp.MustCompile(`(?i)(?:^|[ ._-])(?:\d{3,4}[pi]|4k|uhd|web[ .-]?dl|web[ .-]?rip|web|blu-?ray|bdrip|brrip|hdtv|hdrip|dvdrip|remux|x\.?26[45]|h\.?26[45]|hevc|avc|xvid|aac|ac3|dts|ddp?|truehd|atmos|multi|vostfr|vff|vf|french|truefrench|proper|repack|internal|\d{1,2}[ .-]?bits?)(?:[^a-z0-9]|$)`)
	bracketRe       = regexp.MustCompile(`[\[(]`)
	separatorRe     = regexp.MustCompile(`[._\s]+`)
	digitsOnlyRe    = regexp.MustCompile(`^[\d\s]+$`)
	fileExtRe       = regexp.MustCompile(`(?i)\.(?:mkv|mp4|avi|m4v|ts|wmv|mov|webm|flv|mpe?g|m2ts|vob|iso|divx|ogm|3gp|srt|ass|ssa|sub|idx|vtt|nfo|txt)$`)
)

// ExtractEpisodeTitle returns the episode name that follows the episode
// marker, e.g. "Pilot" in "Show.S01E01.Pilot.720p". A trailing media or
// subtitle extension is ignored.
func ExtractEpisodeTitle(text string) (string, bool) {
	text = fileExtRe.ReplaceAllString(text, "")
	end := -1
	for _, re := range episodeMarkerRes {
		if loc := re.FindStringIndex(text); loc != nil {
			end = loc[1]
			break
		}
	}
	if end < 0 {
		return "", false
	}

	rest := text[end:]
	cut := len(rest)
	if loc := qualityMarkerRe.FindStringIndex(rest); loc != nil {
		cut = loc[0]
	}
	if loc := bracketRe.FindStringIndex(rest); loc != nil && loc[0] < cut {
		cut = loc[0]
	}

	title := separatorRe.ReplaceAllString(rest[:cut], " ")
	title = strings.Trim(title, " -")
	if len(title) < 2 || digitsOnlyRe.MatchString(title) {
		return "", false
	}
	return title, true
}
