package parser

import (
	"regexp"
	"strings"
)

// tag is one entry of an ordered detection table. The first matching entry
// of a table wins, so more specific patterns come first.
type tag struct {
	value string
	re    *regexp.Regexp
}

// tok wraps p so it only matches as a standalone token.
func tok(p string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:` + p + `)(?:[^a-z0-9]|$)`)
}

var (
	resolutionTags = []tag{
		{"2160p", tok(`2160p|4k|uhd`)},
		{"1440p", tok(`1440p`)},
		{"1080p", tok(`1080[pi]`)},
		{"720p", tok(`720p`)},
		{"576p", tok(`576p`)},
		{"480p", tok(`480p`)},
		{"360p", tok(`360p`)},
	}

	sourceTags = []tag{
		{"Remux", tok(`remux|bdremux`)},
		{"BluRay", tok(`blu-?ray|bdrip|brrip|bd25|bd50|bdmv`)},
		{"WEB-DL", tok(`web[ .-]?dl`)},
		{"WEBRip", tok(`web-?rip`)},
		{"WEB", tok(`web`)},
		{"HDTV", tok(`hdtv`)},
		{"HDRip", tok(`hdrip`)},
		{"DVDRip", tok(`dvd-?rip|dvd-?r|dvd5|dvd9`)},
		{"SDTV", tok(`sdtv|pdtv|dsr`)},
		{"CAM", tok(`cam|hdcam|camrip`)},
		{"TS", tok(`telesync|hdts`)},
	}

	codecTags = []tag{
		{"x265", tok(`x\.?265|h\.?265|hevc`)},
		{"x264", tok(`x\.?264|h\.?264|avc`)},
		{"AV1", tok(`av1`)},
		{"VP9", tok(`vp9`)},
		{"XviD", tok(`xvid`)},
		{"DivX", tok(`divx`)},
		{"MPEG2", tok(`mpeg-?2`)},
	}

	audioTags = []tag{
		{"Atmos", tok(`atmos`)},
		{"DTS-X", tok(`dts[ .:-]?x`)},
		{"DTS-HD", tok(`dts[ .-]?hd(?:[ .-]?ma)?`)},
		{"TrueHD", tok(`truehd`)},
		{"DTS", tok(`dts`)},
		{"DD+", tok(`ddp(?:\d\.\d)?|dd\+(?:\d\.\d)?|e-?ac-?3`)},
		{"DD", tok(`dd(?:\d\.\d)?|ac-?3`)},
		{"AAC", tok(`aac(?:\d\.\d)?`)},
		{"FLAC", tok(`flac`)},
		{"Opus", tok(`opus`)},
		{"MP3", tok(`mp3`)},
		{"PCM", tok(`l?pcm`)},
	}

	hdrTags = []tag{
		{"DV", tok(`dv|dovi|dolby[ .]?vision`)},
		{"HDR10+", tok(`hdr10\+|hdr10plus`)},
		{"HDR10", tok(`hdr10`)},
		{"HDR", tok(`hdr`)},
		{"HLG", tok(`hlg`)},
	}

	bitDepthRe  = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(8|10|12)[ .-]?bits?(?:[^a-z]|$)`)
	channelsRe  = regexp.MustCompile(`(?:^|[^0-9])([1-9]\.[0-2])(?:[^0-9]|$)`)
	frameRateRe = regexp.MustCompile(`(?i)(?:^|[^0-9])(\d{2,3}(?:\.\d{1,3})?) ?fps(?:[^a-z]|$)`)
)

// languageTokens maps release-name tokens to language tags.
var languageTokens = map[string]string{
	"multi":      "multi",
	"dual":       "dual",
	"vostfr":     "vostfr",
	"subfrench":  "vostfr",
	"french":     "fr",
	"truefrench": "fr",
	"vf":         "fr",
	"vff":        "fr",
	"vfq":        "fr",
	"vfi":        "fr",
	"fre":        "fr",
	"fra":        "fr",
	"english":    "en",
	"eng":        "en",
	"italian":    "it",
	"ita":        "it",
	"spanish":    "es",
	"spa":        "es",
	"esp":        "es",
	"castellano": "es",
	"latino":     "es-419",
	"lat":        "es-419",
	"german":     "de",
	"ger":        "de",
	"deutsch":    "de",
	"japanese":   "ja",
	"jap":        "ja",
	"jpn":        "ja",
	"korean":     "ko",
	"kor":        "ko",
	"russian":    "ru",
	"rus":        "ru",
	"portuguese": "pt",
	"por":        "pt",
	"hindi":      "hi",
	"hin":        "hi",
	"chinese":    "zh",
	"chi":        "zh",
	"arabic":     "ar",
	"ara":        "ar",
}

var tokenSplitRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

func firstTag(tags []tag, text string) string {
	for _, t := range tags {
		if t.re.MatchString(text) {
			return t.value
		}
	}
	return ""
}

// detectLanguages returns language tags in order of first appearance.
func detectLanguages(text string) []string {
	var langs []string
	seen := make(map[string]bool)
	for _, token := range tokenSplitRe.Split(strings.ToLower(text), -1) {
		lang, ok := languageTokens[token]
		if !ok || seen[lang] {
			continue
		}
		seen[lang] = true
		langs = append(langs, lang)
	}
	return langs
}

func firstGroup(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// parseQualityInfo fills the technical tags from text, usually the part of
// the name after the title.
func parseQualityInfo(text string, parsed *ParsedTitle) {
	parsed.Resolution = firstTag(resolutionTags, text)
	parsed.Source = firstTag(sourceTags, text)
	parsed.Codec = firstTag(codecTags, text)
	parsed.Audio = firstTag(audioTags, text)
	parsed.HDR = firstTag(hdrTags, text)
	parsed.Languages = detectLanguages(text)

	if bits := firstGroup(bitDepthRe, text); bits != "" {
		parsed.BitDepth = bits + "bit"
	}
	parsed.Channels = firstGroup(channelsRe, text)
	if fps := firstGroup(frameRateRe, text); fps != "" {
		parsed.FrameRate = fps + "fps"
	}
}
