package parser

import (
	"path/filepath"
	"regexp"
	"strings"
)

// VideoExtensions contains supported video file extensions.
var VideoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".m4v":  true,
	".ts":   true,
	".wmv":  true,
	".mov":  true,
	".webm": true,
	".flv":  true,
	".mpg":  true,
	".mpeg": true,
	".m2ts": true,
	".vob":  true,
	".iso":  true,
	".divx": true,
	".ogm":  true,
	".3gp":  true,
}

// sidecarExtensions are stripped before parsing but never count as video.
var sidecarExtensions = map[string]bool{
	".srt": true,
	".ass": true,
	".ssa": true,
	".sub": true,
	".idx": true,
	".vtt": true,
	".nfo": true,
	".txt": true,
}

var (
	// A directory or bare name that is only a marker, e.g. "Sample/" or "proof.jpg".
	sampleSegmentRe = regexp.MustCompile(`(?i)^(?:samples?|trailers?|proofs?)$`)
	// A marker closing the name, e.g. "movie-sample.mkv" or "Show.S01E02.trailer.mp4".
	sampleSuffixRe = regexp.MustCompile(`(?i)[ ._-](?:sample|trailer|proof)$`)
)

// IsVideoFile checks if a filename has a video extension.
func IsVideoFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return VideoExtensions[ext]
}

// IsSampleFile checks if a filename indicates it's a sample, trailer or proof.
// Markers only count as a path segment or as the last token of the name, so
// titles such as "Trailer Park Boys" stay matchable.
func IsSampleFile(filename string) bool {
	segments := strings.Split(strings.ReplaceAll(filename, `\`, "/"), "/")
	base := segments[len(segments)-1]
	for _, dir := range segments[:len(segments)-1] {
		if sampleSegmentRe.MatchString(dir) {
			return true
		}
	}

	name := strings.TrimSuffix(base, filepath.Ext(base))
	return sampleSegmentRe.MatchString(name) ||
		sampleSuffixRe.MatchString(name) ||
		sampleSuffixRe.MatchString(base)
}

// StripExtension removes a known video or sidecar extension and returns the
// remaining name plus the container (video extension without the dot).
func StripExtension(filename string) (name, container string) {
	ext := filepath.Ext(filename)
	lower := strings.ToLower(ext)
	switch {
	case VideoExtensions[lower]:
		return strings.TrimSuffix(filename, ext), strings.TrimPrefix(lower, ".")
	case sidecarExtensions[lower]:
		return strings.TrimSuffix(filename, ext), ""
	}
	return filename, ""
}
