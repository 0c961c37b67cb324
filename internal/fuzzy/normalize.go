package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	apostropheRegex    = regexp.MustCompile(`['\x60\x{2018}\x{2019}\x{02BC}]`)
	specialCharsRegex  = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	multipleSpaceRegex = regexp.MustCompile(`\s+`)
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "and": true,
	"le": true, "la": true, "les": true, "l": true, "de": true, "des": true, "du": true,
	"der": true, "die": true, "das": true, "el": true, "los": true,
}

// NormalizeTitle lowercases title, folds diacritics, strips apostrophes and
// turns remaining punctuation into single spaces. Non-Latin letters survive.
func NormalizeTitle(title string) string {
	normalized := foldDiacritics(strings.ToLower(title))
	normalized = apostropheRegex.ReplaceAllString(normalized, "")
	normalized = specialCharsRegex.ReplaceAllString(normalized, " ")
	normalized = multipleSpaceRegex.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Keywords returns the normalized words of title without stop words. A title
// made only of stop words keeps them all.
func Keywords(title string) []string {
	words := strings.Fields(NormalizeTitle(title))
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !stopWords[w] {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return words
	}
	return kept
}

// KeywordForm joins the keywords of title with single spaces.
func KeywordForm(title string) string {
	return strings.Join(Keywords(title), " ")
}
