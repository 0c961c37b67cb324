package search

import (
	"strings"

	"github.com/cloudseek/cloudseek/internal/fuzzy"
	"github.com/cloudseek/cloudseek/internal/metadata"
)

// BuildSearchTerms orders the terms Phase 1 matches with: the query title,
// manual aliases, raw alternate titles, then the keyword form of each of
// those. Duplicates are dropped case-insensitively keeping the first casing.
func BuildSearchTerms(title string, aliases []string, alternates []metadata.AlternateTitle) []string {
	raw := make([]string, 0, 1+len(aliases)+len(alternates))
	raw = append(raw, title)
	raw = append(raw, aliases...)
	for _, a := range alternates {
		raw = append(raw, a.Title)
	}

	var terms []string
	seen := make(map[string]bool)
	add := func(t string) {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			return
		}
		seen[key] = true
		terms = append(terms, t)
	}

	for _, t := range raw {
		add(t)
	}
	for _, t := range raw {
		add(fuzzy.KeywordForm(t))
	}
	return terms
}
