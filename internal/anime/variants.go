package anime

import (
	"strings"

	"github.com/cloudseek/cloudseek/internal/metadata"
)

// TitleVariants orders the titles to try against an anime catalog: titles
// from the origin countries first, then regional titles in priority order,
// then the query title and finally everything else. Duplicates are dropped
// case-insensitively and the list is capped at limit (0 means no cap).
func TitleVariants(title string, alternates []metadata.AlternateTitle, originCountries, regionPriority []string, limit int) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(t string) {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, t)
	}

	byCountry := func(codes []string) {
		for _, code := range codes {
			for _, a := range alternates {
				if strings.EqualFold(a.CountryCode, code) {
					add(a.Title)
				}
			}
		}
	}

	byCountry(originCountries)
	byCountry(regionPriority)
	add(title)
	for _, a := range alternates {
		add(a.Title)
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
