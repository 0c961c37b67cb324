package search

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cloudseek/cloudseek/internal/fuzzy"
	"github.com/cloudseek/cloudseek/internal/media"
)

// typoMinLength is the shortest keyword allowed one edit in the prefilter.
const typoMinLength = 5

// match is a Phase-1 hit: the candidate and the first term that found it.
type match struct {
	candidate *media.Candidate
	term      string
	score     float64
}

// termKeywords is a term in its normalized and keyword forms.
type termKeywords struct {
	raw        string
	normalized string
	keywords   []string
}

func prepareTerms(terms []string) []termKeywords {
	out := make([]termKeywords, 0, len(terms))
	for _, t := range terms {
		n := fuzzy.NormalizeTitle(t)
		if n == "" {
			continue
		}
		out = append(out, termKeywords{raw: t, normalized: n, keywords: fuzzy.Keywords(t)})
	}
	return out
}

// prefilter keeps the candidates whose normalized name contains at least one
// keyword of some term, either as a substring or, for keywords of
// typoMinLength runes or more, as a name word one edit away.
func prefilter(candidates []*media.Candidate, terms []termKeywords) []*media.Candidate {
	var kept []*media.Candidate
	for _, c := range candidates {
		name := fuzzy.NormalizeTitle(c.Name)
		words := strings.Fields(name)
		if containsAnyKeyword(name, words, terms) {
			kept = append(kept, c)
		}
	}
	return kept
}

func containsAnyKeyword(name string, words []string, terms []termKeywords) bool {
	for _, t := range terms {
		for _, kw := range t.keywords {
			if strings.Contains(name, kw) {
				return true
			}
			if len([]rune(kw)) < typoMinLength {
				continue
			}
			for _, w := range words {
				if fuzzy.Distance(kw, w) <= 1 {
					return true
				}
			}
		}
	}
	return false
}

// scoreCandidate is the better of the term's score against the full name
// and against the parsed title.
func scoreCandidate(term termKeywords, c *media.Candidate) float64 {
	score := fuzzy.Score(term.normalized, fuzzy.NormalizeTitle(c.Name))
	if c.ParsedInfo != nil && c.ParsedInfo.Title != "" {
		score = min(score, fuzzy.Score(term.normalized, fuzzy.NormalizeTitle(c.ParsedInfo.Title)))
	}
	return score
}

// matchTerms scores every candidate against every term with at most limit
// terms in flight. Candidates are only read. The merge walks terms in order
// so the first term that matched a candidate is the one recorded.
func matchTerms(ctx context.Context, candidates []*media.Candidate, terms []termKeywords, threshold float64, limit int) ([]*match, error) {
	perTerm := make([][]*match, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, term := range terms {
		g.Go(func() error {
			var hits []*match
			for _, c := range candidates {
				if err := gctx.Err(); err != nil {
					return err
				}
				if s := scoreCandidate(term, c); s <= threshold {
					hits = append(hits, &match{candidate: c, term: term.raw, score: s})
				}
			}
			perTerm[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []*match
	seen := make(map[*media.Candidate]bool)
	for _, hits := range perTerm {
		for _, m := range hits {
			if seen[m.candidate] {
				continue
			}
			seen[m.candidate] = true
			merged = append(merged, m)
		}
	}
	return merged, nil
}

// mergeCandidates concatenates per-term search results, dropping repeated IDs.
func mergeCandidates(lists [][]*media.Candidate) []*media.Candidate {
	var out []*media.Candidate
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, c := range list {
			if c == nil || seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	return out
}
