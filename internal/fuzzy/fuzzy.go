// Package fuzzy scores how well a search term occurs inside a longer name.
package fuzzy

// Score returns the edit distance of the best approximate occurrence of
// pattern anywhere in text, divided by the pattern length. 0 is an exact
// substring match and 1 means nothing in common. Both inputs are compared
// rune by rune as given; callers normalize case and punctuation.
func Score(pattern, text string) float64 {
	p := []rune(pattern)
	if len(p) == 0 {
		return 1
	}
	d := substringDistance(p, []rune(text))
	if d >= len(p) {
		return 1
	}
	return float64(d) / float64(len(p))
}

// Match reports whether pattern occurs in text within threshold.
func Match(pattern, text string, threshold float64) bool {
	return Score(pattern, text) <= threshold
}

// substringDistance is Sellers' algorithm: Levenshtein distance where the
// match may start and end anywhere in text.
func substringDistance(p, t []rune) int {
	m := len(p)
	prev := make([]int, m+1)
	cur := make([]int, m+1)
	for i := range prev {
		prev[i] = i
	}

	best := prev[m]
	for j := 1; j <= len(t); j++ {
		cur[0] = 0
		for i := 1; i <= m; i++ {
			cost := 1
			if p[i-1] == t[j-1] {
				cost = 0
			}
			cur[i] = min(prev[i-1]+cost, prev[i]+1, cur[i-1]+1)
		}
		if cur[m] < best {
			best = cur[m]
		}
		prev, cur = cur, prev
	}
	return best
}

// Distance is the Levenshtein distance between a and b.
func Distance(a, b string) int {
	s, t := []rune(a), []rune(b)
	if len(s) == 0 {
		return len(t)
	}
	if len(t) == 0 {
		return len(s)
	}

	prev := make([]int, len(t)+1)
	cur := make([]int, len(t)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s); i++ {
		cur[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if s[i-1] == t[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j-1]+cost, prev[j]+1, cur[j-1]+1)
		}
		prev, cur = cur, prev
	}
	return prev[len(t)]
}
