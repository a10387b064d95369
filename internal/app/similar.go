package app

import "sort"

// levenshtein returns the edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

// trigrams returns the set of 3-character substrings of s; callers pass s
// already lowercased.
func trigrams(s string) map[string]struct{} {
	r := []rune(s)
	set := make(map[string]struct{})
	if len(r) < 3 {
		set[string(r)] = struct{}{}
		return set
	}
	for i := 0; i+3 <= len(r); i++ {
		set[string(r[i:i+3])] = struct{}{}
	}
	return set
}

func shareTrigram(a, b map[string]struct{}) bool {
	small, big := a, b
	if len(a) > len(b) {
		small, big = b, a
	}
	for g := range small {
		if _, ok := big[g]; ok {
			return true
		}
	}
	return false
}

// SimilarMatch is one fuzzy-match candidate: a known name and its edit
// distance from the query (the real distance, which exceeds 3 when only the
// trigram rule matched).
type SimilarMatch struct {
	Name     string
	Distance int
}

// FindSimilar returns entries of candidates within Levenshtein distance 3 of
// query, OR sharing at least one 3-gram with it, sorted by distance then
// lexicographically (spec §4.6: fuzzy interface-name lookup).
func FindSimilar(query string, candidates []string) []SimilarMatch {
	qLower := toLower(query)
	qGrams := trigrams(qLower)
	var out []SimilarMatch
	for _, c := range candidates {
		cLower := toLower(c)
		d := levenshtein(qLower, cLower)
		if d <= 3 || shareTrigram(qGrams, trigrams(cLower)) {
			out = append(out, SimilarMatch{Name: c, Distance: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func toLower(s string) string {
	r := []rune(s)
	for i, c := range r {
		if c >= 'A' && c <= 'Z' {
			r[i] = c + ('a' - 'A')
		}
	}
	return string(r)
}
