package validate

import (
	"sort"
	"strings"
)

// similarity is a matching-blocks ratio over lowercased strings:
// 2*matches/(len(a)+len(b)), with matches found by recursively taking the
// longest common substring. Equivalent inputs score 1.0, disjoint 0.0.
func similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	m := matchingChars(a, b)
	return 2.0 * float64(m) / float64(len(a)+len(b))
}

func matchingChars(a, b string) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:ai], b[:bi])
	total += matchingChars(a[ai+size:], b[bi+size:])
	return total
}

func longestCommonSubstring(a, b string) (ai, bi, size int) {
	// prev[j] = length of common suffix of a[:i] and b[:j].
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					ai = i - size
					bi = j - size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return ai, bi, size
}

// tokenOverlap is a dice coefficient over whitespace tokens:
// 2*|A∩B|/(|A|+|B|). It keeps "Building 999" away from "Building 1" (the
// shared word alone scores 0.5) while a char-level ratio would pull them
// together.
func tokenOverlap(a, b string) float64 {
	at := strings.Fields(strings.ToLower(a))
	bt := strings.Fields(strings.ToLower(b))
	if len(at) == 0 || len(bt) == 0 {
		return 0.0
	}
	set := make(map[string]struct{}, len(at))
	for _, t := range at {
		set[t] = struct{}{}
	}
	shared := 0
	for _, t := range bt {
		if _, ok := set[t]; ok {
			shared++
			delete(set, t)
		}
	}
	return 2.0 * float64(shared) / float64(len(at)+len(bt))
}

const maxCandidates = 5

type candidate struct {
	name  string
	score float64
}

// fuzzyCandidates returns known names resembling the input, capped at
// maxCandidates. A name qualifies when the input is a case-insensitive
// substring of it, or when the token overlap reaches the threshold.
// Candidates are ordered by descending char-level similarity, so an exact
// name ranks ahead of its supersets ("Building 1" before "Building 18").
func fuzzyCandidates(input string, universe []string, threshold float64) []string {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return nil
	}

	var matched []candidate
	for _, name := range universe {
		lower := strings.ToLower(name)
		if !strings.Contains(lower, in) && tokenOverlap(in, lower) < threshold {
			continue
		}
		matched = append(matched, candidate{name: name, score: similarity(in, lower)})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].name < matched[j].name
	})

	if len(matched) > maxCandidates {
		matched = matched[:maxCandidates]
	}
	out := make([]string, len(matched))
	for i, c := range matched {
		out[i] = c.name
	}
	return out
}
