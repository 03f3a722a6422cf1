// Package similarity scores how alike two canonical tokens are.
package similarity

import (
	"strings"

	"pdf-highlighter/internal/normalize"
)

const (
	// Inflection is returned for plural and possessive pairs such as dogs/dog.
	Inflection = 0.95
	// Hyphenation is returned when the tokens differ only by hyphens.
	Hyphenation = 0.92
	// MaxLengthDelta is the relative length difference beyond which tokens never match.
	MaxLengthDelta = 0.4
	vowelBump      = 0.2
	vowels         = "aeiou"
)

// Score returns a similarity in [0,1] between a and b. The result does not
// depend on argument order.
func Score(a, b string) float64 {
	a = normalize.ASCII(a)
	b = normalize.ASCII(b)

	if a == b {
		return 1.0
	}
	if isSuffixPair(a, b, "s") || isSuffixPair(b, a, "s") {
		return Inflection
	}
	if isSuffixPair(a, b, "'s") || isSuffixPair(b, a, "'s") {
		return Inflection
	}
	if hyphenFree(a, b) || hyphenFree(b, a) {
		return Hyphenation
	}

	la, lb := len(a), len(b)
	maxLen := max(la, lb)
	if float64(abs(la-lb))/float64(maxLen) > MaxLengthDelta {
		return 0.0
	}

	d := Levenshtein(a, b)
	sim := 1.0 - float64(d)/float64(maxLen)

	// British/American vowel swaps such as "grey"/"gray"
	if d == 1 && la == lb {
		for i := 0; i < la; i++ {
			if a[i] != b[i] {
				if strings.IndexByte(vowels, a[i]) >= 0 && strings.IndexByte(vowels, b[i]) >= 0 {
					sim = min(1.0, sim+vowelBump)
				}
				break
			}
		}
	}

	return max(0.0, min(1.0, sim))
}

// isSuffixPair reports whether long is short followed by suffix.
func isSuffixPair(long, short, suffix string) bool {
	return strings.HasSuffix(long, suffix) && long[:len(long)-len(suffix)] == short
}

func hyphenFree(hyphenated, plain string) bool {
	return strings.Contains(hyphenated, "-") && strings.ReplaceAll(hyphenated, "-", "") == plain
}

// Levenshtein returns the edit distance between a and b counted in bytes.
// Callers pass ASCII canonical tokens.
func Levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
