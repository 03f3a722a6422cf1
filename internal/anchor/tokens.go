// Package anchor maps words and sentences back onto page geometry.
//
// Word anchoring tries, in order: an exact whole-word search, a canonical
// comparison over page tokens with speculative hyphen merging, morphological
// variants, and finally a best-match fuzzy scan. Sentence anchoring runs a
// local sequence alignment over the page tokens that mixes textual and spatial
// similarity.
//
// Page geometry is read from the provider on every call and never cached.
package anchor

import (
	"strings"

	"github.com/kljensen/snowball"

	"pdf-highlighter/internal/document"
	"pdf-highlighter/internal/normalize"
	"pdf-highlighter/internal/similarity"
)

// pageToken is a page token (possibly two merged tokens) with its canonical form.
type pageToken struct {
	text      string
	canonical string
	rect      document.Rect
}

// bare strips the punctuation the normalizer keeps at token edges.
func bare(canonical string) string {
	return strings.Trim(canonical, ".,;:!?'-")
}

// mergeForTarget canonicalizes tokens, merging a hyphen-terminated token with
// its successor only when that brings the pair closer to target.
func mergeForTarget(tokens []document.Token, target string) []pageToken {
	out := make([]pageToken, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		text, rect := tokens[i].Text, tokens[i].Rect

		if i+1 < len(tokens) && normalize.EndsWithHyphen(text) && strings.TrimSpace(tokens[i+1].Text) != "" {
			merged := normalize.TrimHyphens(text) + tokens[i+1].Text
			origSim := similarity.Score(target, normalize.Token(text))
			mergedSim := similarity.Score(target, normalize.Token(merged))
			if mergedSim > origSim && mergedSim > mergeThreshold {
				text = merged
				rect = rect.Union(tokens[i+1].Rect)
				i++
			}
		}

		if c := normalize.Token(text); c != "" {
			out = append(out, pageToken{text: text, canonical: c, rect: rect})
		}
	}
	return out
}

// mergeEager canonicalizes tokens, always joining a hyphen-terminated token with
// its successor.
func mergeEager(tokens []document.Token) []pageToken {
	out := make([]pageToken, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		text, rect := tokens[i].Text, tokens[i].Rect

		if i+1 < len(tokens) && normalize.EndsWithHyphen(text) {
			text = normalize.TrimHyphens(text) + tokens[i+1].Text
			rect = rect.Union(tokens[i+1].Rect)
			i++
		}

		if c := normalize.Token(text); c != "" {
			out = append(out, pageToken{text: text, canonical: c, rect: rect})
		}
	}
	return out
}

// variants derives inflection-stripped forms of word: 's, s, ed and ing.
func variants(word string) []string {
	type rule struct {
		suffix string
		minLen int
	}
	rules := []rule{{"'s", 2}, {"s", 1}, {"ed", 2}, {"ing", 3}}

	var out []string
	seen := map[string]bool{word: true}
	for _, r := range rules {
		if len(word) > r.minLen && strings.HasSuffix(word, r.suffix) {
			v := word[:len(word)-len(r.suffix)]
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// stem returns the English Porter2 stem of a canonical token, or "" when the
// token has no usable stem.
func stem(canonical string) string {
	w := bare(canonical)
	if len(w) < 3 || strings.ContainsAny(w, " -'") {
		return ""
	}
	s, err := snowball.Stem(w, "english", true)
	if err != nil {
		return ""
	}
	return s
}
