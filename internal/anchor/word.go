package anchor

import (
	"strings"

	"pdf-highlighter/internal/document"
	"pdf-highlighter/internal/logger"
	"pdf-highlighter/internal/normalize"
	"pdf-highlighter/internal/similarity"
)

const (
	// mergeThreshold is the similarity a speculative hyphen merge must exceed.
	mergeThreshold = 0.7
	// fuzzyThreshold is the similarity the best-match scan must exceed.
	fuzzyThreshold = 0.8
)

// Locator anchors words and sentences on the pages of a document.
type Locator struct {
	doc document.Provider
}

// NewLocator creates a Locator reading geometry from doc.
func NewLocator(doc document.Provider) *Locator {
	return &Locator{doc: doc}
}

// Word returns the boxes of word on page. An empty result means the word could
// not be anchored.
func (l *Locator) Word(page int, word string) []document.Rect {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil
	}

	if rects := l.doc.SearchExact(page, word); len(rects) > 0 {
		return rects
	}

	tokens := l.doc.Tokens(page)
	if len(tokens) == 0 {
		return nil
	}

	target := normalize.Token(word)
	if target == "" {
		return nil
	}
	candidates := mergeForTarget(tokens, target)
	if rects := canonicalMatches(candidates, target); len(rects) > 0 {
		return rects
	}

	for _, v := range variants(word) {
		if rects := l.doc.SearchExact(page, v); len(rects) > 0 {
			logger.Debug("word anchored by variant", logger.String("word", word), logger.String("variant", v))
			return rects
		}
		vt := normalize.Token(v)
		if vt == "" {
			continue
		}
		if rects := canonicalMatches(mergeForTarget(tokens, vt), vt); len(rects) > 0 {
			logger.Debug("word anchored by variant", logger.String("word", word), logger.String("variant", v))
			return rects
		}
	}

	if rects := morphologicalMatches(candidates, target); len(rects) > 0 {
		logger.Debug("word anchored by stem", logger.String("word", word))
		return rects
	}

	if r, ok := bestMatch(candidates, target); ok {
		return []document.Rect{r}
	}

	logger.Debug("word not anchored", logger.Int("page", page), logger.String("word", word))
	return nil
}

// canonicalMatches returns every candidate equal to target once edge
// punctuation is ignored.
func canonicalMatches(candidates []pageToken, target string) []document.Rect {
	want := bare(target)
	if want == "" {
		return nil
	}
	var out []document.Rect
	for _, c := range candidates {
		if bare(c.canonical) == want {
			out = append(out, c.rect)
		}
	}
	return out
}

// morphologicalMatches finds page tokens that are inflections of target: a page
// token whose own suffix-stripped form equals target, or one sharing its stem.
func morphologicalMatches(candidates []pageToken, target string) []document.Rect {
	want := bare(target)
	wantStem := stem(target)
	if want == "" {
		return nil
	}

	var out []document.Rect
	for _, c := range candidates {
		b := bare(c.canonical)
		matched := false
		for _, v := range variants(b) {
			if v == want {
				matched = true
				break
			}
		}
		if !matched && wantStem != "" && stem(b) == wantStem {
			matched = true
		}
		if matched {
			out = append(out, c.rect)
		}
	}
	return out
}

// bestMatch returns the candidate most similar to target, if its similarity
// exceeds fuzzyThreshold. The first of equally good candidates wins.
func bestMatch(candidates []pageToken, target string) (document.Rect, bool) {
	var best document.Rect
	bestSim := 0.0
	for _, c := range candidates {
		sim := similarity.Score(target, c.canonical)
		if sim > bestSim && sim > fuzzyThreshold {
			bestSim = sim
			best = c.rect
		}
	}
	return best, bestSim > 0
}
