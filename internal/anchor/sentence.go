package anchor

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"pdf-highlighter/internal/document"
	"pdf-highlighter/internal/logger"
	"pdf-highlighter/internal/normalize"
	"pdf-highlighter/internal/similarity"
)

const (
	textWeight    = 0.8
	spatialWeight = 0.2
	gapPenalty    = 0.5
	// minScorePerToken scales the acceptance threshold by sentence length.
	minScorePerToken = 0.5
	tieEpsilon       = 1e-9
)

// Alignment is the outcome of aligning a sentence against a page.
type Alignment struct {
	// Rects are the matched page token boxes in reading order. Empty when the
	// alignment scored below Threshold.
	Rects []document.Rect
	// Score is the best local alignment score.
	Score float64
	// Threshold is the minimum accepted score for this sentence.
	Threshold float64
	// Tokens is the number of matchable sentence tokens.
	Tokens int
}

// Accepted reports whether the alignment cleared its threshold.
func (a Alignment) Accepted() bool {
	return a.Tokens > 0 && a.Score >= a.Threshold
}

// Sentence returns the boxes of the page tokens matched by sentence, one box
// per token. An empty result means the sentence could not be anchored.
func (l *Locator) Sentence(page int, sentence string) []document.Rect {
	return l.AlignSentence(page, sentence).Rects
}

// AlignSentence aligns sentence against the tokens of page.
func (l *Locator) AlignSentence(page int, sentence string) Alignment {
	var sent []string
	for _, t := range normalize.Tokens(sentence) {
		if t != "" {
			sent = append(sent, t)
		}
	}
	if len(sent) == 0 {
		return Alignment{}
	}

	pageTokens := mergeEager(l.doc.Tokens(page))
	a := align(sent, pageTokens)
	if !a.Accepted() {
		logger.Debug("sentence not anchored",
			logger.Int("page", page),
			logger.Float64("score", a.Score),
			logger.Float64("threshold", a.Threshold),
			logger.String("sentence", truncate(sentence, 80)))
		a.Rects = nil
	}
	return a
}

// align runs the local alignment of sent (canonical tokens) over page.
func align(sent []string, page []pageToken) Alignment {
	m, n := len(sent), len(page)
	result := Alignment{Threshold: minScorePerToken * float64(m), Tokens: m}
	if n == 0 {
		return result
	}

	widths := make([]float64, n)
	heights := make([]float64, n)
	for j, p := range page {
		widths[j] = p.rect.Width()
		heights[j] = p.rect.Height()
	}
	avgW := stat.Mean(widths, nil)
	avgH := stat.Mean(heights, nil)

	// spatial[j] scores how naturally page token j follows token j-1.
	spatial := make([]float64, n+1)
	for j := 2; j <= n; j++ {
		prev, cur := page[j-2].rect, page[j-1].rect
		dx := math.Abs(cur.X0 - prev.X1)
		dy := math.Abs(cur.Y0 - prev.Y0)
		spatial[j] = math.Exp(-(sq(ratio(dx, avgW)) + sq(ratio(dy, avgH))))
	}

	H := mat.NewDense(m+1, n+1, nil)
	text := mat.NewDense(m+1, n+1, nil)

	bestI, bestJ := 0, 0
	best := 0.0
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			ts := similarity.Score(sent[i-1], page[j-1].canonical)
			text.Set(i, j, ts)

			sp := 1.0
			if i > 1 && j > 1 {
				sp = spatial[j]
			}
			score := textWeight*ts + spatialWeight*sp

			h := max(0,
				H.At(i-1, j-1)+score,
				H.At(i-1, j)-gapPenalty,
				H.At(i, j-1)-gapPenalty)
			H.Set(i, j, h)

			if h > best {
				best, bestI, bestJ = h, i, j
			}
		}
	}

	result.Score = best
	if best < result.Threshold {
		return result
	}

	var path []document.Rect
	i, j := bestI, bestJ
	for i > 0 && j > 0 && H.At(i, j) > 0 {
		h := H.At(i, j)
		diag := H.At(i-1, j-1) + text.At(i, j)
		up := H.At(i-1, j) - gapPenalty
		left := H.At(i, j-1) - gapPenalty

		switch step(h, diag, up, left) {
		case stepDiagonal:
			path = append(path, page[j-1].rect)
			i--
			j--
		case stepUp:
			i--
		default:
			j--
		}
	}

	for a, b := 0, len(path)-1; a < b; a, b = a+1, b-1 {
		path[a], path[b] = path[b], path[a]
	}
	result.Rects = path
	return result
}

type backStep int

const (
	stepDiagonal backStep = iota
	stepUp
	stepLeft
)

// step picks the backtracking transition for a cell holding h. Exact
// explanations win in the order diagonal, up, left; otherwise the transition
// with the smallest residual wins, ties broken in the same order.
func step(h, diag, up, left float64) backStep {
	switch {
	case math.Abs(h-diag) <= tieEpsilon:
		return stepDiagonal
	case math.Abs(h-up) <= tieEpsilon:
		return stepUp
	case math.Abs(h-left) <= tieEpsilon:
		return stepLeft
	}

	dd, du, dl := math.Abs(h-diag), math.Abs(h-up), math.Abs(h-left)
	closest := min(dd, du, dl)
	switch closest {
	case dd:
		return stepDiagonal
	case du:
		return stepUp
	default:
		return stepLeft
	}
}

func sq(x float64) float64 { return x * x }

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
