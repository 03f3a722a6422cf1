package document

import (
	"strings"
	"unicode"
)

// Provider supplies read-only page geometry. Page indexes are zero based.
// Implementations must be safe for concurrent reads.
type Provider interface {
	// PageCount returns the number of pages.
	PageCount() int
	// PageRect returns the page box; ok is false for an out-of-range index.
	PageRect(page int) (r Rect, ok bool)
	// Tokens returns the page tokens in reading order.
	Tokens(page int) []Token
	// SearchExact returns the boxes of every whole-word occurrence of text.
	SearchExact(page int, text string) []Rect
	// TextInRect returns the text of the tokens lying inside r.
	TextInRect(page int, r Rect) string
}

// Page is the geometry of one page held in memory.
type Page struct {
	Box    Rect    `json:"box"`
	Tokens []Token `json:"tokens"`
}

// Memory is a Provider over pre-extracted pages.
type Memory struct {
	Pages []Page `json:"pages"`
}

// NewMemory returns a provider over pages.
func NewMemory(pages ...Page) *Memory {
	return &Memory{Pages: pages}
}

func (m *Memory) page(i int) (Page, bool) {
	if i < 0 || i >= len(m.Pages) {
		return Page{}, false
	}
	return m.Pages[i], true
}

func (m *Memory) PageCount() int { return len(m.Pages) }

func (m *Memory) PageRect(page int) (Rect, bool) {
	p, ok := m.page(page)
	return p.Box, ok
}

// Tokens returns a copy of the page tokens.
func (m *Memory) Tokens(page int) []Token {
	p, ok := m.page(page)
	if !ok {
		return nil
	}
	out := make([]Token, len(p.Tokens))
	copy(out, p.Tokens)
	return out
}

func (m *Memory) SearchExact(page int, text string) []Rect {
	p, ok := m.page(page)
	if !ok {
		return nil
	}
	return SearchTokens(p.Tokens, text)
}

func (m *Memory) TextInRect(page int, r Rect) string {
	p, ok := m.page(page)
	if !ok {
		return ""
	}
	return TokensInRect(p.Tokens, r)
}

func trimWordPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
}

// SearchTokens finds whole-word, case-insensitive occurrences of text in
// tokens. Surrounding punctuation on either side is ignored. A phrase matches
// consecutive tokens; each occurrence yields one box per line it touches.
func SearchTokens(tokens []Token, text string) []Rect {
	words := strings.Fields(text)
	for i := range words {
		words[i] = trimWordPunct(words[i])
	}
	if len(words) == 0 || words[0] == "" {
		return nil
	}

	var out []Rect
	for start := 0; start+len(words) <= len(tokens); start++ {
		matched := true
		for k, w := range words {
			if !strings.EqualFold(trimWordPunct(tokens[start+k].Text), w) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		out = append(out, lineBoxes(tokens[start:start+len(words)])...)
		start += len(words) - 1
	}
	return out
}

// lineBoxes merges consecutive tokens that share a line into one box.
func lineBoxes(tokens []Token) []Rect {
	var out []Rect
	for i, t := range tokens {
		if i > 0 && sameLine(tokens[i-1].Rect, t.Rect) {
			out[len(out)-1] = out[len(out)-1].Union(t.Rect)
			continue
		}
		out = append(out, t.Rect)
	}
	return out
}

// sameLine reports whether b continues the line of a to the right.
func sameLine(a, b Rect) bool {
	h := min(a.Height(), b.Height())
	return abs(a.Y0-b.Y0) < h*0.5 && b.X0 >= a.X0
}

// TokensInRect joins the tokens whose area lies at least half inside r,
// keeping their reading order.
func TokensInRect(tokens []Token, r Rect) string {
	var hits []Token
	for _, t := range tokens {
		area := t.Rect.Area()
		if area == 0 {
			continue
		}
		if t.Rect.Intersect(r).Area() >= area*0.5 {
			hits = append(hits, t)
		}
	}
	parts := make([]string, len(hits))
	for i, t := range hits {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
