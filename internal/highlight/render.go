package highlight

import (
	"sort"

	"pdf-highlighter/internal/document"
)

const (
	// Sentence token boxes larger than these fractions of the page width are
	// extraction artifacts and are not drawn.
	maxSentenceRectWidth  = 0.2
	maxSentenceRectHeight = 0.1
)

// Kind distinguishes what a Shape was drawn for.
type Kind string

const (
	KindWord     Kind = "word"
	KindSentence Kind = "sentence"
)

// Shape is one rectangle to draw on a page.
type Shape struct {
	Kind  Kind          `json:"kind"`
	Key   string        `json:"key"` // word text or sentence id
	Rect  document.Rect `json:"rect"`
	Color Color         `json:"color"`
	// Label is set on the first shape of an entity only.
	Label string `json:"label,omitempty"`
}

// Render returns the shapes for every active highlight on page. Words come
// first, sorted by text, then sentences in insertion order. The first token
// of each sentence is drawn darker to mark where its translation is anchored.
func (m *Manager) Render(page int, pageWidth float64) []Shape {
	ps := m.page(page, false)
	if ps == nil {
		return nil
	}

	var out []Shape

	words := make([]string, 0, len(ps.wordMarks))
	for w, mark := range ps.wordMarks {
		if mark.Active {
			words = append(words, w)
		}
	}
	sort.Strings(words)
	for _, w := range words {
		mark := ps.wordMarks[w]
		for i, r := range mark.Rects {
			s := Shape{Kind: KindWord, Key: w, Rect: r, Color: mark.Color}
			if i == 0 {
				s.Label = mark.Translation
			}
			out = append(out, s)
		}
	}

	records, active := m.SentencesOnPage(page)
	if len(active) == 0 {
		return out
	}
	for _, rec := range records {
		mark, ok := ps.sentenceMarks[rec.ID]
		if !ok || !mark.Active {
			continue
		}
		first := true
		for _, r := range mark.Rects {
			if pageWidth > 0 && (r.Width() > maxSentenceRectWidth*pageWidth || r.Height() > maxSentenceRectHeight*pageWidth) {
				continue
			}
			s := Shape{Kind: KindSentence, Key: rec.ID, Rect: r, Color: mark.Color}
			if first {
				s.Color = mark.Color.Darker(FirstTokenDarkness)
				s.Label = mark.Translation
				first = false
			}
			out = append(out, s)
		}
	}
	return out
}
