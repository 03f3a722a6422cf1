package document

import (
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-highlighter/internal/types"
)

// line lays words out left to right on one line starting at (x, y).
func line(x, y float64, words ...string) []Token {
	var out []Token
	for _, w := range words {
		width := float64(len(w)) * 6
		out = append(out, Token{Text: w, Rect: Rect{X0: x, Y0: y, X1: x + width, Y1: y + 12}})
		x += width + 4
	}
	return out
}

func TestRectOps(t *testing.T) {
	a := NewRect(10, 20, 0, 0)
	assert.Equal(t, Rect{0, 0, 10, 20}, a)
	assert.Equal(t, 10.0, a.Width())
	assert.Equal(t, 20.0, a.Height())
	assert.Equal(t, 200.0, a.Area())

	b := Rect{5, 5, 15, 15}
	assert.Equal(t, Rect{0, 0, 15, 20}, a.Union(b))
	assert.Equal(t, Rect{5, 5, 10, 15}, a.Intersect(b))
	assert.True(t, a.Intersect(Rect{50, 50, 60, 60}).IsEmpty())
	assert.Equal(t, 0.0, Rect{5, 5, 1, 1}.Area())

	assert.Equal(t, Rect{-2, 18, 12, 22}, Rect{0, 20, 10, 20}.Expand(2, 2))
	assert.Equal(t, Rect{0, 0, 10, 20}, Rect{-5, -5, 50, 50}.Clamp(a))
	assert.Equal(t, Rect{0, 0, 20, 40}, a.Scale(2))
	assert.Equal(t, Rect{0, 0, 15, 20}, UnionAll([]Rect{a, b}))
	assert.Equal(t, Rect{}, UnionAll(nil))
}

func TestMemoryProvider(t *testing.T) {
	box := Rect{X1: 600, Y1: 800}
	m := NewMemory(Page{Box: box, Tokens: line(10, 10, "Hello", "world.")})

	assert.Equal(t, 1, m.PageCount())

	r, ok := m.PageRect(0)
	assert.True(t, ok)
	assert.Equal(t, box, r)
	_, ok = m.PageRect(3)
	assert.False(t, ok)

	tokens := m.Tokens(0)
	require.Len(t, tokens, 2)
	tokens[0].Text = "mutated"
	assert.Equal(t, "Hello", m.Tokens(0)[0].Text, "Tokens returns a copy")

	assert.Nil(t, m.Tokens(-1))
	assert.Nil(t, m.SearchExact(5, "Hello"))
	assert.Equal(t, "", m.TextInRect(5, box))
}

func TestSearchTokens(t *testing.T) {
	tokens := append(line(10, 10, "The", "Network", "learns,", "a"), line(10, 30, "neural", "network.")...)

	t.Run("single word case-insensitive with punctuation", func(t *testing.T) {
		got := SearchTokens(tokens, "network")
		require.Len(t, got, 2)
		assert.Equal(t, tokens[1].Rect, got[0])
		assert.Equal(t, tokens[5].Rect, got[1])
	})

	t.Run("whole words only", func(t *testing.T) {
		assert.Empty(t, SearchTokens(tokens, "learn"))
		assert.Empty(t, SearchTokens(tokens, "net"))
	})

	t.Run("phrase on one line yields one box", func(t *testing.T) {
		got := SearchTokens(tokens, "neural network")
		require.Len(t, got, 1)
		assert.Equal(t, tokens[4].Rect.Union(tokens[5].Rect), got[0])
	})

	t.Run("phrase across lines yields a box per line", func(t *testing.T) {
		got := SearchTokens(tokens, "a neural")
		require.Len(t, got, 2)
		assert.Equal(t, tokens[3].Rect, got[0])
		assert.Equal(t, tokens[4].Rect, got[1])
	})

	t.Run("empty query", func(t *testing.T) {
		assert.Empty(t, SearchTokens(tokens, "  "))
		assert.Empty(t, SearchTokens(tokens, "..."))
	})
}

func TestTokensInRect(t *testing.T) {
	tokens := append(line(10, 10, "first", "line"), line(10, 30, "second", "line")...)

	all := TokensInRect(tokens, Rect{0, 0, 600, 800})
	assert.Equal(t, "first line second line", all)

	top := TokensInRect(tokens, Rect{0, 0, 600, 20})
	assert.Equal(t, "first line", top)

	// a box only grazing the second line's top edge does not pick it up
	assert.Equal(t, "first line", TokensInRect(tokens, Rect{0, 5, 600, 33}))
}

func TestWordsFromGlyphs(t *testing.T) {
	glyph := func(s string, x, y, w float64) pdf.Text {
		return pdf.Text{S: s, X: x, Y: y, W: w, FontSize: 10}
	}
	glyphs := []pdf.Text{
		// second line listed first to check ordering
		glyph("b", 100, 680, 5),
		glyph("y", 105, 680, 5),
		glyph("H", 100, 700, 6),
		glyph("i", 106, 700, 3),
		glyph(" ", 109, 700, 3),
		glyph("t", 112, 700, 4),
		glyph("o", 116, 700, 5),
		glyph("u", 130, 700, 5), // gap of 9 > 2.5 starts a new word
		glyph("", 140, 700, 5),
	}

	tokens := WordsFromGlyphs(glyphs, 792)
	require.Len(t, tokens, 4)
	assert.Equal(t, []string{"Hi", "to", "u", "by"}, []string{tokens[0].Text, tokens[1].Text, tokens[2].Text, tokens[3].Text})

	hi := tokens[0].Rect
	assert.InDelta(t, 100, hi.X0, 1e-9)
	assert.InDelta(t, 109, hi.X1, 1e-9)
	assert.InDelta(t, 792-708, hi.Y0, 1e-9)
	assert.InDelta(t, 792-698, hi.Y1, 1e-9)
	assert.Less(t, tokens[0].Rect.Y0, tokens[3].Rect.Y0, "first line is above the second")

	assert.Nil(t, WordsFromGlyphs(nil, 792))
}

func TestOpenPDFMissingFile(t *testing.T) {
	_, err := OpenPDF(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrFileNotFound))
}
