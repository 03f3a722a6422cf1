package document

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"pdf-highlighter/internal/logger"
	"pdf-highlighter/internal/types"
)

const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
	// ascent and descent as fractions of the font size
	glyphAscent  = 0.8
	glyphDescent = 0.2
	// wordGapRatio is the horizontal gap, relative to the font size, that starts a new word
	wordGapRatio = 0.25
)

// PDF is a Provider backed by a PDF file. Geometry for every page is
// extracted once when the file is opened.
type PDF struct {
	*Memory
	Path string
}

// OpenPDF validates path with pdfcpu, then extracts word geometry with ledongthuc/pdf.
func OpenPDF(path string) (*PDF, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewAppError(types.ErrFileNotFound, "PDF file not found", err)
		}
		return nil, types.NewAppError(types.ErrDocument, "cannot access PDF file", err)
	}

	ctx, err := api.ReadContextFile(path)
	if err != nil {
		logger.Error("failed to read PDF context", err, logger.String("path", path))
		return nil, types.NewAppError(types.ErrDocument, "failed to read PDF", err)
	}
	pageCount := ctx.PageCount

	var boxes []Rect
	if dims, err := ctx.PageDims(); err == nil {
		for _, d := range dims {
			boxes = append(boxes, Rect{X1: d.Width, Y1: d.Height})
		}
	} else {
		logger.Warn("failed to read page dimensions", logger.String("path", path), logger.Err(err))
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, types.NewAppError(types.ErrDocument, "failed to open PDF", err)
	}
	defer f.Close()

	if n := r.NumPage(); n < pageCount || pageCount == 0 {
		pageCount = n
	}

	pages := make([]Page, pageCount)
	total := 0
	for i := 0; i < pageCount; i++ {
		p := r.Page(i + 1)
		box := pageBox(p, boxes, i)
		pages[i] = Page{Box: box}
		if p.V.IsNull() {
			continue
		}
		glyphs, err := pageGlyphs(p)
		if err != nil {
			logger.Warn("failed to extract page text", logger.Int("page", i), logger.Err(err))
			continue
		}
		pages[i].Tokens = WordsFromGlyphs(glyphs, box.Height())
		total += len(pages[i].Tokens)
	}

	logger.Info("PDF geometry extracted",
		logger.String("path", path),
		logger.Int("pages", pageCount),
		logger.Int("tokens", total))

	return &PDF{Memory: NewMemory(pages...), Path: path}, nil
}

func pageBox(p pdf.Page, boxes []Rect, i int) Rect {
	if i < len(boxes) && !boxes[i].IsEmpty() {
		return boxes[i]
	}
	if !p.V.IsNull() {
		mediaBox := p.V.Key("MediaBox")
		if mediaBox.Kind() == pdf.Array && mediaBox.Len() >= 4 {
			w := mediaBox.Index(2).Float64() - mediaBox.Index(0).Float64()
			h := mediaBox.Index(3).Float64() - mediaBox.Index(1).Float64()
			if w > 0 && h > 0 {
				return Rect{X1: w, Y1: h}
			}
		}
	}
	return Rect{X1: defaultPageWidth, Y1: defaultPageHeight}
}

// pageGlyphs reads the positioned text runs of p. The content parser panics on
// some malformed streams, which is reported as an error.
func pageGlyphs(p pdf.Page) (glyphs []pdf.Text, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("content stream: %v", rec)
		}
	}()
	return p.Content().Text, nil
}

// WordsFromGlyphs groups positioned glyph runs into word tokens in reading
// order. Glyph coordinates are PDF user space (origin bottom-left, y is the
// baseline); the returned rects are flipped to a top-left origin using
// pageHeight.
func WordsFromGlyphs(glyphs []pdf.Text, pageHeight float64) []Token {
	var texts []pdf.Text
	for _, g := range glyphs {
		if g.S != "" {
			texts = append(texts, g)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	// top of page first, then left to right
	sort.SliceStable(texts, func(i, j int) bool {
		if texts[i].Y != texts[j].Y {
			return texts[i].Y > texts[j].Y
		}
		return texts[i].X < texts[j].X
	})

	var rows [][]pdf.Text
	for _, t := range texts {
		if n := len(rows); n > 0 {
			last := rows[n-1][0]
			tol := max(last.FontSize, t.FontSize) * 0.5
			if tol <= 0 {
				tol = 2
			}
			if abs(last.Y-t.Y) <= tol {
				rows[n-1] = append(rows[n-1], t)
				continue
			}
		}
		rows = append(rows, []pdf.Text{t})
	}

	var tokens []Token
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })

		var b strings.Builder
		var cur Rect
		flush := func() {
			if b.Len() > 0 {
				tokens = append(tokens, Token{Text: b.String(), Rect: cur})
				b.Reset()
			}
		}
		var prevEnd, prevSize float64
		for _, g := range row {
			if strings.TrimSpace(g.S) == "" {
				flush()
				continue
			}
			size := g.FontSize
			if size <= 0 {
				size = 10
			}
			r := NewRect(g.X, pageHeight-(g.Y+size*glyphAscent), g.X+g.W, pageHeight-(g.Y-size*glyphDescent))
			if b.Len() > 0 && g.X-prevEnd > max(size, prevSize)*wordGapRatio {
				flush()
			}
			if b.Len() == 0 {
				cur = r
			} else {
				cur = cur.Union(r)
			}
			b.WriteString(g.S)
			prevEnd, prevSize = g.X+g.W, size
		}
		flush()
	}
	return tokens
}
