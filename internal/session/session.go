// Package session ties a document, the translation coordinator and the
// highlight manager together: it takes a text selection, translates it, and
// anchors and highlights the results on the selection's page.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"pdf-highlighter/internal/anchor"
	"pdf-highlighter/internal/document"
	"pdf-highlighter/internal/highlight"
	"pdf-highlighter/internal/logger"
	"pdf-highlighter/internal/normalize"
	"pdf-highlighter/internal/translate"
	"pdf-highlighter/internal/types"
)

const (
	// DefaultSelectionTimeout is how long a selection may wait before submission.
	DefaultSelectionTimeout = 300 * time.Second
	// selection context margins, in page units
	contextMarginX = 30
	contextMarginY = 15
)

// Translator is the part of the coordinator a Session needs.
type Translator interface {
	Translate(ctx context.Context, text string, kind translate.Kind) (*translate.Result, error)
}

// Selection is a rectangle of text picked on a page.
type Selection struct {
	Page      int           `json:"page"`
	Rect      document.Rect `json:"rect"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"created_at"`
}

// Options configures a Session.
type Options struct {
	WordColor        highlight.Color
	SentenceColor    highlight.Color
	SelectionTimeout time.Duration
	// Now is the clock, time.Now when nil.
	Now func() time.Time
}

// DefaultOptions returns the built-in colors and timeout.
func DefaultOptions() Options {
	return Options{
		WordColor:        highlight.DefaultWordColor,
		SentenceColor:    highlight.DefaultSentenceColor,
		SelectionTimeout: DefaultSelectionTimeout,
	}
}

// OptionsFromConfig builds Options from cfg, falling back per field.
func OptionsFromConfig(cfg *types.Config) Options {
	opts := DefaultOptions()
	opts.WordColor = highlight.WordColor(cfg.WordColor)
	opts.SentenceColor = highlight.SentenceColor(cfg.SentenceColor)
	if cfg.SelectionTimeoutSeconds > 0 {
		opts.SelectionTimeout = time.Duration(cfg.SelectionTimeoutSeconds) * time.Second
	}
	return opts
}

// Session is the working state of one open document.
type Session struct {
	translator Translator
	manager    *highlight.Manager
	locks      *highlight.PageLocks
	opts       Options

	mu        sync.RWMutex
	doc       document.Provider
	selection *Selection
}

// New creates a Session over doc.
func New(doc document.Provider, translator Translator, opts Options) *Session {
	if opts.SelectionTimeout <= 0 {
		opts.SelectionTimeout = DefaultSelectionTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		translator: translator,
		manager:    highlight.NewManager(anchor.NewLocator(doc)),
		locks:      highlight.NewPageLocks(),
		opts:       opts,
		doc:        doc,
	}
}

// Manager exposes the highlight state for queries and rendering.
func (s *Session) Manager() *highlight.Manager { return s.manager }

// Document returns the open document.
func (s *Session) Document() document.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Open replaces the document. All translations, highlights and the current
// selection are dropped.
func (s *Session) Open(doc document.Provider) {
	s.mu.Lock()
	s.doc = doc
	s.selection = nil
	s.mu.Unlock()
	s.manager.SetAnchorer(anchor.NewLocator(doc))
	logger.Info("document replaced", logger.Int("pages", doc.PageCount()))
}

// Select records the text inside r on page as the current selection.
func (s *Session) Select(page int, r document.Rect) (Selection, error) {
	doc := s.Document()
	box, ok := doc.PageRect(page)
	if !ok {
		return Selection{}, types.NewAppErrorWithDetails(types.ErrInvalidInput, "page out of range", pageDetail(page, doc), nil)
	}
	r = document.NewRect(r.X0, r.Y0, r.X1, r.Y1).Clamp(box)
	text := strings.TrimSpace(doc.TextInRect(page, r))
	if text == "" {
		return Selection{}, types.NewAppError(types.ErrInvalidInput, "selection contains no text", nil)
	}

	sel := Selection{Page: page, Rect: r, Text: text, CreatedAt: s.opts.Now()}
	s.mu.Lock()
	s.selection = &sel
	s.mu.Unlock()
	return sel, nil
}

// Selection returns the current selection.
func (s *Session) Selection() (Selection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selection == nil {
		return Selection{}, false
	}
	return *s.selection, true
}

func (s *Session) checkSelection(sel Selection) error {
	if strings.TrimSpace(sel.Text) == "" {
		return types.NewAppError(types.ErrInvalidInput, "selection contains no text", nil)
	}
	if _, ok := s.Document().PageRect(sel.Page); !ok {
		return types.NewAppErrorWithDetails(types.ErrInvalidInput, "page out of range", pageDetail(sel.Page, s.Document()), nil)
	}
	if age := s.opts.Now().Sub(sel.CreatedAt); age > s.opts.SelectionTimeout {
		return types.NewAppErrorWithDetails(types.ErrStaleSelection, "selection expired, select the text again",
			age.Round(time.Second).String(), nil)
	}
	return nil
}

// ContextText returns the text around sel, widened by a fixed margin and
// clamped to the page.
func (s *Session) ContextText(sel Selection) string {
	doc := s.Document()
	box, ok := doc.PageRect(sel.Page)
	if !ok {
		return ""
	}
	r := sel.Rect.Expand(contextMarginX, contextMarginY).Clamp(box)
	return normalize.Block(doc.TextInRect(sel.Page, r))
}

// Report describes what a submission stored and anchored.
type Report struct {
	Page  int            `json:"page"`
	Group int            `json:"group"`
	Kind  translate.Kind `json:"kind"`
	// Anchored holds words, or sentence ids, that were highlighted.
	Anchored []string `json:"anchored"`
	// Failed holds words, or sentence originals, that could not be anchored.
	Failed []string          `json:"failed"`
	Result *translate.Result `json:"-"`
}

// TranslateSentences translates the selection with its surrounding context
// and highlights every sentence that can be anchored.
func (s *Session) TranslateSentences(ctx context.Context, sel Selection) (*Report, error) {
	if err := s.checkSelection(sel); err != nil {
		return nil, err
	}
	text := sel.Text
	if c := s.ContextText(sel); c != "" {
		text = c
	}
	return s.submit(ctx, sel.Page, text, translate.Sentences)
}

// ExtractWords asks for the notable words of the selection and highlights
// every word that can be anchored.
func (s *Session) ExtractWords(ctx context.Context, sel Selection) (*Report, error) {
	if err := s.checkSelection(sel); err != nil {
		return nil, err
	}
	return s.submit(ctx, sel.Page, sel.Text, translate.Words)
}

func (s *Session) submit(ctx context.Context, page int, text string, kind translate.Kind) (*Report, error) {
	tasks := s.manager.Tasks()
	tasks.Start(page)
	logger.Info("translation submitted",
		logger.Int("page", page),
		logger.String("kind", kind.String()),
		logger.Int("textLen", len(text)))

	res, err := s.translator.Translate(ctx, text, kind)
	if err != nil {
		tasks.Fail(page)
		logger.Error("translation failed", err, logger.Int("page", page))
		return nil, err
	}

	report := &Report{Page: page, Kind: kind, Result: res, Group: s.manager.NextGroup()}
	if kind == translate.Words {
		s.storeWords(report, res.Words)
	} else {
		s.storeSentences(report, res.Sentences)
	}
	tasks.Complete(page)

	logger.Info("translation applied",
		logger.Int("page", page),
		logger.Int("anchored", len(report.Anchored)),
		logger.Int("failed", len(report.Failed)))
	return report, nil
}

func (s *Session) storeWords(report *Report, words map[string]string) {
	unlock := s.locks.Lock(report.Page)
	defer unlock()

	s.manager.AddWords(report.Page, words)
	for _, w := range sortedKeys(words) {
		if s.manager.IsWordHighlighted(report.Page, w) || s.manager.HighlightWord(report.Page, w, s.opts.WordColor) {
			report.Anchored = append(report.Anchored, w)
		} else {
			report.Failed = append(report.Failed, w)
		}
	}
}

func (s *Session) storeSentences(report *Report, sentences []translate.Sentence) {
	pairs := make([]highlight.SentencePair, len(sentences))
	for i, st := range sentences {
		pairs[i] = highlight.SentencePair{Original: st.Original, Translation: st.Translation}
	}

	unlock := s.locks.Lock(report.Page)
	defer unlock()

	for _, rec := range s.manager.AddSentences(report.Page, report.Group, pairs) {
		if s.manager.HighlightSentence(rec.ID, s.opts.SentenceColor) {
			report.Anchored = append(report.Anchored, rec.ID)
		} else {
			report.Failed = append(report.Failed, rec.Original)
		}
	}
}
