package session

import (
	"fmt"
	"sort"

	"pdf-highlighter/internal/document"
	"pdf-highlighter/internal/highlight"
	"pdf-highlighter/internal/logger"
)

// BulkResult counts the entities a bulk operation changed.
type BulkResult struct {
	Words     int `json:"words"`
	Sentences int `json:"sentences"`
}

func (b *BulkResult) add(o BulkResult) {
	b.Words += o.Words
	b.Sentences += o.Sentences
}

// HighlightAllOnPage highlights every stored word and sentence of page that is
// not highlighted yet, with the default colors.
func (s *Session) HighlightAllOnPage(page int) BulkResult {
	unlock := s.locks.Lock(page)
	defer unlock()

	var res BulkResult
	words, _ := s.manager.WordsOnPage(page)
	for _, w := range sortedKeys(words) {
		if s.manager.IsWordHighlighted(page, w) {
			continue
		}
		if s.manager.HighlightWord(page, w, s.opts.WordColor) {
			res.Words++
		}
	}

	records, _ := s.manager.SentencesOnPage(page)
	for _, rec := range records {
		if s.manager.IsSentenceHighlighted(rec.ID) {
			continue
		}
		if s.manager.HighlightSentence(rec.ID, s.opts.SentenceColor) {
			res.Sentences++
		}
	}
	return res
}

// HighlightAll runs HighlightAllOnPage over every page holding translations.
func (s *Session) HighlightAll() BulkResult {
	var total BulkResult
	for _, page := range s.manager.Pages() {
		total.add(s.HighlightAllOnPage(page))
	}
	logger.Info("highlighted all pages",
		logger.Int("words", total.Words),
		logger.Int("sentences", total.Sentences))
	return total
}

// ClearPage hides every highlight on page. Translations and geometry stay.
func (s *Session) ClearPage(page int) BulkResult {
	unlock := s.locks.Lock(page)
	defer unlock()

	var res BulkResult
	_, active := s.manager.WordsOnPage(page)
	for _, w := range active {
		if s.manager.UnhighlightWord(page, w) {
			res.Words++
		}
	}
	_, ids := s.manager.SentencesOnPage(page)
	for _, id := range ids {
		if s.manager.UnhighlightSentence(id) {
			res.Sentences++
		}
	}
	return res
}

// ToggleWord flips the highlight of word on page. It reports the new state
// and whether anything changed; a toggle already running on the same word
// changes nothing.
func (s *Session) ToggleWord(page int, word string) (highlighted, changed bool) {
	key := highlight.WordKey(page, word)
	if !s.manager.Begin(key) {
		return s.manager.IsWordHighlighted(page, word), false
	}
	defer s.manager.End(key)

	unlock := s.locks.Lock(page)
	defer unlock()

	if s.manager.IsWordHighlighted(page, word) {
		return false, s.manager.UnhighlightWord(page, word)
	}
	if _, ok := s.manager.Translation(page, word); !ok {
		return false, false
	}
	ok := s.manager.HighlightWord(page, word, s.opts.WordColor)
	return ok, ok
}

// ToggleSentence flips the highlight of the sentence with id.
func (s *Session) ToggleSentence(id string) (highlighted, changed bool) {
	rec, ok := s.manager.Sentence(id)
	if !ok {
		return false, false
	}
	key := highlight.SentenceKey(id)
	if !s.manager.Begin(key) {
		return s.manager.IsSentenceHighlighted(id), false
	}
	defer s.manager.End(key)

	unlock := s.locks.Lock(rec.Page)
	defer unlock()

	if s.manager.IsSentenceHighlighted(id) {
		return false, s.manager.UnhighlightSentence(id)
	}
	ok = s.manager.HighlightSentence(id, s.opts.SentenceColor)
	return ok, ok
}

// SetWordColor re-highlights word on page with color.
func (s *Session) SetWordColor(page int, word string, color highlight.Color) bool {
	unlock := s.locks.Lock(page)
	defer unlock()
	return s.manager.HighlightWord(page, word, color)
}

// SetSentenceColor re-highlights the sentence with id with color.
func (s *Session) SetSentenceColor(id string, color highlight.Color) bool {
	rec, ok := s.manager.Sentence(id)
	if !ok {
		return false
	}
	unlock := s.locks.Lock(rec.Page)
	defer unlock()
	return s.manager.HighlightSentence(id, color)
}

// RemoveWord unhighlights word on page and forgets its translation.
func (s *Session) RemoveWord(page int, word string) bool {
	unlock := s.locks.Lock(page)
	defer unlock()
	return s.manager.RemoveWord(page, word)
}

// RemoveSentence unhighlights the sentence with id and forgets it.
func (s *Session) RemoveSentence(id string) bool {
	rec, ok := s.manager.Sentence(id)
	if !ok {
		return false
	}
	unlock := s.locks.Lock(rec.Page)
	defer unlock()
	return s.manager.RemoveSentence(id)
}

// Render returns the shapes to draw on page.
func (s *Session) Render(page int) []highlight.Shape {
	box, ok := s.Document().PageRect(page)
	if !ok {
		return nil
	}
	unlock := s.locks.Lock(page)
	defer unlock()
	return s.manager.Render(page, box.Width())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func pageDetail(page int, doc document.Provider) string {
	return fmt.Sprintf("page %d of %d", page, doc.PageCount())
}
