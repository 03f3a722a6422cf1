// Package highlight owns the per-page highlight state of words and sentences.
//
// Every highlighted entity moves between three states: absent, active and
// inactive. Unhighlighting keeps the anchored geometry so that a later
// re-highlight does not have to anchor again; Remove drops the entity entirely.
//
// The Manager does not lock around page state. Callers editing the same page
// from several goroutines serialize through PageLocks; edits to different
// pages need no coordination.
package highlight

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"pdf-highlighter/internal/document"
	"pdf-highlighter/internal/logger"
)

// Anchorer locates words and sentences on a page. An empty result means the
// text could not be anchored.
type Anchorer interface {
	Word(page int, word string) []document.Rect
	Sentence(page int, sentence string) []document.Rect
}

// State is the highlight state of one entity.
type State int

const (
	Absent State = iota
	Active
	Inactive
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	default:
		return "absent"
	}
}

// Mark is the stored highlight of a word or sentence on a page.
type Mark struct {
	Rects       []document.Rect `json:"rects"`       // 锚定得到的矩形，句子为逐词矩形
	Color       Color           `json:"color"`       // 高亮颜色
	Translation string          `json:"translation"` // 译文
	Active      bool            `json:"active"`      // 是否正在显示
}

func (m *Mark) clone() Mark {
	out := *m
	out.Rects = append([]document.Rect(nil), m.Rects...)
	return out
}

// SentencePair is one translated sentence as returned by the remote service.
type SentencePair struct {
	Original    string `json:"original"`
	Translation string `json:"translation"`
}

// SentenceRecord is a stored sentence translation.
type SentenceRecord struct {
	ID          string `json:"id"`
	Original    string `json:"original"`
	Translation string `json:"translation"`
	GroupID     int    `json:"group_id"` // 产生该句的翻译批次
	Page        int    `json:"page"`
}

type pageState struct {
	words         map[string]string // word -> translation
	wordMarks     map[string]*Mark
	sentenceMarks map[string]*Mark // sentence id -> mark
}

func newPageState() *pageState {
	return &pageState{
		words:         make(map[string]string),
		wordMarks:     make(map[string]*Mark),
		sentenceMarks: make(map[string]*Mark),
	}
}

func (p *pageState) empty() bool {
	return len(p.words) == 0 && len(p.wordMarks) == 0 && len(p.sentenceMarks) == 0
}

// Manager holds translations and highlight marks for one document.
type Manager struct {
	anchors Anchorer

	// mu guards the page and sentence tables, not the page contents.
	mu        sync.RWMutex
	pages     map[int]*pageState
	sentences map[string]*SentenceRecord
	order     []string // sentence ids in insertion order

	group    atomic.Int64
	tasks    *TaskCounters
	inflight inflight
}

// NewManager creates a Manager that anchors through anchors.
func NewManager(anchors Anchorer) *Manager {
	return &Manager{
		anchors:   anchors,
		pages:     make(map[int]*pageState),
		sentences: make(map[string]*SentenceRecord),
		tasks:     NewTaskCounters(),
	}
}

// Tasks returns the page task counters.
func (m *Manager) Tasks() *TaskCounters { return m.tasks }

// SetAnchorer replaces the anchoring backend and drops every record, since
// stored geometry belongs to the previous document.
func (m *Manager) SetAnchorer(anchors Anchorer) {
	m.Reset()
	m.mu.Lock()
	m.anchors = anchors
	m.mu.Unlock()
}

// Reset drops all translations, marks and task counters.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.pages = make(map[int]*pageState)
	m.sentences = make(map[string]*SentenceRecord)
	m.order = nil
	m.mu.Unlock()
	m.tasks.Reset()
}

// NextGroup returns a new translation batch id.
func (m *Manager) NextGroup() int {
	return int(m.group.Add(1))
}

// ObserveGroup makes later NextGroup calls return ids above group. Used when
// records are restored with their original group ids.
func (m *Manager) ObserveGroup(group int) {
	for {
		cur := m.group.Load()
		if int64(group) <= cur || m.group.CompareAndSwap(cur, int64(group)) {
			return
		}
	}
}

func (m *Manager) page(page int, create bool) *pageState {
	m.mu.RLock()
	ps, ok := m.pages[page]
	m.mu.RUnlock()
	if ok || !create {
		return ps
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ps, ok = m.pages[page]; !ok {
		ps = newPageState()
		m.pages[page] = ps
	}
	return ps
}

func (m *Manager) dropIfEmpty(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ps, ok := m.pages[page]; ok && ps.empty() && !m.hasSentencesLocked(page) {
		delete(m.pages, page)
	}
}

// hasSentencesLocked reports whether a sentence record belongs to page,
// anchored or not. m.mu must be held.
func (m *Manager) hasSentencesLocked(page int) bool {
	for _, rec := range m.sentences {
		if rec.Page == page {
			return true
		}
	}
	return false
}

func (m *Manager) anchorer() Anchorer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.anchors
}

// Pages returns the pages holding any translation or mark, ascending.
func (m *Manager) Pages() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, 0, len(m.pages))
	for p := range m.pages {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// AddWords stores word translations for page. Existing translations are
// replaced, and so is the label of an existing mark.
func (m *Manager) AddWords(page int, translations map[string]string) {
	if len(translations) == 0 {
		return
	}
	ps := m.page(page, true)
	for w, tr := range translations {
		ps.words[w] = tr
		if mark, ok := ps.wordMarks[w]; ok {
			mark.Translation = tr
		}
	}
}

// AddSentences stores translated sentences for page under group and returns
// the new records in input order.
func (m *Manager) AddSentences(page, group int, pairs []SentencePair) []SentenceRecord {
	if len(pairs) == 0 {
		return nil
	}
	m.page(page, true)

	out := make([]SentenceRecord, 0, len(pairs))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pairs {
		rec := &SentenceRecord{
			ID:          uuid.NewString(),
			Original:    p.Original,
			Translation: p.Translation,
			GroupID:     group,
			Page:        page,
		}
		m.sentences[rec.ID] = rec
		m.order = append(m.order, rec.ID)
		out = append(out, *rec)
	}
	return out
}

// Sentence returns the sentence record with id.
func (m *Manager) Sentence(id string) (SentenceRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sentences[id]
	if !ok {
		return SentenceRecord{}, false
	}
	return *rec, true
}

// Sentences returns every sentence record in insertion order.
func (m *Manager) Sentences() []SentenceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SentenceRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.sentences[id])
	}
	return out
}

// Translation returns the stored translation of word on page.
func (m *Manager) Translation(page int, word string) (string, bool) {
	ps := m.page(page, false)
	if ps == nil {
		return "", false
	}
	tr, ok := ps.words[word]
	return tr, ok
}

// HighlightWord highlights word on page with color. It returns false when
// nothing changed: the word is already highlighted with color, or it cannot be
// anchored. A different color replaces the current highlight.
func (m *Manager) HighlightWord(page int, word string, color Color) bool {
	ps := m.page(page, true)
	mark := ps.wordMarks[word]

	if mark != nil && mark.Active {
		if mark.Color == color {
			return false
		}
		mark.Active = false
	}

	if mark == nil || len(mark.Rects) == 0 {
		rects := m.anchorer().Word(page, word)
		if len(rects) == 0 {
			logger.Debug("word highlight skipped: not anchored",
				logger.Int("page", page), logger.String("word", word))
			m.dropIfEmpty(page)
			return false
		}
		mark = &Mark{Rects: rects}
		ps.wordMarks[word] = mark
	}

	mark.Color = color
	mark.Translation = ps.words[word]
	mark.Active = true
	return true
}

// UnhighlightWord hides the highlight of word on page, keeping its geometry.
func (m *Manager) UnhighlightWord(page int, word string) bool {
	ps := m.page(page, false)
	if ps == nil {
		return false
	}
	mark, ok := ps.wordMarks[word]
	if !ok || !mark.Active {
		return false
	}
	mark.Active = false
	return true
}

// RemoveWord unhighlights word and forgets its translation and geometry.
func (m *Manager) RemoveWord(page int, word string) bool {
	ps := m.page(page, false)
	if ps == nil {
		return false
	}
	m.UnhighlightWord(page, word)

	_, hadWord := ps.words[word]
	_, hadMark := ps.wordMarks[word]
	delete(ps.words, word)
	delete(ps.wordMarks, word)
	m.dropIfEmpty(page)
	return hadWord || hadMark
}

// WordState reports the highlight state of word on page.
func (m *Manager) WordState(page int, word string) State {
	ps := m.page(page, false)
	if ps == nil {
		return Absent
	}
	mark, ok := ps.wordMarks[word]
	switch {
	case !ok:
		return Absent
	case mark.Active:
		return Active
	default:
		return Inactive
	}
}

// IsWordHighlighted reports whether word is currently highlighted on page.
func (m *Manager) IsWordHighlighted(page int, word string) bool {
	return m.WordState(page, word) == Active
}

// WordMark returns a copy of the mark of word on page.
func (m *Manager) WordMark(page int, word string) (Mark, bool) {
	ps := m.page(page, false)
	if ps == nil {
		return Mark{}, false
	}
	mark, ok := ps.wordMarks[word]
	if !ok {
		return Mark{}, false
	}
	return mark.clone(), true
}

// WordsOnPage returns a copy of the translations stored for page and the
// currently highlighted words, sorted.
func (m *Manager) WordsOnPage(page int) (map[string]string, []string) {
	translations := make(map[string]string)
	ps := m.page(page, false)
	if ps == nil {
		return translations, nil
	}
	for w, tr := range ps.words {
		translations[w] = tr
	}
	var active []string
	for w, mark := range ps.wordMarks {
		if mark.Active {
			active = append(active, w)
		}
	}
	sort.Strings(active)
	return translations, active
}

// HighlightSentence highlights the sentence with id with color. It returns
// false when nothing changed: unknown id, same color already shown, or the
// sentence cannot be anchored.
func (m *Manager) HighlightSentence(id string, color Color) bool {
	rec, ok := m.Sentence(id)
	if !ok {
		return false
	}
	ps := m.page(rec.Page, true)
	mark := ps.sentenceMarks[id]

	if mark != nil && mark.Active {
		if mark.Color == color {
			return false
		}
		mark.Active = false
	}

	if mark == nil || len(mark.Rects) == 0 {
		rects := m.anchorer().Sentence(rec.Page, rec.Original)
		if len(rects) == 0 {
			logger.Debug("sentence highlight skipped: not anchored",
				logger.Int("page", rec.Page), logger.String("id", id))
			return false
		}
		mark = &Mark{Rects: rects}
		ps.sentenceMarks[id] = mark
	}

	mark.Color = color
	mark.Translation = rec.Translation
	mark.Active = true
	return true
}

// UnhighlightSentence hides the highlight of the sentence with id.
func (m *Manager) UnhighlightSentence(id string) bool {
	rec, ok := m.Sentence(id)
	if !ok {
		return false
	}
	ps := m.page(rec.Page, false)
	if ps == nil {
		return false
	}
	mark, ok := ps.sentenceMarks[id]
	if !ok || !mark.Active {
		return false
	}
	mark.Active = false
	return true
}

// RemoveSentence unhighlights the sentence with id and deletes its record.
func (m *Manager) RemoveSentence(id string) bool {
	rec, ok := m.Sentence(id)
	if !ok {
		return false
	}
	m.UnhighlightSentence(id)
	if ps := m.page(rec.Page, false); ps != nil {
		delete(ps.sentenceMarks, id)
	}

	m.mu.Lock()
	delete(m.sentences, id)
	for i, sid := range m.order {
		if sid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.dropIfEmpty(rec.Page)
	return true
}

// SentenceState reports the highlight state of the sentence with id.
func (m *Manager) SentenceState(id string) State {
	rec, ok := m.Sentence(id)
	if !ok {
		return Absent
	}
	ps := m.page(rec.Page, false)
	if ps == nil {
		return Absent
	}
	mark, ok := ps.sentenceMarks[id]
	switch {
	case !ok:
		return Absent
	case mark.Active:
		return Active
	default:
		return Inactive
	}
}

// IsSentenceHighlighted reports whether the sentence with id is highlighted.
func (m *Manager) IsSentenceHighlighted(id string) bool {
	return m.SentenceState(id) == Active
}

// SentenceMark returns a copy of the mark of the sentence with id.
func (m *Manager) SentenceMark(id string) (Mark, bool) {
	rec, ok := m.Sentence(id)
	if !ok {
		return Mark{}, false
	}
	ps := m.page(rec.Page, false)
	if ps == nil {
		return Mark{}, false
	}
	mark, ok := ps.sentenceMarks[id]
	if !ok {
		return Mark{}, false
	}
	return mark.clone(), true
}

// SentencesOnPage returns the sentence records of page in insertion order and
// the ids of those currently highlighted.
func (m *Manager) SentencesOnPage(page int) ([]SentenceRecord, []string) {
	var records []SentenceRecord
	for _, rec := range m.Sentences() {
		if rec.Page == page {
			records = append(records, rec)
		}
	}

	ps := m.page(page, false)
	if ps == nil {
		return records, nil
	}
	var active []string
	for _, rec := range records {
		if mark, ok := ps.sentenceMarks[rec.ID]; ok && mark.Active {
			active = append(active, rec.ID)
		}
	}
	return records, active
}

// Begin claims an exclusive in-flight marker for key, returning false when an
// operation on the same entity is already running. Release it with End.
func (m *Manager) Begin(key string) bool { return m.inflight.begin(key) }

// End releases the in-flight marker for key.
func (m *Manager) End(key string) { m.inflight.end(key) }

// Busy reports whether key has an operation in flight.
func (m *Manager) Busy(key string) bool { return m.inflight.busy(key) }

// WordKey is the in-flight key of word on page.
func WordKey(page int, word string) string {
	return fmt.Sprintf("word:%d:%s", page, word)
}

// SentenceKey is the in-flight key of the sentence with id.
func SentenceKey(id string) string {
	return "sentence:" + id
}
