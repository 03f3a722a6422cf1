// Package export writes read-only views of the highlight state: CSV tables of
// word and sentence translations, and a JSON snapshot that can be restored.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"pdf-highlighter/internal/highlight"
	"pdf-highlighter/internal/logger"
	"pdf-highlighter/internal/types"
)

// AllPages selects every page in the exporters.
const AllPages = -1

// utf8BOM lets spreadsheet programs detect the encoding of the CSV files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WordEntry is one stored word translation.
type WordEntry struct {
	Page        int              `json:"page"`
	Word        string           `json:"word"`
	Translation string           `json:"translation"`
	Active      bool             `json:"active"`
	Color       *highlight.Color `json:"color,omitempty"`
}

// SentenceEntry is one stored sentence translation.
type SentenceEntry struct {
	Page        int              `json:"page"`
	Group       int              `json:"group"`
	Original    string           `json:"original"`
	Translation string           `json:"translation"`
	Active      bool             `json:"active"`
	Color       *highlight.Color `json:"color,omitempty"`
}

// Snapshot is the exportable state of a Manager.
type Snapshot struct {
	Version   string          `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	Words     []WordEntry     `json:"words"`
	Sentences []SentenceEntry `json:"sentences"`
}

const snapshotVersion = "1"

// Capture reads the words and sentences stored in m. Words are ordered by
// page then word, sentences keep insertion order.
func Capture(m *highlight.Manager, page int) *Snapshot {
	snap := &Snapshot{
		Version:   snapshotVersion,
		CreatedAt: time.Now(),
		Words:     []WordEntry{},
		Sentences: []SentenceEntry{},
	}

	for _, p := range m.Pages() {
		if page != AllPages && p != page {
			continue
		}
		translations, _ := m.WordsOnPage(p)
		words := make([]string, 0, len(translations))
		for w := range translations {
			words = append(words, w)
		}
		sort.Strings(words)
		for _, w := range words {
			e := WordEntry{Page: p, Word: w, Translation: translations[w]}
			if mark, ok := m.WordMark(p, w); ok {
				c := mark.Color
				e.Active, e.Color = mark.Active, &c
			}
			snap.Words = append(snap.Words, e)
		}
	}

	for _, rec := range m.Sentences() {
		if page != AllPages && rec.Page != page {
			continue
		}
		e := SentenceEntry{Page: rec.Page, Group: rec.GroupID, Original: rec.Original, Translation: rec.Translation}
		if mark, ok := m.SentenceMark(rec.ID); ok {
			c := mark.Color
			e.Active, e.Color = mark.Active, &c
		}
		snap.Sentences = append(snap.Sentences, e)
	}
	return snap
}

// Restore adds the records of snap to m and re-highlights the entries that
// were active. It returns the number of entries that could not be anchored.
func Restore(m *highlight.Manager, snap *Snapshot) int {
	failed := 0

	byPage := make(map[int]map[string]string)
	for _, e := range snap.Words {
		if byPage[e.Page] == nil {
			byPage[e.Page] = make(map[string]string)
		}
		byPage[e.Page][e.Word] = e.Translation
	}
	for p, words := range byPage {
		m.AddWords(p, words)
	}
	for _, e := range snap.Words {
		if e.Active && !m.HighlightWord(e.Page, e.Word, colorOr(e.Color, highlight.DefaultWordColor)) {
			failed++
		}
	}

	for _, e := range snap.Sentences {
		m.ObserveGroup(e.Group)
		recs := m.AddSentences(e.Page, e.Group, []highlight.SentencePair{{Original: e.Original, Translation: e.Translation}})
		if e.Active && !m.HighlightSentence(recs[0].ID, colorOr(e.Color, highlight.DefaultSentenceColor)) {
			failed++
		}
	}

	if failed > 0 {
		logger.Warn("snapshot restored with unanchored entries", logger.Int("failed", failed))
	}
	return failed
}

func colorOr(c *highlight.Color, def highlight.Color) highlight.Color {
	if c == nil {
		return def
	}
	return *c
}

// WordsCSV writes the word translations of page, or of all pages, as CSV
// and returns the number of rows written.
func WordsCSV(w io.Writer, m *highlight.Manager, page int) (int, error) {
	snap := Capture(m, page)
	rows := make([][]string, 0, len(snap.Words))
	for _, e := range snap.Words {
		rows = append(rows, []string{strconv.Itoa(e.Page + 1), e.Word, e.Translation})
	}
	return len(rows), writeCSV(w, []string{"Page", "Word", "Translation"}, rows)
}

// SentencesCSV writes the sentence translations of page, or of all pages,
// as CSV and returns the number of rows written.
func SentencesCSV(w io.Writer, m *highlight.Manager, page int) (int, error) {
	snap := Capture(m, page)
	rows := make([][]string, 0, len(snap.Sentences))
	for _, e := range snap.Sentences {
		rows = append(rows, []string{strconv.Itoa(e.Page + 1), strconv.Itoa(e.Group), e.Original, e.Translation})
	}
	return len(rows), writeCSV(w, []string{"Page", "Group", "Original", "Translation"}, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return types.NewAppError(types.ErrInternal, "failed to write CSV", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return types.NewAppError(types.ErrInternal, "failed to write CSV", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return types.NewAppError(types.ErrInternal, "failed to write CSV", err)
	}
	return nil
}

// JSONSnapshot writes the state of m as indented JSON.
func JSONSnapshot(w io.Writer, m *highlight.Manager) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Capture(m, AllPages)); err != nil {
		return types.NewAppError(types.ErrInternal, "failed to encode snapshot", err)
	}
	return nil
}

// ReadSnapshot decodes a snapshot written by JSONSnapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "failed to parse snapshot", err)
	}
	return &snap, nil
}

// ToFile runs write against a newly created file at path.
func ToFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.NewAppError(types.ErrInternal, "failed to create export directory", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return types.NewAppError(types.ErrInternal, "failed to create export file", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return types.NewAppError(types.ErrInternal, "failed to close export file", err)
	}
	logger.Info("exported", logger.String("path", path))
	return nil
}
