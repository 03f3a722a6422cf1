package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-highlighter/internal/document"
	"pdf-highlighter/internal/highlight"
)

type stubAnchorer struct{}

func (stubAnchorer) Word(page int, word string) []document.Rect {
	if word == "ghost" {
		return nil
	}
	return []document.Rect{{X0: 1, Y0: 1, X1: 10, Y1: 10}}
}

func (stubAnchorer) Sentence(page int, sentence string) []document.Rect {
	return []document.Rect{{X0: 1, Y0: 20, X1: 10, Y1: 30}}
}

var red = highlight.Color{R: 255, A: 100}

func populated(t *testing.T) *highlight.Manager {
	m := highlight.NewManager(stubAnchorer{})
	m.AddWords(0, map[string]string{"network": "网络", "layer": "层", "ghost": "幽灵"})
	m.AddWords(2, map[string]string{"graph": "图"})
	require.True(t, m.HighlightWord(0, "network", red))
	require.True(t, m.HighlightWord(0, "layer", highlight.DefaultWordColor))
	require.True(t, m.UnhighlightWord(0, "layer"))

	g := m.NextGroup()
	recs := m.AddSentences(1, g, []highlight.SentencePair{
		{Original: "Hello, world.", Translation: "你好，世界。"},
		{Original: `He said "hi".`, Translation: "他说嗨。"},
	})
	require.True(t, m.HighlightSentence(recs[0].ID, highlight.DefaultSentenceColor))
	return m
}

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM), "CSV starts with a BOM")
	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWordsCSV(t *testing.T) {
	m := populated(t)

	var buf bytes.Buffer
	n, err := WordsCSV(&buf, m, AllPages)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, [][]string{
		{"Page", "Word", "Translation"},
		{"1", "ghost", "幽灵"},
		{"1", "layer", "层"},
		{"1", "network", "网络"},
		{"3", "graph", "图"},
	}, readCSV(t, &buf))

	buf.Reset()
	n, err = WordsCSV(&buf, m, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, readCSV(t, &buf), 2)
}

func TestSentencesCSV(t *testing.T) {
	m := populated(t)

	var buf bytes.Buffer
	n, err := SentencesCSV(&buf, m, AllPages)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, [][]string{
		{"Page", "Group", "Original", "Translation"},
		{"2", "1", "Hello, world.", "你好，世界。"},
		{"2", "1", `He said "hi".`, "他说嗨。"},
	}, readCSV(t, &buf))

	buf.Reset()
	n, err = SentencesCSV(&buf, m, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCapture(t *testing.T) {
	snap := Capture(populated(t), AllPages)

	require.Len(t, snap.Words, 4)
	network := snap.Words[2]
	assert.Equal(t, "network", network.Word)
	assert.True(t, network.Active)
	require.NotNil(t, network.Color)
	assert.Equal(t, red, *network.Color)

	layer := snap.Words[1]
	assert.False(t, layer.Active, "inactive marks are kept but not active")
	assert.NotNil(t, layer.Color)

	ghost := snap.Words[0]
	assert.False(t, ghost.Active)
	assert.Nil(t, ghost.Color, "never anchored")

	require.Len(t, snap.Sentences, 2)
	assert.True(t, snap.Sentences[0].Active)
	assert.False(t, snap.Sentences[1].Active)
}

func TestSnapshotRestore(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONSnapshot(&buf, populated(t)))
	assert.Contains(t, buf.String(), `"color": "#FF000064"`)

	snap, err := ReadSnapshot(&buf)
	require.NoError(t, err)

	m := highlight.NewManager(stubAnchorer{})
	assert.Zero(t, Restore(m, snap))

	translations, active := m.WordsOnPage(0)
	assert.Len(t, translations, 3)
	assert.Equal(t, []string{"network"}, active)
	mark, ok := m.WordMark(0, "network")
	require.True(t, ok)
	assert.Equal(t, red, mark.Color)

	recs, activeIDs := m.SentencesOnPage(1)
	require.Len(t, recs, 2)
	assert.Equal(t, []string{recs[0].ID}, activeIDs)
	assert.Equal(t, 1, recs[0].GroupID)
	assert.Equal(t, 2, m.NextGroup(), "restored groups are not reused")
}

func TestRestoreCountsUnanchored(t *testing.T) {
	snap := &Snapshot{Words: []WordEntry{{Page: 0, Word: "ghost", Translation: "幽灵", Active: true}}}
	assert.Equal(t, 1, Restore(highlight.NewManager(stubAnchorer{}), snap))
}

func TestReadSnapshotInvalid(t *testing.T) {
	_, err := ReadSnapshot(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestToFile(t *testing.T) {
	m := populated(t)
	path := filepath.Join(t.TempDir(), "out", "words.csv")

	err := ToFile(path, func(w io.Writer) error {
		_, err := WordsCSV(w, m, AllPages)
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "network,网络")
}
