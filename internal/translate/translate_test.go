package translate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/quick"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-highlighter/internal/types"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"abbreviation", "See e.g. the figure. Next.", []string{"See e.g. the figure.", "Next."}},
		{"et al", "Smith et al. showed it. Then.", []string{"Smith et al. showed it.", "Then."}},
		{"initial", "By J. Smith today. Done.", []string{"By J. Smith today.", "Done."}},
		{"fig reference", "As in Fig. 3 above. Yes.", []string{"As in Fig. 3 above.", "Yes."}},
		{"closing quote", `He said "stop." Then left.`, []string{`He said "stop."`, "Then left."}},
		{"ellipsis", "Wait... more text. End.", []string{"Wait... more text.", "End."}},
		{"no terminator", "trailing words", []string{"trailing words"}},
		{"whitespace", "  One.\n\tTwo.  ", []string{"One.", "Two."}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.in))
		})
	}
}

func TestSplitPacksSentences(t *testing.T) {
	text := "Alpha beta gamma. Delta epsilon. Zeta eta theta iota. Kappa."
	chunks := Split(text, 35)
	assert.Equal(t, []string{
		"Alpha beta gamma. Delta epsilon.",
		"Zeta eta theta iota. Kappa.",
	}, chunks)

	assert.Equal(t, []string{text}, Split(text, 0), "zero budget uses the default")
	assert.Nil(t, Split(" \n ", 100))
}

func TestSplitLongSentence(t *testing.T) {
	long := strings.Repeat("word ", 50) + "end."
	chunks := Split(long, 40)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 40)
	}
	assert.Equal(t, strings.Fields(long), strings.Fields(strings.Join(chunks, " ")))

	nospace := strings.Repeat("x", 95)
	assert.Equal(t, []string{strings.Repeat("x", 40), strings.Repeat("x", 40), strings.Repeat("x", 15)}, Split(nospace, 40))
}

func TestSplitProperties(t *testing.T) {
	vocab := []string{"a", "model", "learns.", "e.g.", "Dr.", "deep", "networks!", "why?", "J.", "téxt", "of", "al."}
	f := func(seed int64, budgetSeed uint8) bool {
		r := rand.New(rand.NewSource(seed))
		words := make([]string, r.Intn(200))
		for i := range words {
			words[i] = vocab[r.Intn(len(vocab))]
		}
		text := strings.Join(words, " ")
		budget := 20 + int(budgetSeed)

		chunks := Split(text, budget)
		for _, c := range chunks {
			if utf8.RuneCountInString(c) > budget || c == "" {
				return false
			}
		}
		got := strings.Fields(strings.Join(chunks, " "))
		if len(words) == 0 {
			return len(got) == 0
		}
		return strings.Join(got, " ") == text
	}
	cfg := &quick.Config{MaxCount: 200, Rand: rand.New(rand.NewSource(42))}
	require.NoError(t, quick.Check(f, cfg))
}

func TestParseSentences(t *testing.T) {
	raw := "Sure! Here you go:\n```json\n[{\"original\": \" One. \", \"translation\": \"一。\"}, {\"original\": \"\", \"translation\": \"x\"}]\n```"
	got, err := ParseSentences(raw)
	require.NoError(t, err)
	assert.Equal(t, []Sentence{{Original: "One.", Translation: "一。"}}, got)

	for _, bad := range []string{"no json here", "] backwards [", "[not json]"} {
		_, err := ParseSentences(bad)
		require.Error(t, err, bad)
		assert.True(t, types.IsCode(err, types.ErrMalformedResponse), bad)
	}
}

func TestParseWords(t *testing.T) {
	got, err := ParseWords(`Result: {"network": "网络", "layers": 3, " ": "skip", "null": null}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"network": "网络", "layers": "3", "null": ""}, got)

	_, err = ParseWords(`["array"]`)
	assert.True(t, types.IsCode(err, types.ErrMalformedResponse))
	_, err = ParseWords(`{"broken": }`)
	assert.True(t, types.IsCode(err, types.ErrMalformedResponse))
}

func TestPrompts(t *testing.T) {
	p := Prompts{TargetLanguage: "German", WordCriteria: "rare words"}
	assert.Contains(t, p.For(Sentences), "German")
	assert.Contains(t, p.For(Words), "rare words")
	assert.NotContains(t, p.For(Words), "{lang}")

	custom := Prompts{SentenceTemplate: "Translate into {lang}!"}
	assert.Equal(t, "Translate into Simplified Chinese!", custom.For(Sentences))

	k, ok := ParseKind("Word")
	assert.True(t, ok)
	assert.Equal(t, Words, k)
	_, ok = ParseKind("paragraphs")
	assert.False(t, ok)
}

// chunkOf identifies test chunks by their marker word.
func chunkOf(input string) int {
	for i, marker := range []string{"zero", "one", "two"} {
		if strings.Contains(input, marker) {
			return i
		}
	}
	return -1
}

const threeChunks = "Sentence zero is long enough to fill a chunk. " +
	"Sentence one is long enough to fill a chunk. " +
	"Sentence two is long enough to fill a chunk."

func TestMergeOrderUnderReverseCompletion(t *testing.T) {
	var finished [3]chan struct{}
	for i := range finished {
		finished[i] = make(chan struct{})
	}
	var mu sync.Mutex
	var completion []int

	svc := ServiceFunc(func(ctx context.Context, req Request) (string, error) {
		i := chunkOf(req.Input)
		// chunk 2 answers first, chunk 0 last
		if i < 2 {
			select {
			case <-finished[i+1]:
			case <-time.After(5 * time.Second):
				return "", errors.New("timed out waiting for later chunk")
			}
		}
		mu.Lock()
		completion = append(completion, i)
		mu.Unlock()
		defer close(finished[i])
		return fmt.Sprintf(`[{"original": %q, "translation": "t%d"}]`, req.Input, i), nil
	})

	c := NewCoordinator(svc, Options{ChunkSize: 50, Concurrency: 3})
	res, err := c.Translate(context.Background(), threeChunks, Sentences)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1, 0}, completion)
	require.Len(t, res.Sentences, 3)
	for i, s := range res.Sentences {
		assert.Equal(t, fmt.Sprintf("t%d", i), s.Translation)
	}
	assert.Equal(t, 3, res.Chunks)
}

func TestWordMergeLaterChunkWins(t *testing.T) {
	svc := ServiceFunc(func(ctx context.Context, req Request) (string, error) {
		i := chunkOf(req.Input)
		return fmt.Sprintf(`{"chunk": "%d", "only%d": "x"}`, i, i), nil
	})
	c := NewCoordinator(svc, Options{ChunkSize: 50, Concurrency: 2})

	res, err := c.Translate(context.Background(), threeChunks, Words)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"chunk": "2", "only0": "x", "only1": "x", "only2": "x"}, res.Words)
	assert.Empty(t, res.Sentences)
}

func TestOneFailingChunkFailsRequest(t *testing.T) {
	svc := ServiceFunc(func(ctx context.Context, req Request) (string, error) {
		if chunkOf(req.Input) == 1 {
			return "", errors.New("connection reset")
		}
		return `[{"original": "ok", "translation": "ok"}]`, nil
	})
	c := NewCoordinator(svc, Options{ChunkSize: 50, Concurrency: 3})

	res, err := c.Translate(context.Background(), threeChunks, Sentences)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, types.IsCode(err, types.ErrNetwork))
}

func TestMalformedChunkFailsRequest(t *testing.T) {
	svc := ServiceFunc(func(ctx context.Context, req Request) (string, error) {
		return "I cannot help with that.", nil
	})
	c := NewCoordinator(svc, Options{})

	_, err := c.Translate(context.Background(), "A sentence.", Sentences)
	assert.True(t, types.IsCode(err, types.ErrMalformedResponse))
}

func TestEmptyInput(t *testing.T) {
	c := NewCoordinator(ServiceFunc(func(ctx context.Context, req Request) (string, error) {
		t.Fatal("service must not be called")
		return "", nil
	}), Options{})

	_, err := c.Translate(context.Background(), " \n\t", Words)
	assert.True(t, types.IsCode(err, types.ErrInvalidInput))
}

func TestCancelSuppressesResult(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 3)
	svc := ServiceFunc(func(ctx context.Context, req Request) (string, error) {
		started <- struct{}{}
		<-release
		return `[{"original": "x", "translation": "y"}]`, nil
	})
	c := NewCoordinator(svc, Options{ChunkSize: 50, Concurrency: 3})

	job := c.Submit(context.Background(), threeChunks, Sentences)
	<-started
	job.Cancel()
	close(release)

	ev := job.Wait()
	assert.Nil(t, ev.Result)
	assert.True(t, types.IsCode(ev.Err, types.ErrCancelled))
	assert.Equal(t, job.ID, ev.Job)

	_, open := <-job.Done()
	assert.False(t, open, "exactly one event is delivered")
}

func TestCacheSkipsRemoteCall(t *testing.T) {
	var calls atomic.Int32
	svc := ServiceFunc(func(ctx context.Context, req Request) (string, error) {
		calls.Add(1)
		return fmt.Sprintf(`[{"original": %q, "translation": "t"}]`, req.Input), nil
	})
	path := filepath.Join(t.TempDir(), "cache", "chunks.json")
	cache := NewCache(path)
	c := NewCoordinator(svc, Options{ChunkSize: 50, Concurrency: 2, Cache: cache})

	first, err := c.Translate(context.Background(), threeChunks, Sentences)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Cached)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, cache.Size())

	second, err := c.Translate(context.Background(), threeChunks, Sentences)
	require.NoError(t, err)
	assert.Equal(t, 3, second.Cached)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, first.Sentences, second.Sentences)

	words, err := c.Translate(context.Background(), threeChunks, Words)
	require.NoError(t, err)
	assert.Equal(t, int32(6), calls.Load(), "word mode is cached separately")
	assert.Equal(t, "t", words.Words["translation"])

	require.NoError(t, cache.Save())
	reloaded := NewCache(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 6, reloaded.Size())

	reloaded.Clear()
	assert.Equal(t, 0, reloaded.Size())
	assert.Equal(t, path, reloaded.Path())
}

func TestCacheLoadErrors(t *testing.T) {
	assert.NoError(t, NewCache("").Load())
	assert.NoError(t, NewCache("").Save())
	assert.NoError(t, NewCache(filepath.Join(t.TempDir(), "missing.json")).Load())

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	err := NewCache(bad).Load()
	assert.True(t, types.IsCode(err, types.ErrCache))
}

func TestKeyDependsOnEveryPart(t *testing.T) {
	base := Key(Sentences, "m", "p", "i")
	assert.Equal(t, base, Key(Sentences, "m", "p", "i"))
	assert.NotEqual(t, base, Key(Words, "m", "p", "i"))
	assert.NotEqual(t, base, Key(Sentences, "m2", "p", "i"))
	assert.NotEqual(t, base, Key(Sentences, "m", "p", "i2"))
	assert.NotEqual(t, Key(Sentences, "ab", "c", "i"), Key(Sentences, "a", "bc", "i"))
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(&types.Config{
		Model:          "m",
		TargetLanguage: "German",
		WordPrompt:     "rare words",
		ChunkSize:      500,
		Concurrency:    2,
	})
	assert.Equal(t, "m", opts.Model)
	assert.Equal(t, 500, opts.ChunkSize)
	assert.Equal(t, 2, opts.Concurrency)
	assert.Nil(t, opts.Cache)

	prompt := opts.Prompts.For(Words)
	assert.Contains(t, prompt, "rare words")
	assert.Contains(t, prompt, "German")
	assert.Equal(t, strings.ReplaceAll(DefaultSentenceTemplate, "{lang}", "German"), opts.Prompts.For(Sentences))
}
