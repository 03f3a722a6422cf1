package translate

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"pdf-highlighter/internal/logger"
	"pdf-highlighter/internal/normalize"
	"pdf-highlighter/internal/types"
)

// DefaultConcurrency is the default number of chunks in flight per request.
const DefaultConcurrency = 4

// Options configures a Coordinator.
type Options struct {
	Model       string
	Prompts     Prompts
	ChunkSize   int
	Concurrency int
	// Cache is optional.
	Cache *Cache
}

// OptionsFromConfig maps the application config onto coordinator options.
// The cache is left to the caller.
func OptionsFromConfig(cfg *types.Config) Options {
	return Options{
		Model: cfg.Model,
		Prompts: Prompts{
			TargetLanguage:   cfg.TargetLanguage,
			WordCriteria:     cfg.WordPrompt,
			SentenceTemplate: cfg.SentencePrompt,
		},
		ChunkSize:   cfg.ChunkSize,
		Concurrency: cfg.Concurrency,
	}
}

// Result is the merged outcome of one request.
type Result struct {
	Kind      Kind              `json:"kind"`
	Sentences []Sentence        `json:"sentences,omitempty"`
	Words     map[string]string `json:"words,omitempty"`
	Chunks    int               `json:"chunks"`
	Cached    int               `json:"cached"`
}

// Event is the single terminal notification of a Job.
type Event struct {
	Job    uint64
	Result *Result
	Err    error
}

// Coordinator fans a request out over chunks and merges the answers.
type Coordinator struct {
	svc  Service
	opts Options
	seq  atomic.Uint64
}

// NewCoordinator creates a Coordinator calling svc.
func NewCoordinator(svc Service, opts Options) *Coordinator {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Coordinator{svc: svc, opts: opts}
}

// Job is an asynchronous request started by Submit.
type Job struct {
	ID        uint64
	cancelled atomic.Bool
	done      chan Event
}

// Cancel asks the job to stop. Chunks already sent still complete, but the
// job ends with an ErrCancelled event instead of its result.
func (j *Job) Cancel() { j.cancelled.Store(true) }

// Done delivers exactly one Event and is then closed.
func (j *Job) Done() <-chan Event { return j.done }

// Wait blocks until the job ends.
func (j *Job) Wait() Event { return <-j.done }

// Submit starts translating text in the background.
func (c *Coordinator) Submit(ctx context.Context, text string, kind Kind) *Job {
	job := &Job{ID: c.seq.Add(1), done: make(chan Event, 1)}
	go func() {
		defer close(job.done)
		res, err := c.run(ctx, job, text, kind)
		if err == nil && job.cancelled.Load() {
			err = types.NewAppError(types.ErrCancelled, "translation cancelled", nil)
		}
		if err != nil {
			res = nil
		}
		job.done <- Event{Job: job.ID, Result: res, Err: err}
	}()
	return job
}

// Translate runs a request and waits for its result.
func (c *Coordinator) Translate(ctx context.Context, text string, kind Kind) (*Result, error) {
	ev := c.Submit(ctx, text, kind).Wait()
	return ev.Result, ev.Err
}

type chunkResult struct {
	index     int
	sentences []Sentence
	words     map[string]string
	cached    bool
}

func (c *Coordinator) run(ctx context.Context, job *Job, text string, kind Kind) (*Result, error) {
	chunks := Split(text, c.opts.ChunkSize)
	if len(chunks) == 0 {
		return nil, types.NewAppError(types.ErrInvalidInput, "nothing to translate", nil)
	}

	start := time.Now()
	logger.Debug("dispatching chunks",
		logger.Int64("job", int64(job.ID)),
		logger.String("kind", kind.String()),
		logger.Int("chunks", len(chunks)))

	// results is shared by this request's workers only.
	var mu sync.Mutex
	results := make([]chunkResult, 0, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, chunk := range chunks {
		if job.cancelled.Load() {
			break
		}
		i, chunk := i, chunk
		g.Go(func() error {
			res, err := c.translateChunk(gctx, kind, i, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("translation failed", err,
			logger.Int64("job", int64(job.ID)),
			logger.String("kind", kind.String()))
		return nil, err
	}
	if job.cancelled.Load() {
		return nil, types.NewAppError(types.ErrCancelled, "translation cancelled", nil)
	}

	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })
	merged := merge(kind, results)
	merged.Chunks = len(chunks)

	logger.Debug("chunks merged",
		logger.Int64("job", int64(job.ID)),
		logger.Int("sentences", len(merged.Sentences)),
		logger.Int("words", len(merged.Words)),
		logger.Int("cached", merged.Cached),
		logger.Duration("elapsed", time.Since(start)))
	return merged, nil
}

func merge(kind Kind, results []chunkResult) *Result {
	out := &Result{Kind: kind}
	if kind == Words {
		out.Words = make(map[string]string)
	}
	for _, r := range results {
		if r.cached {
			out.Cached++
		}
		out.Sentences = append(out.Sentences, r.sentences...)
		for w, tr := range r.words {
			out.Words[w] = tr
		}
	}
	return out
}

func (c *Coordinator) translateChunk(ctx context.Context, kind Kind, index int, chunk string) (chunkResult, error) {
	res := chunkResult{index: index}
	input := normalize.Block(chunk)
	if input == "" {
		return res, nil
	}
	req := Request{Model: c.opts.Model, Prompt: c.opts.Prompts.For(kind), Input: input}
	key := Key(kind, req.Model, req.Prompt, req.Input)

	raw, hit := "", false
	if c.opts.Cache != nil {
		raw, hit = c.opts.Cache.Get(key)
	}
	if !hit {
		var err error
		raw, err = c.svc.Complete(ctx, req)
		if err != nil {
			return res, asNetworkError(err)
		}
	}

	var err error
	switch kind {
	case Words:
		res.words, err = ParseWords(raw)
	default:
		res.sentences, err = ParseSentences(raw)
	}
	if err != nil {
		return res, err
	}

	res.cached = hit
	if !hit && c.opts.Cache != nil {
		c.opts.Cache.Set(key, kind, input, raw)
	}
	return res, nil
}

func asNetworkError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return types.NewAppError(types.ErrCancelled, "translation cancelled", err)
	}
	return types.NewAppError(types.ErrNetwork, "translation service request failed", err)
}
