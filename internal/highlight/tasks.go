package highlight

import (
	"sort"
	"sync"
)

// TaskStatus summarizes the background work of a page.
type TaskStatus string

const (
	StatusIdle       TaskStatus = "idle"
	StatusInProgress TaskStatus = "in-progress"
	StatusDone       TaskStatus = "done"
)

type taskCounter struct {
	active    int // 进行中的任务数
	completed int // 已完成、尚未被查看的任务数
}

// TaskCounters tracks per-page translation jobs for progress display. It is
// safe for concurrent use.
type TaskCounters struct {
	mu    sync.Mutex
	pages map[int]*taskCounter
}

// NewTaskCounters creates an empty set of counters.
func NewTaskCounters() *TaskCounters {
	return &TaskCounters{pages: make(map[int]*taskCounter)}
}

func (t *TaskCounters) counter(page int) *taskCounter {
	c, ok := t.pages[page]
	if !ok {
		c = &taskCounter{}
		t.pages[page] = c
	}
	return c
}

// Start records a submitted task on page.
func (t *TaskCounters) Start(page int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counter(page).active++
}

// Complete records a successful task on page.
func (t *TaskCounters) Complete(page int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.counter(page)
	if c.active > 0 {
		c.active--
	}
	c.completed++
}

// Fail records a failed task on page. Failures are not counted as completed.
func (t *TaskCounters) Fail(page int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.counter(page)
	if c.active > 0 {
		c.active--
	}
}

// ClearStatus resets the completed count of page once it has been shown.
func (t *TaskCounters) ClearStatus(page int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.pages[page]; ok {
		c.completed = 0
		if c.active == 0 {
			delete(t.pages, page)
		}
	}
}

// Status derives the display status of page.
func (t *TaskCounters) Status(page int) TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.pages[page]
	switch {
	case !ok:
		return StatusIdle
	case c.active > 0:
		return StatusInProgress
	case c.completed > 0:
		return StatusDone
	default:
		return StatusIdle
	}
}

// Counts returns the raw counters of page.
func (t *TaskCounters) Counts(page int) (active, completed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.pages[page]; ok {
		return c.active, c.completed
	}
	return 0, 0
}

// Busy returns the pages with at least one running task, ascending.
func (t *TaskCounters) Busy() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []int
	for p, c := range t.pages {
		if c.active > 0 {
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}

// Reset forgets every counter.
func (t *TaskCounters) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pages = make(map[int]*taskCounter)
}
