package highlight

import "sync"

// PageLocks hands out one mutex per page so that edits to the same page are
// serialized while different pages proceed independently.
type PageLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewPageLocks creates an empty lock table.
func NewPageLocks() *PageLocks {
	return &PageLocks{locks: make(map[int]*sync.Mutex)}
}

// Lock acquires the lock of page and returns its release function.
func (p *PageLocks) Lock(page int) (unlock func()) {
	p.mu.Lock()
	l, ok := p.locks[page]
	if !ok {
		l = &sync.Mutex{}
		p.locks[page] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// inflight marks entities with an operation in progress.
type inflight struct {
	keys sync.Map
}

// begin claims key, returning false if it is already claimed.
func (f *inflight) begin(key string) bool {
	_, loaded := f.keys.LoadOrStore(key, struct{}{})
	return !loaded
}

func (f *inflight) end(key string) {
	f.keys.Delete(key)
}

func (f *inflight) busy(key string) bool {
	_, ok := f.keys.Load(key)
	return ok
}
