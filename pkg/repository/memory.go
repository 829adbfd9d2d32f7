package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/m-mizutani/farmassist/pkg/interfaces"
	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/farmassist/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Memory keeps threads in process memory. Without options it never evicts.
// A thread with a turn in flight may leave the LRU, but it stays pinned and is
// put back on the next lookup, so one id never maps to two threads.
type Memory struct {
	mu      sync.Mutex
	threads *expirable.LRU[model.ThreadID, *model.Thread]

	pinMu  sync.Mutex
	pinned map[model.ThreadID]*pin

	maxThreads int
	ttl        time.Duration
}

var _ interfaces.Repository = (*Memory)(nil)

type pin struct {
	thread *model.Thread
	refs   int
}

type Option func(*Memory)

// WithMaxThreads bounds the number of threads. The least recently used thread is
// evicted. Threads in a turn are not counted while they are out of the LRU.
func WithMaxThreads(n int) Option {
	return func(m *Memory) {
		m.maxThreads = n
	}
}

// WithThreadTTL evicts threads that have not been accessed for d
func WithThreadTTL(d time.Duration) Option {
	return func(m *Memory) {
		m.ttl = d
	}
}

// NewMemory creates a new in-memory thread repository
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		pinned: make(map[model.ThreadID]*pin),
	}
	for _, opt := range opts {
		opt(m)
	}

	// expirable.LRU treats 0 as unlimited size and no expiry
	m.threads = expirable.NewLRU(m.maxThreads, onEvict, m.ttl)
	return m
}

func onEvict(id model.ThreadID, thread *model.Thread) {
	logging.Default().Debug("thread evicted", "thread_id", id, "messages", thread.Len())
}

func (m *Memory) GetOrCreateThread(id model.ThreadID) (*model.Thread, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreate(id)
}

// getOrCreate must be called with m.mu held
func (m *Memory) getOrCreate(id model.ThreadID) (*model.Thread, bool) {
	if thread, ok := m.threads.Get(id); ok {
		if m.ttl > 0 {
			// expirable.LRU does not extend expiry on Get
			m.threads.Add(id, thread)
		}
		return thread, false
	}

	if thread, ok := m.lookupPinned(id); ok {
		logging.Default().Debug("evicted thread restored while in use", "thread_id", id)
		m.threads.Add(id, thread)
		return thread, false
	}

	thread := model.NewThread(id)
	m.threads.Add(id, thread)
	return thread, true
}

// AcquireThread gets or creates the thread, pins it and waits for its turn
func (m *Memory) AcquireThread(ctx context.Context, id model.ThreadID) (*model.Thread, bool, func(), error) {
	m.mu.Lock()
	thread, created := m.getOrCreate(id)
	m.pin(id, thread)
	m.mu.Unlock()

	if err := thread.Acquire(ctx); err != nil {
		m.unpin(id)
		return nil, false, nil, goerr.Wrap(err, "failed to wait for thread turn", goerr.V("thread_id", id))
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			thread.Release()
			m.unpin(id)
		})
	}
	return thread, created, release, nil
}

func (m *Memory) pin(id model.ThreadID, thread *model.Thread) {
	m.pinMu.Lock()
	defer m.pinMu.Unlock()

	if p, ok := m.pinned[id]; ok {
		p.refs++
		return
	}
	m.pinned[id] = &pin{thread: thread, refs: 1}
}

func (m *Memory) unpin(id model.ThreadID) {
	m.pinMu.Lock()
	defer m.pinMu.Unlock()

	p, ok := m.pinned[id]
	if !ok {
		return
	}
	p.refs--
	if p.refs <= 0 {
		delete(m.pinned, id)
	}
}

func (m *Memory) lookupPinned(id model.ThreadID) (*model.Thread, bool) {
	m.pinMu.Lock()
	defer m.pinMu.Unlock()

	if p, ok := m.pinned[id]; ok {
		return p.thread, true
	}
	return nil, false
}

func (m *Memory) GetThread(id model.ThreadID) (*model.Thread, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if thread, ok := m.threads.Get(id); ok {
		return thread, true
	}
	return m.lookupPinned(id)
}

func (m *Memory) DeleteThread(id model.ThreadID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threads.Remove(id)
}

func (m *Memory) CountThreads() int {
	return m.threads.Len()
}
