package model

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type ThreadID string

// NewThreadID generates a new unique ThreadID
func NewThreadID() ThreadID {
	return ThreadID(uuid.New().String())
}

func (x ThreadID) String() string {
	return string(x)
}

// Thread is the conversation memory of a single thread. Messages are append-only.
type Thread struct {
	ID ThreadID

	mu       sync.RWMutex
	messages []Message

	// turn serializes chat turns on the same thread
	turn chan struct{}
}

// NewThread creates an empty thread
func NewThread(id ThreadID) *Thread {
	return &Thread{
		ID:   id,
		turn: make(chan struct{}, 1),
	}
}

// Append adds messages to the end of the thread history
func (t *Thread) Append(msgs ...Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msgs...)
}

// Messages returns a copy of the thread history
func (t *Thread) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages in the thread
func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Acquire blocks until the caller owns the turn of this thread or ctx is done.
func (t *Thread) Acquire(ctx context.Context) error {
	select {
	case t.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release gives the turn back. It must be called once per successful Acquire.
func (t *Thread) Release() {
	<-t.turn
}
