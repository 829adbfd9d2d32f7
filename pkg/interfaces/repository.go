package interfaces

import (
	"context"

	"github.com/m-mizutani/farmassist/pkg/model"
)

// Repository defines the interface for conversation thread storage
type Repository interface {
	// GetOrCreateThread returns the thread for id, creating an empty one if absent.
	// created is true only for the call that created the thread.
	GetOrCreateThread(id model.ThreadID) (thread *model.Thread, created bool)

	// AcquireThread gets or creates the thread and waits for its turn lock.
	// The thread is kept alive until release is called, even if it is evicted meanwhile.
	AcquireThread(ctx context.Context, id model.ThreadID) (thread *model.Thread, created bool, release func(), err error)

	// GetThread retrieves a thread by ID
	GetThread(id model.ThreadID) (*model.Thread, bool)

	// DeleteThread removes a thread. It returns false if the thread did not exist.
	DeleteThread(id model.ThreadID) bool

	// CountThreads returns the number of live threads
	CountThreads() int
}
