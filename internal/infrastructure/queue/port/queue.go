package port

import (
	"context"
	"errors"
	"time"
)

// Task is a background job: a stable type name and an opaque payload.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. Returning an error wrapping ErrSkipRetry drops the task
// regardless of the retry policy; any other error is retried per policy.
type Handler func(ctx context.Context, task Task) error

// ErrSkipRetry marks a handler failure that must not be retried.
var ErrSkipRetry = errors.New("queue: skip retry")

// EnqueueOption controls enqueue behavior. Zero values mean "unspecified".
type EnqueueOption struct {
	Queue     string        // logical queue name
	ProcessIn time.Duration // delay before processing
	ProcessAt time.Time     // absolute schedule time, wins over ProcessIn
	MaxRetry  int           // max retries for the task
	NoRetry   bool          // run at most once; overrides MaxRetry
	Timeout   time.Duration // per-attempt processing timeout
	Retention time.Duration // keep result metadata for this duration
}

// Client enqueues tasks for background processing.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs background workers. Run blocks until ctx is canceled.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}
