package ops

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names the operation a task runs.
type Kind string

const (
	KindCopy   Kind = "copy"
	KindSearch Kind = "search"
)

// Result is the terminal outcome of a task.
type Result struct {
	ID       uuid.UUID
	Kind     Kind
	Label    string
	Err      error
	Files    int
	Bytes    int64
	Matches  int
	Started  time.Time
	Finished time.Time
}

// Duration is the task's wall time.
func (r Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// TaskInfo describes a running task.
type TaskInfo struct {
	ID      uuid.UUID
	Kind    Kind
	Label   string
	Started time.Time
}

// tracked is the type-erased view the engine registry keeps.
type tracked interface {
	Info() TaskInfo
	Cancel()
	Done() <-chan struct{}
}

type runnable interface {
	tracked
	taskContext() context.Context
	finish(Result)
}

// Task is a running background operation producing events of type T.
//
// Events are sent with blocking sends in completion order and the channel
// is closed when the task ends. Consumers must drain Events (or Cancel the
// task) for it to finish.
type Task[T any] struct {
	info   TaskInfo
	events chan T
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	result Result
}

func newTask[T any](parent context.Context, kind Kind, label string, buffer int) *Task[T] {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Task[T]{
		info: TaskInfo{
			ID:      uuid.New(),
			Kind:    kind,
			Label:   label,
			Started: time.Now(),
		},
		events: make(chan T, buffer),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the task identifier.
func (t *Task[T]) ID() uuid.UUID { return t.info.ID }

// Info returns the task description.
func (t *Task[T]) Info() TaskInfo { return t.info }

// Events returns the ordered event stream.
func (t *Task[T]) Events() <-chan T { return t.events }

// Done is closed after the result is available.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Cancel asks the task to stop at its next checkpoint.
func (t *Task[T]) Cancel() { t.cancel() }

// Wait blocks until the task ends and returns its result and error.
func (t *Task[T]) Wait() (Result, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.result.Err
}

// WaitContext is Wait bounded by ctx.
func (t *Task[T]) WaitContext(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.Wait()
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (t *Task[T]) taskContext() context.Context { return t.ctx }

// send delivers ev unless the task was cancelled first.
func (t *Task[T]) send(ev T) bool {
	select {
	case t.events <- ev:
		return true
	case <-t.ctx.Done():
		return false
	}
}

func (t *Task[T]) finish(r Result) {
	r.ID = t.info.ID
	r.Kind = t.info.Kind
	r.Label = t.info.Label
	r.Started = t.info.Started
	r.Finished = time.Now()

	t.mu.Lock()
	t.result = r
	t.mu.Unlock()

	close(t.events)
	t.cancel()
	close(t.done)
}
