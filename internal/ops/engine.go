// Package ops runs copy and search operations as background tasks on a
// bounded worker pool.
package ops

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/semaphore"

	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/fs"
	"github.com/justyntemme/chex/internal/metrics"
	"github.com/justyntemme/chex/internal/search"
)

// ErrShutdown is returned for tasks started after Shutdown.
var ErrShutdown = errors.New("ops: engine shut down")

// Config sizes the engine.
type Config struct {
	Workers         int   // concurrent tasks, default 4
	EventBuffer     int   // per-task event channel capacity, default 64
	MaxContentBytes int64 // content search cap, 0 uses the search default
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{Workers: 4, EventBuffer: 64}
}

// Engine schedules tasks. It never touches navigation state; callers refresh
// their session when a task that affects it finishes.
type Engine struct {
	cfg     Config
	sem     *semaphore.Weighted
	tasks   *xsync.Map[uuid.UUID, tracked]
	metrics *metrics.Metrics

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// NewEngine creates an engine. m may be nil.
func NewEngine(cfg Config, m *metrics.Metrics) *Engine {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.EventBuffer < 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Engine{
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.Workers)),
		tasks:   xsync.NewMap[uuid.UUID, tracked](),
		metrics: m,
		baseCtx: ctx,
		stop:    stop,
	}
}

// StartCopy schedules a copy. Events carry per-file progress.
func (e *Engine) StartCopy(ctx context.Context, req CopyRequest) *Task[CopyProgress] {
	label := fmt.Sprintf("%s -> %s", strings.Join(req.Sources, ", "), req.Destination)
	t := newTask[CopyProgress](ctx, KindCopy, label, e.cfg.EventBuffer)

	e.run(t, func() Result {
		var last int64
		progress, err := Copy(t.ctx, req, func(p CopyProgress) {
			e.metrics.FileCopied(p.BytesCopied - last)
			last = p.BytesCopied
			t.send(p)
		})
		return Result{Err: err, Files: progress.CompletedFiles, Bytes: progress.BytesCopied}
	})
	return t
}

// StartSearch schedules a search under root. Events carry matches.
func (e *Engine) StartSearch(ctx context.Context, root string, q search.Query) *Task[search.Match] {
	label := fmt.Sprintf("%q in %s", q.Pattern, root)
	t := newTask[search.Match](ctx, KindSearch, label, e.cfg.EventBuffer)

	e.run(t, func() Result {
		m, err := q.Compile()
		if err != nil {
			return Result{Err: err}
		}
		m.MaxContentBytes = e.cfg.MaxContentBytes

		matches := 0
		err = m.Walk(t.ctx, root, func(match search.Match) {
			if t.send(match) {
				matches++
				e.metrics.SearchMatch()
			}
		})
		return Result{Err: err, Matches: matches}
	})
	return t
}

func (e *Engine) run(t runnable, work func() Result) {
	info := t.Info()
	kind := string(info.Kind)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		t.finish(Result{Err: ErrShutdown})
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	e.tasks.Store(info.ID, t)
	e.metrics.TaskStarted(kind)
	stop := context.AfterFunc(e.baseCtx, t.Cancel)
	debug.Log(debug.OPS, "task %s (%s) queued: %s", info.ID, kind, info.Label)

	go func() {
		defer e.wg.Done()
		defer stop()

		var r Result
		if err := e.sem.Acquire(t.taskContext(), 1); err != nil {
			r = Result{Err: fs.NewError(kind, "", fs.ErrCancelled, err)}
		} else {
			debug.Log(debug.OPS, "task %s running", info.ID)
			r = work()
			e.sem.Release(1)
		}

		e.tasks.Delete(info.ID)
		e.metrics.TaskFinished(kind, statusOf(r.Err), time.Since(info.Started))
		t.finish(r)

		if r.Err != nil {
			debug.Log(debug.OPS, "task %s failed: %v", info.ID, r.Err)
		} else {
			debug.Log(debug.OPS, "task %s done: files=%d bytes=%d matches=%d", info.ID, r.Files, r.Bytes, r.Matches)
		}
	}()
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return metrics.StatusOK
	case errors.Is(err, fs.ErrCancelled):
		return metrics.StatusCancelled
	}
	return metrics.StatusFailed
}

// Running lists the tasks that have not finished, oldest first.
func (e *Engine) Running() []TaskInfo {
	var out []TaskInfo
	e.tasks.Range(func(_ uuid.UUID, t tracked) bool {
		out = append(out, t.Info())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// Cancel stops the task with id. It reports whether the task was running.
func (e *Engine) Cancel(id uuid.UUID) bool {
	t, ok := e.tasks.Load(id)
	if ok {
		t.Cancel()
	}
	return ok
}

// Shutdown cancels every task, rejects new ones and waits for workers to
// exit or ctx to end.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	already := e.closed
	e.closed = true
	e.mu.Unlock()
	if already {
		return nil
	}
	e.stop()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		debug.Log(debug.OPS, "engine shut down")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
