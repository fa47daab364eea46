package app

import (
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/fs"
	"github.com/justyntemme/chex/internal/metrics"
)

// WatcherBridge owns one non-recursive fsnotify watch on a single directory.
// Events are queued without bound and a coalescing signal is raised for each
// batch; Drain hands the queue to the consumer.
type WatcherBridge struct {
	path    string
	watcher *fsnotify.Watcher
	metrics *metrics.Metrics

	mu      sync.Mutex
	queue   []fsnotify.Event
	lastErr error

	signal    chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewWatcherBridge starts watching path. signal receives a non-blocking send
// whenever events are queued; pass nil to get a private 1-buffered channel.
// Failure to install is reported as fs.ErrWatchFailure.
func NewWatcherBridge(path string, signal chan struct{}, m *metrics.Metrics) (*WatcherBridge, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		m.WatcherError()
		return nil, fs.NewError("watch", path, fs.ErrWatchFailure, err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		m.WatcherError()
		return nil, fs.NewError("watch", path, fs.ErrWatchFailure, err)
	}
	if signal == nil {
		signal = make(chan struct{}, 1)
	}

	b := &WatcherBridge{
		path:    path,
		watcher: w,
		metrics: m,
		signal:  signal,
		done:    make(chan struct{}),
	}
	b.wg.Add(1)
	go b.pump()
	debug.Log(debug.WATCH, "watching %s", path)
	return b, nil
}

func (b *WatcherBridge) pump() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return

		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			// Chmod alone never changes a listing.
			if ev.Op == fsnotify.Chmod {
				continue
			}
			debug.Log(debug.WATCH, "event %s on %s", ev.Op, ev.Name)
			b.mu.Lock()
			b.queue = append(b.queue, ev)
			b.mu.Unlock()
			select {
			case b.signal <- struct{}{}:
			default:
			}

		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			debug.Warn(debug.WATCH, "watcher error on %s: %v", b.path, err)
			b.metrics.WatcherError()
			b.mu.Lock()
			b.lastErr = fs.NewError("watch", b.path, fs.ErrWatchFailure, err)
			b.mu.Unlock()
		}
	}
}

// Path returns the watched directory.
func (b *WatcherBridge) Path() string { return b.path }

// Signal returns the coalesced notification channel.
func (b *WatcherBridge) Signal() <-chan struct{} { return b.signal }

// Drain returns and clears the queued events without blocking.
func (b *WatcherBridge) Drain() []fsnotify.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.queue
	b.queue = nil
	return events
}

// TakeErr returns and clears the last runtime error reported by the
// watcher, if any.
func (b *WatcherBridge) TakeErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.lastErr
	b.lastErr = nil
	return err
}

// Close stops the pump goroutine and releases the OS watch.
func (b *WatcherBridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.watcher.Close()
		b.wg.Wait()
		debug.Log(debug.WATCH, "stopped watching %s", b.path)
	})
	return err
}
