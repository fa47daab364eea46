// Package app holds the navigation state of one browsing session and the
// watcher bridge that keeps it current.
package app

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/fs"
	"github.com/justyntemme/chex/internal/metrics"
)

// SessionOptions configures a new Session.
type SessionOptions struct {
	StartPath  string // home directory when empty
	ShowHidden bool
	SortKey    fs.SortKey
	Order      fs.SortOrder
	Watch      bool // install a watcher on the current directory
	Metrics    *metrics.Metrics

	// OnNavigate is called after every successful change of the current path,
	// outside the session locks.
	OnNavigate func(path string)
}

// Snapshot is a read-only copy of the published session state.
type Snapshot struct {
	Path       string
	Entries    []fs.Entry
	Selection  []int // sorted
	SortKey    fs.SortKey
	Order      fs.SortOrder
	ShowHidden bool
	CanBack    bool
	CanForward bool
	Version    uint64
	WatchErr   error
}

// Selected returns the selected entries in index order.
func (s Snapshot) Selected() []fs.Entry {
	out := make([]fs.Entry, 0, len(s.Selection))
	for _, i := range s.Selection {
		out = append(out, s.Entries[i])
	}
	return out
}

// Session owns the current directory, its listing, history, selection and
// listing policy. opMu serializes mutations; mu guards the published fields
// so readers only wait for the final swap.
type Session struct {
	opMu    sync.Mutex
	watcher *WatcherBridge // guarded by opMu

	mu        sync.RWMutex
	path      string
	entries   []fs.Entry
	selection map[int]struct{}
	hist      history
	policy    fs.ListOptions
	version   uint64
	watchErr  error

	watch      bool
	newWatcher func(dir string, signal chan struct{}, m *metrics.Metrics) (*WatcherBridge, error)
	changes    chan struct{}
	metrics    *metrics.Metrics
	onNavigate func(string)
}

// NewSession creates a session and navigates to opts.StartPath.
func NewSession(opts SessionOptions) (*Session, error) {
	s := &Session{
		selection: make(map[int]struct{}),
		policy: fs.ListOptions{
			ShowHidden: opts.ShowHidden,
			SortKey:    opts.SortKey,
			Order:      opts.Order,
		},
		watch:      opts.Watch,
		newWatcher: NewWatcherBridge,
		changes:    make(chan struct{}, 1),
		metrics:    opts.Metrics,
		onNavigate: opts.OnNavigate,
	}

	start := opts.StartPath
	if start == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fs.Classify("session", "", err)
		}
		start = home
	}
	if err := s.Navigate(start); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Navigate makes path the current directory. Relative paths resolve against
// the current directory.
func (s *Session) Navigate(path string) error {
	s.opMu.Lock()
	target, err := s.navigateLocked(path)
	s.opMu.Unlock()
	if err != nil {
		return err
	}
	s.notifyNavigate(target)
	return nil
}

func (s *Session) navigateLocked(input string) (string, error) {
	home, _ := os.UserHomeDir()
	s.mu.RLock()
	cwd := s.path
	s.mu.RUnlock()
	target := ExpandPath(input, cwd, home)

	entries, policy, err := s.load(target, s.currentPolicy())
	if err != nil {
		return "", err
	}

	watchErr := s.swapWatcher(target)
	s.mu.Lock()
	s.path = target
	s.hist.push(target)
	s.commitLocked(entries, policy)
	s.watchErr = watchErr
	s.mu.Unlock()

	s.metrics.Rebuild("navigate")
	debug.Log(debug.APP, "navigated to %s (%d entries)", target, len(entries))
	return target, nil
}

// GoBack moves one step back in history. It is a no-op at the start.
func (s *Session) GoBack() error { return s.step(-1) }

// GoForward moves one step forward in history. It is a no-op at the end.
func (s *Session) GoForward() error { return s.step(1) }

func (s *Session) step(delta int) error {
	s.opMu.Lock()
	s.mu.RLock()
	target, ok := s.hist.peek(delta)
	s.mu.RUnlock()
	if !ok {
		s.opMu.Unlock()
		return nil
	}

	entries, policy, err := s.load(target, s.currentPolicy())
	if err != nil {
		s.opMu.Unlock()
		return err
	}

	watchErr := s.swapWatcher(target)
	s.mu.Lock()
	s.path = target
	s.hist.index += delta
	s.commitLocked(entries, policy)
	s.watchErr = watchErr
	s.mu.Unlock()

	s.metrics.Rebuild("history")
	s.opMu.Unlock()

	debug.Log(debug.APP, "history step %+d to %s", delta, target)
	s.notifyNavigate(target)
	return nil
}

// GoUp navigates to the parent directory. It is a no-op at the root.
func (s *Session) GoUp() error {
	s.opMu.Lock()
	s.mu.RLock()
	cur := s.path
	s.mu.RUnlock()
	parent := filepath.Dir(cur)
	if parent == cur {
		s.opMu.Unlock()
		return nil
	}
	target, err := s.navigateLocked(parent)
	s.opMu.Unlock()
	if err != nil {
		return err
	}
	s.notifyNavigate(target)
	return nil
}

// Refresh re-lists the current directory with the current policy. History
// is left alone.
func (s *Session) Refresh() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.refreshLocked(s.currentPolicy(), "refresh")
}

func (s *Session) refreshLocked(policy fs.ListOptions, trigger string) error {
	s.mu.RLock()
	cur := s.path
	s.mu.RUnlock()

	entries, policy, err := s.load(cur, policy)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.commitLocked(entries, policy)
	s.mu.Unlock()

	s.metrics.Rebuild(trigger)
	debug.Log(debug.APP, "%s: %s (%d entries)", trigger, cur, len(entries))
	return nil
}

// SetSort changes the sort policy and refreshes.
func (s *Session) SetSort(key fs.SortKey, order fs.SortOrder) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	policy := s.currentPolicy()
	policy.SortKey, policy.Order = key, order
	return s.refreshLocked(policy, "policy")
}

// ToggleHidden flips the show-hidden policy and refreshes.
func (s *Session) ToggleHidden() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	policy := s.currentPolicy()
	policy.ShowHidden = !policy.ShowHidden
	return s.refreshLocked(policy, "policy")
}

// SetShowHidden sets the show-hidden policy and refreshes.
func (s *Session) SetShowHidden(show bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	policy := s.currentPolicy()
	policy.ShowHidden = show
	return s.refreshLocked(policy, "policy")
}

// Select changes the selection. Without additive the selection becomes
// {index}; with additive index is toggled.
func (s *Session) Select(index int, additive bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(index, additive)
}

// SelectVersion is Select guarded by the snapshot version the caller saw.
// A rebuilt snapshot yields fs.ErrStaleSnapshot.
func (s *Session) SelectVersion(version uint64, index int, additive bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.version {
		return fs.NewError("select", s.path, fs.ErrStaleSnapshot, nil)
	}
	return s.selectLocked(index, additive)
}

func (s *Session) selectLocked(index int, additive bool) error {
	if index < 0 || index >= len(s.entries) {
		return fs.NewError("select", s.path, fs.ErrInvalidSelection, nil)
	}
	if !additive {
		clear(s.selection)
		s.selection[index] = struct{}{}
		return nil
	}
	if _, ok := s.selection[index]; ok {
		delete(s.selection, index)
	} else {
		s.selection[index] = struct{}{}
	}
	return nil
}

// SelectAll selects every entry.
func (s *Session) SelectAll() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		s.selection[i] = struct{}{}
	}
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.selection)
}

// Snapshot returns a copy of the published state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sel := make([]int, 0, len(s.selection))
	for i := range s.selection {
		sel = append(sel, i)
	}
	sort.Ints(sel)

	return Snapshot{
		Path:       s.path,
		Entries:    append([]fs.Entry(nil), s.entries...),
		Selection:  sel,
		SortKey:    s.policy.SortKey,
		Order:      s.policy.Order,
		ShowHidden: s.policy.ShowHidden,
		CanBack:    s.hist.canBack(),
		CanForward: s.hist.canForward(),
		Version:    s.version,
		WatchErr:   s.watchErr,
	}
}

// History returns the visited paths and the cursor.
func (s *Session) History() ([]string, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hist.snapshot()
}

// Changes is signalled, coalesced, whenever the watcher queues events.
// Consumers follow up with PollChanges.
func (s *Session) Changes() <-chan struct{} { return s.changes }

// PollChanges drains the watcher queue without blocking and refreshes when
// anything was queued. It reports whether a refresh happened.
func (s *Session) PollChanges() (bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.watcher == nil {
		return false, nil
	}

	// A runtime watcher error is reported until a poll sees no new one.
	watchErr := s.watcher.TakeErr()
	s.mu.Lock()
	s.watchErr = watchErr
	s.mu.Unlock()

	events := s.watcher.Drain()
	if len(events) == 0 {
		return false, nil
	}
	s.metrics.WatcherEvent(len(events))
	debug.Log(debug.WATCH, "%d queued events for %s", len(events), s.watcher.Path())

	if err := s.refreshLocked(s.currentPolicy(), "watch"); err != nil {
		return false, err
	}
	return true, nil
}

// Close disposes the watcher.
func (s *Session) Close() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

func (s *Session) currentPolicy() fs.ListOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// load validates dir and lists it. Nothing is published.
func (s *Session) load(dir string, policy fs.ListOptions) ([]fs.Entry, fs.ListOptions, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, policy, fs.Classify("navigate", dir, err)
	}
	if !info.IsDir() {
		return nil, policy, fs.NewError("navigate", dir, fs.ErrNotADirectory, nil)
	}
	entries, err := fs.List(dir, policy)
	if err != nil {
		return nil, policy, err
	}
	return entries, policy, nil
}

// commitLocked publishes a rebuilt listing. Callers hold mu.
func (s *Session) commitLocked(entries []fs.Entry, policy fs.ListOptions) {
	s.entries = entries
	s.policy = policy
	clear(s.selection)
	s.version++
}

// swapWatcher replaces the watcher with one on dir and returns the install
// error for the caller to publish with the new listing. Failures degrade
// live updates only. Callers hold opMu but not mu.
func (s *Session) swapWatcher(dir string) error {
	if !s.watch {
		return nil
	}
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			debug.Warn(debug.WATCH, "closing watcher on %s: %v", s.watcher.Path(), err)
		}
		s.watcher = nil
	}

	w, err := s.newWatcher(dir, s.changes, s.metrics)
	if err != nil {
		debug.Warn(debug.WATCH, "live updates disabled for %s: %v", dir, err)
	}
	s.watcher = w
	return err
}

func (s *Session) notifyNavigate(path string) {
	if s.onNavigate != nil {
		s.onNavigate(path)
	}
}

// IsWatchFailure reports whether err degraded live updates.
func IsWatchFailure(err error) bool {
	return errors.Is(err, fs.ErrWatchFailure)
}
