package app

import (
	"errors"
	"os"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/justyntemme/chex/internal/fs"
	"github.com/justyntemme/chex/internal/metrics"
)

func mkdirs(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.MkdirAll(filepath.Join(root, n), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func touch(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(root, n), []byte(n), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestSession(t *testing.T, start string) *Session {
	t.Helper()
	s, err := NewSession(SessionOptions{StartPath: start})
	if err != nil {
		t.Fatalf("NewSession(%q): %v", start, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func names(entries []fs.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestSession_BackForwardRoundTrip(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a", "b")
	a, b := filepath.Join(root, "a"), filepath.Join(root, "b")

	s := newTestSession(t, a)
	if err := s.Navigate(b); err != nil {
		t.Fatal(err)
	}

	if err := s.GoBack(); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.Path != a {
		t.Errorf("after GoBack path = %q, want %q", snap.Path, a)
	}
	if snap.CanBack || !snap.CanForward {
		t.Errorf("CanBack=%v CanForward=%v, want false true", snap.CanBack, snap.CanForward)
	}

	if err := s.GoForward(); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Path; got != b {
		t.Errorf("after GoForward path = %q, want %q", got, b)
	}

	// Both ends are no-ops.
	if err := s.GoForward(); err != nil {
		t.Errorf("GoForward at end: %v", err)
	}
	if got := s.Snapshot().Path; got != b {
		t.Errorf("path moved to %q", got)
	}
}

func TestSession_NavigateDiscardsForwardHistory(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a", "b", "c")
	a, b, c := filepath.Join(root, "a"), filepath.Join(root, "b"), filepath.Join(root, "c")

	s := newTestSession(t, a)
	if err := s.Navigate(b); err != nil {
		t.Fatal(err)
	}
	if err := s.GoBack(); err != nil {
		t.Fatal(err)
	}
	if err := s.Navigate(c); err != nil {
		t.Fatal(err)
	}

	hist, idx := s.History()
	want := []string{a, c}
	if len(hist) != len(want) || hist[0] != want[0] || hist[1] != want[1] {
		t.Fatalf("history = %v, want %v", hist, want)
	}
	if idx != 1 {
		t.Errorf("cursor = %d, want 1", idx)
	}
	if s.Snapshot().CanForward {
		t.Error("CanForward after new navigation")
	}
}

func TestSession_NavigateSamePathNotDuplicated(t *testing.T) {
	root := t.TempDir()
	s := newTestSession(t, root)
	if err := s.Navigate(root); err != nil {
		t.Fatal(err)
	}
	if hist, _ := s.History(); len(hist) != 1 {
		t.Errorf("history = %v, want one entry", hist)
	}
}

func TestSession_NavigateRelativeAndUp(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a/b")

	s := newTestSession(t, root)
	if err := s.Navigate("a/b"); err != nil {
		t.Fatal(err)
	}
	if got, want := s.Snapshot().Path, filepath.Join(root, "a", "b"); got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
	if err := s.GoUp(); err != nil {
		t.Fatal(err)
	}
	if got, want := s.Snapshot().Path, filepath.Join(root, "a"); got != want {
		t.Errorf("after GoUp path = %q, want %q", got, want)
	}
}

func TestSession_GoUpAtRoot(t *testing.T) {
	rootDir := filepath.VolumeName(os.TempDir()) + string(filepath.Separator)
	s := newTestSession(t, rootDir)
	before := s.Snapshot()
	if err := s.GoUp(); err != nil {
		t.Fatal(err)
	}
	after := s.Snapshot()
	if after.Path != before.Path || after.Version != before.Version {
		t.Errorf("GoUp at root changed state: %q v%d -> %q v%d", before.Path, before.Version, after.Path, after.Version)
	}
}

func TestSession_NavigateErrorsLeaveStateUnchanged(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "file.txt")
	s := newTestSession(t, root)
	before := s.Snapshot()

	tests := []struct {
		path string
		want error
	}{
		{filepath.Join(root, "missing"), fs.ErrNotFound},
		{filepath.Join(root, "file.txt"), fs.ErrNotADirectory},
	}
	for _, tt := range tests {
		err := s.Navigate(tt.path)
		if !errors.Is(err, tt.want) {
			t.Errorf("Navigate(%q) = %v, want %v", tt.path, err, tt.want)
		}
	}

	after := s.Snapshot()
	if after.Path != before.Path || after.Version != before.Version {
		t.Errorf("state changed after failed navigation")
	}
	if hist, _ := s.History(); len(hist) != 1 {
		t.Errorf("history grew to %v", hist)
	}
}

func TestSession_GoBackToVanishedDirectory(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a", "b")
	a, b := filepath.Join(root, "a"), filepath.Join(root, "b")

	s := newTestSession(t, a)
	if err := s.Navigate(b); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(a); err != nil {
		t.Fatal(err)
	}

	if err := s.GoBack(); !errors.Is(err, fs.ErrNotFound) {
		t.Fatalf("GoBack = %v, want ErrNotFound", err)
	}
	snap := s.Snapshot()
	if snap.Path != b || !snap.CanBack {
		t.Errorf("state changed: path=%q CanBack=%v", snap.Path, snap.CanBack)
	}
}

func TestSession_ToggleHidden(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "visible", ".hidden1", ".hidden2")
	mkdirs(t, root, ".config")

	s := newTestSession(t, root)
	hiddenOff := s.Snapshot()
	if err := s.ToggleHidden(); err != nil {
		t.Fatal(err)
	}
	hiddenOn := s.Snapshot()
	if err := s.ToggleHidden(); err != nil {
		t.Fatal(err)
	}
	back := s.Snapshot()

	if len(hiddenOff.Entries) != 1 || len(hiddenOn.Entries) != 4 {
		t.Fatalf("entries off=%v on=%v", names(hiddenOff.Entries), names(hiddenOn.Entries))
	}
	if !hiddenOn.ShowHidden || back.ShowHidden {
		t.Error("ShowHidden not reflected in snapshot")
	}
	if got := names(back.Entries); len(got) != 1 || got[0] != "visible" {
		t.Errorf("after toggling back = %v, want [visible]", got)
	}
}

func TestSession_SetSortDirectoriesFirst(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "zdir", "adir")
	touch(t, root, "b.txt", "a.go", "c")

	s := newTestSession(t, root)
	keys := []fs.SortKey{fs.SortByName, fs.SortBySize, fs.SortByModified, fs.SortByType, fs.SortByCreated}
	for _, key := range keys {
		for _, order := range []fs.SortOrder{fs.Ascending, fs.Descending} {
			if err := s.SetSort(key, order); err != nil {
				t.Fatal(err)
			}
			snap := s.Snapshot()
			if snap.SortKey != key || snap.Order != order {
				t.Errorf("snapshot policy = %v/%v, want %v/%v", snap.SortKey, snap.Order, key, order)
			}
			seenFile := false
			for _, e := range snap.Entries {
				if e.Kind != fs.KindDirectory {
					seenFile = true
				} else if seenFile {
					t.Errorf("%v/%v: directory %q after a file: %v", key, order, e.Name, names(snap.Entries))
				}
			}
		}
	}
}

func TestSession_Selection(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a", "b", "c")
	s := newTestSession(t, root)

	if err := s.Select(1, false); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(2, true); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(0, true); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(2, true); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if got := snap.Selection; len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("selection = %v, want [0 1]", got)
	}
	if got := names(snap.Selected()); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("selected = %v", got)
	}

	if err := s.Select(1, false); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Selection; len(got) != 1 || got[0] != 1 {
		t.Errorf("replace selection = %v, want [1]", got)
	}

	for _, idx := range []int{-1, 3} {
		if err := s.Select(idx, false); !errors.Is(err, fs.ErrInvalidSelection) {
			t.Errorf("Select(%d) = %v, want ErrInvalidSelection", idx, err)
		}
	}

	s.SelectAll()
	if got := s.Snapshot().Selection; len(got) != 3 {
		t.Errorf("SelectAll = %v", got)
	}
	s.ClearSelection()
	if got := s.Snapshot().Selection; len(got) != 0 {
		t.Errorf("ClearSelection = %v", got)
	}

	s.SelectAll()
	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Selection; len(got) != 0 {
		t.Errorf("selection survived refresh: %v", got)
	}
}

func TestSession_SelectVersion(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a", "b")
	s := newTestSession(t, root)

	v := s.Snapshot().Version
	if err := s.SelectVersion(v, 0, false); err != nil {
		t.Fatal(err)
	}
	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectVersion(v, 1, false); !errors.Is(err, fs.ErrStaleSnapshot) {
		t.Errorf("SelectVersion(stale) = %v, want ErrStaleSnapshot", err)
	}
	if got := s.Snapshot().Selection; len(got) != 0 {
		t.Errorf("stale selection applied: %v", got)
	}
}

func TestSession_RefreshKeepsHistory(t *testing.T) {
	root := t.TempDir()
	s := newTestSession(t, root)
	touch(t, root, "new.txt")

	v := s.Snapshot().Version
	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if len(snap.Entries) != 1 || snap.Version <= v {
		t.Errorf("refresh: entries=%v version %d -> %d", names(snap.Entries), v, snap.Version)
	}
	if hist, _ := s.History(); len(hist) != 1 {
		t.Errorf("refresh touched history: %v", hist)
	}
}

func TestSession_OnNavigate(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a")
	var visited []string
	s, err := NewSession(SessionOptions{
		StartPath:  root,
		OnNavigate: func(p string) { visited = append(visited, p) },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Navigate("a"); err != nil {
		t.Fatal(err)
	}
	if err := s.GoBack(); err != nil {
		t.Fatal(err)
	}
	if err := s.Navigate("missing"); err == nil {
		t.Fatal("expected error")
	}

	want := []string{root, filepath.Join(root, "a"), root}
	if len(visited) != len(want) {
		t.Fatalf("visited = %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}

func TestSession_WatchFailureDoesNotFailNavigation(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a")
	m := metrics.New(false)

	s, err := NewSession(SessionOptions{StartPath: root, Watch: true, Metrics: m})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.newWatcher = func(dir string, _ chan struct{}, _ *metrics.Metrics) (*WatcherBridge, error) {
		return nil, fs.NewError("watch", dir, fs.ErrWatchFailure, errors.New("no watches left"))
	}
	if err := s.Navigate("a"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	snap := s.Snapshot()
	if snap.Path != filepath.Join(root, "a") {
		t.Errorf("path = %q", snap.Path)
	}
	if !IsWatchFailure(snap.WatchErr) {
		t.Errorf("WatchErr = %v, want ErrWatchFailure", snap.WatchErr)
	}
	if changed, err := s.PollChanges(); changed || err != nil {
		t.Errorf("PollChanges without watcher = %v, %v", changed, err)
	}

	s.newWatcher = NewWatcherBridge
	if err := s.GoBack(); err != nil {
		t.Fatal(err)
	}
	if err := s.Snapshot().WatchErr; err != nil {
		t.Errorf("WatchErr after successful reinstall = %v", err)
	}
}

func TestSession_PollChanges(t *testing.T) {
	root := t.TempDir()
	s, err := NewSession(SessionOptions{StartPath: root, Watch: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Snapshot().WatchErr; err != nil {
		t.Skipf("watcher unavailable: %v", err)
	}

	if changed, err := s.PollChanges(); changed || err != nil {
		t.Fatalf("PollChanges on quiet dir = %v, %v", changed, err)
	}

	touch(t, root, "created.txt")
	select {
	case <-s.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal")
	}

	changed, err := s.PollChanges()
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("PollChanges reported no refresh")
	}
	if got := names(s.Snapshot().Entries); len(got) != 1 || got[0] != "created.txt" {
		t.Errorf("entries = %v", got)
	}
}

func TestSession_DisabledWatcher(t *testing.T) {
	root := t.TempDir()
	s := newTestSession(t, root)
	touch(t, root, "x")
	if changed, err := s.PollChanges(); changed || err != nil {
		t.Errorf("PollChanges = %v, %v", changed, err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestSession_WatchErrPublishedWithListing(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a")

	s, err := NewSession(SessionOptions{StartPath: root, Watch: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Snapshot().WatchErr; err != nil {
		t.Skipf("watcher unavailable: %v", err)
	}

	var during Snapshot
	s.newWatcher = func(dir string, _ chan struct{}, _ *metrics.Metrics) (*WatcherBridge, error) {
		during = s.Snapshot()
		return nil, fs.NewError("watch", dir, fs.ErrWatchFailure, errors.New("no watches left"))
	}
	if err := s.Navigate("a"); err != nil {
		t.Fatal(err)
	}

	// While the watcher is being installed the old listing is still the
	// published one, so path and WatchErr never come from different directories.
	if during.Path != root || during.WatchErr != nil {
		t.Errorf("snapshot during install = %q, %v; want %q, <nil>", during.Path, during.WatchErr, root)
	}
	snap := s.Snapshot()
	if snap.Path != filepath.Join(root, "a") || !IsWatchFailure(snap.WatchErr) {
		t.Errorf("snapshot after = %q, %v", snap.Path, snap.WatchErr)
	}
}

func TestSession_RuntimeWatchErrClears(t *testing.T) {
	root := t.TempDir()
	s, err := NewSession(SessionOptions{StartPath: root, Watch: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Snapshot().WatchErr; err != nil {
		t.Skipf("watcher unavailable: %v", err)
	}

	w := s.watcher
	w.mu.Lock()
	w.lastErr = fs.NewError("watch", root, fs.ErrWatchFailure, errors.New("queue overflow"))
	w.mu.Unlock()

	if _, err := s.PollChanges(); err != nil {
		t.Fatal(err)
	}
	if err := s.Snapshot().WatchErr; !IsWatchFailure(err) {
		t.Fatalf("WatchErr after runtime error = %v, want ErrWatchFailure", err)
	}

	if _, err := s.PollChanges(); err != nil {
		t.Fatal(err)
	}
	if err := s.Snapshot().WatchErr; err != nil {
		t.Errorf("WatchErr after a clean poll = %v, want nil", err)
	}
}

func TestSession_ConcurrentNavigation(t *testing.T) {
	root := t.TempDir()
	dirs := []string{"a", "b", "c"}
	for _, d := range dirs {
		mkdirs(t, root, d)
		touch(t, filepath.Join(root, d), d+"1", d+"2")
	}

	s, err := NewSession(SessionOptions{StartPath: root, Watch: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	const (
		workers    = 8
		iterations = 50
	)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				switch (w + i) % 6 {
				case 0:
					if err := s.Navigate(filepath.Join(root, dirs[(w+i)%len(dirs)])); err != nil {
						t.Errorf("Navigate: %v", err)
					}
				case 1:
					if err := s.GoBack(); err != nil {
						t.Errorf("GoBack: %v", err)
					}
				case 2:
					if err := s.GoForward(); err != nil {
						t.Errorf("GoForward: %v", err)
					}
				case 3:
					if _, err := s.PollChanges(); err != nil {
						t.Errorf("PollChanges: %v", err)
					}
				case 4:
					name := fmt.Sprintf("w%d-%d", w, i)
					_ = os.WriteFile(filepath.Join(root, dirs[i%len(dirs)], name), nil, 0o644)
					_ = s.Select(0, true)
				case 5:
					if err := s.Navigate(root); err != nil {
						t.Errorf("Navigate root: %v", err)
					}
				}

				snap := s.Snapshot()
				for _, e := range snap.Entries {
					if filepath.Dir(e.Path) != snap.Path {
						t.Errorf("entry %s listed under %s", e.Path, snap.Path)
					}
				}
				for _, idx := range snap.Selection {
					if idx < 0 || idx >= len(snap.Entries) {
						t.Errorf("selection %d out of range for %d entries", idx, len(snap.Entries))
					}
				}
				paths, cursor := s.History()
				if cursor < 0 || cursor >= len(paths) {
					t.Errorf("history cursor %d out of range for %d paths", cursor, len(paths))
				}
			}
		}(w)
	}
	wg.Wait()

	snap := s.Snapshot()
	paths, cursor := s.History()
	if paths[cursor] != snap.Path {
		t.Errorf("history cursor at %q, current path %q", paths[cursor], snap.Path)
	}
}
