package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/justyntemme/chex/internal/fs"
	"github.com/justyntemme/chex/internal/metrics"
)

func TestWatcherBridge_QueuesEvents(t *testing.T) {
	dir := t.TempDir()
	b, err := NewWatcherBridge(dir, nil, nil)
	if err != nil {
		t.Skipf("watcher unavailable: %v", err)
	}
	defer b.Close()

	if got := b.Drain(); len(got) != 0 {
		t.Fatalf("Drain on quiet dir = %v", got)
	}

	for _, n := range []string{"one", "two"} {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	seen := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case <-b.Signal():
			for _, ev := range b.Drain() {
				seen[filepath.Base(ev.Name)] = true
			}
		case <-deadline:
			t.Fatalf("events seen = %v", seen)
		}
	}
}

func TestWatcherBridge_InstallFailure(t *testing.T) {
	m := metrics.New(false)
	_, err := NewWatcherBridge(filepath.Join(t.TempDir(), "missing"), nil, m)
	if !errors.Is(err, fs.ErrWatchFailure) {
		t.Fatalf("err = %v, want ErrWatchFailure", err)
	}
	if got := testutil.ToFloat64(m.WatcherErrors); got != 1 {
		t.Errorf("watcher errors = %v, want 1", got)
	}
}

func TestWatcherBridge_CloseIdempotent(t *testing.T) {
	b, err := NewWatcherBridge(t.TempDir(), nil, nil)
	if err != nil {
		t.Skipf("watcher unavailable: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}
