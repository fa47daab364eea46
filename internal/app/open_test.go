//go:build linux || darwin

package app

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/justyntemme/chex/internal/fs"
)

func captureLaunches(t *testing.T, fail error) *[]launcher {
	t.Helper()
	var got []launcher
	prev := startLauncher
	startLauncher = func(l launcher) error {
		got = append(got, l)
		return fail
	}
	t.Cleanup(func() { startLauncher = prev })
	return &got
}

func TestOpenAndReveal(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got := captureLaunches(t, nil)

	if err := Open(file); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := Reveal(file); err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if len(*got) != 2 {
		t.Fatalf("launches = %d, want 2", len(*got))
	}

	open, reveal := (*got)[0], (*got)[1]
	switch runtime.GOOS {
	case "darwin":
		if open.name != "open" || open.args[0] != file {
			t.Errorf("open = %+v", open)
		}
		if reveal.name != "open" || reveal.args[0] != "-R" || reveal.args[1] != file {
			t.Errorf("reveal = %+v", reveal)
		}
	default:
		if open.name != "xdg-open" || open.args[0] != file {
			t.Errorf("open = %+v", open)
		}
		if reveal.name != "xdg-open" || reveal.args[0] != dir {
			t.Errorf("reveal = %+v", reveal)
		}
	}
}

func TestOpenMissingPath(t *testing.T) {
	got := captureLaunches(t, nil)
	err := Open(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, fs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(*got) != 0 {
		t.Fatalf("launched %+v for a missing path", *got)
	}
}

func TestOpenLaunchFailure(t *testing.T) {
	captureLaunches(t, errors.New("exec: not found"))
	err := Open(t.TempDir())
	if !errors.Is(err, fs.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}
}
