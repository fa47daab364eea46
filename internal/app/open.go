package app

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/fs"
)

// launcher is the program and arguments handed to the desktop.
type launcher struct {
	name string
	args []string
}

// startLauncher is swapped in tests.
var startLauncher = func(l launcher) error {
	return exec.Command(l.name, l.args...).Start()
}

// Open hands path to the platform's default application. The launched
// program is not waited on.
func Open(path string) error {
	return launch("open", path, openLauncher)
}

// Reveal shows path in the platform file manager, selecting it where the
// platform supports selection and opening its parent otherwise.
func Reveal(path string) error {
	return launch("reveal", path, revealLauncher)
}

func launch(op, path string, build func(string) launcher) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fs.Classify(op, path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fs.Classify(op, abs, err)
	}
	l := build(abs)
	debug.Log(debug.APP, "%s: %s %v", op, l.name, l.args)
	if err := startLauncher(l); err != nil {
		return fs.NewError(op, abs, fs.ErrIO, err)
	}
	return nil
}
