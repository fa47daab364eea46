//go:build !darwin && !windows

package app

import "path/filepath"

func openLauncher(path string) launcher {
	return launcher{name: "xdg-open", args: []string{path}}
}

// xdg-open has no selection mode, so the parent directory is opened.
func revealLauncher(path string) launcher {
	return launcher{name: "xdg-open", args: []string{filepath.Dir(path)}}
}
