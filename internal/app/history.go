package app

import (
	"path/filepath"
	"runtime"
	"strings"
)

// maxHistorySize bounds the navigation history; the oldest entries go first.
const maxHistorySize = 100

// history is a list of visited paths and a cursor into it.
type history struct {
	paths []string
	index int
}

// push truncates everything after the cursor and appends path unless it is
// already the tail.
func (h *history) push(path string) {
	if len(h.paths) > 0 {
		h.paths = h.paths[:h.index+1]
		if h.paths[h.index] == path {
			return
		}
	}
	h.paths = append(h.paths, path)
	h.index = len(h.paths) - 1

	if len(h.paths) > maxHistorySize {
		excess := len(h.paths) - maxHistorySize
		h.paths = append([]string(nil), h.paths[excess:]...)
		h.index -= excess
	}
}

func (h *history) canBack() bool    { return h.index > 0 }
func (h *history) canForward() bool { return h.index < len(h.paths)-1 }

// peek returns the path delta steps from the cursor.
func (h *history) peek(delta int) (string, bool) {
	i := h.index + delta
	if i < 0 || i >= len(h.paths) {
		return "", false
	}
	return h.paths[i], true
}

func (h *history) snapshot() ([]string, int) {
	return append([]string(nil), h.paths...), h.index
}

// ExpandPath turns user input into an absolute clean path. It handles ~ for
// the home directory and resolves relative input against cwd.
func ExpandPath(input, cwd, home string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return filepath.Clean(cwd)
	}

	if strings.HasPrefix(input, "~") && home != "" {
		if input == "~" {
			return filepath.Clean(home)
		}
		if strings.HasPrefix(input, "~/") || strings.HasPrefix(input, "~\\") {
			return filepath.Clean(filepath.Join(home, input[2:]))
		}
	}

	if isAbsolutePath(input) {
		return filepath.Clean(input)
	}
	if cwd == "" {
		if abs, err := filepath.Abs(input); err == nil {
			return abs
		}
	}
	return filepath.Clean(filepath.Join(cwd, input))
}

// isAbsolutePath also accepts drive-letter and UNC forms on Windows.
func isAbsolutePath(path string) bool {
	if filepath.IsAbs(path) {
		return true
	}
	if runtime.GOOS == "windows" {
		if len(path) >= 2 && isLetter(path[0]) && path[1] == ':' {
			return true
		}
		if len(path) >= 2 && path[0] == '\\' && path[1] == '\\' {
			return true
		}
	}
	return false
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
