//go:build !windows

package fs

import (
	"path/filepath"
	"strings"
)

// IsHidden reports whether path is hidden. POSIX uses the dotfile convention.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
