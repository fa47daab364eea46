package fs

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Kind is the filesystem object type of an entry, fixed at snapshot time.
type Kind int

const (
	KindDirectory Kind = iota
	KindRegularFile
	KindSymbolicLink
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindRegularFile:
		return "file"
	case KindSymbolicLink:
		return "symlink"
	default:
		return "other"
	}
}

// Entry is a snapshot of one filesystem entry's metadata.
type Entry struct {
	Name       string
	Path       string
	Kind       Kind
	Size       int64
	ModTime    time.Time
	Created    time.Time // zero when the platform does not report it
	Accessed   time.Time // zero when the platform does not report it
	Hidden     bool
	ReadOnly   bool
	Extension  string // lowercase, without the dot
	Category   Category
	LinksToDir bool // symlink whose target is a directory
}

// IsDir reports whether the entry is a Directory-kind entry.
func (e Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// Extension returns the lowercase extension of name without the dot.
// Leading-dot names like ".bashrc" have no extension.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// NewEntry stats path and builds an Entry. Symlinks keep KindSymbolicLink but
// report size and times of their target when it resolves.
func NewEntry(path string) (Entry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return Entry{}, Classify("stat", path, err)
	}

	var target os.FileInfo
	if info.Mode()&os.ModeSymlink != 0 {
		if t, err := os.Stat(path); err == nil {
			target = t
		}
	}
	return entryFromInfo(path, info, target), nil
}

func entryFromInfo(path string, info, target os.FileInfo) Entry {
	name := filepath.Base(path)
	ext := Extension(name)

	meta := info
	if target != nil {
		meta = target
	}
	created, accessed := fileTimes(path, meta)

	return Entry{
		Name:       name,
		Path:       path,
		Kind:       kindOf(info.Mode()),
		Size:       meta.Size(),
		ModTime:    meta.ModTime(),
		Created:    created,
		Accessed:   accessed,
		Hidden:     IsHidden(path),
		ReadOnly:   meta.Mode().Perm()&0o222 == 0,
		Extension:  ext,
		Category:   CategoryForExtension(ext),
		LinksToDir: target != nil && target.IsDir(),
	}
}

func kindOf(mode os.FileMode) Kind {
	switch {
	case mode.IsDir():
		return KindDirectory
	case mode.IsRegular():
		return KindRegularFile
	case mode&os.ModeSymlink != 0:
		return KindSymbolicLink
	default:
		return KindOther
	}
}
