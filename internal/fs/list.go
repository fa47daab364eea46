package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/justyntemme/chex/internal/debug"
)

// SortKey selects the primary ordering of a listing.
type SortKey int

const (
	SortByName SortKey = iota
	SortBySize
	SortByModified
	SortByType
	SortByCreated
)

var sortKeyNames = []string{"name", "size", "modified", "type", "created"}

func (k SortKey) String() string {
	if int(k) < len(sortKeyNames) {
		return sortKeyNames[k]
	}
	return fmt.Sprintf("SortKey(%d)", int(k))
}

// ParseSortKey accepts the lowercase names returned by SortKey.String.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "name":
		return SortByName, nil
	case "date", "mtime":
		return SortByModified, nil
	case "ext", "extension":
		return SortByType, nil
	}
	for i, name := range sortKeyNames {
		if name == s {
			return SortKey(i), nil
		}
	}
	return SortByName, fmt.Errorf("unknown sort key %q", s)
}

// SortOrder is the direction applied to the primary key.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

func (o SortOrder) String() string {
	if o == Descending {
		return "descending"
	}
	return "ascending"
}

// ListOptions is the listing policy for List.
type ListOptions struct {
	ShowHidden bool
	SortKey    SortKey
	Order      SortOrder
}

// List returns the immediate children of dir filtered and sorted by opts.
// Children that cannot be stat'ed are logged and skipped.
func List(dir string, opts ListOptions) ([]Entry, error) {
	debug.Log(debug.FS, "List: reading %q hidden=%v sort=%s/%s", dir, opts.ShowHidden, opts.SortKey, opts.Order)

	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, Classify("list", dir, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		path := filepath.Join(dir, d.Name())
		if !opts.ShowHidden && IsHidden(path) {
			continue
		}
		e, err := NewEntry(path)
		if err != nil {
			debug.Log(debug.FS_ENTRY, "List: skipping %q: %v", d.Name(), err)
			continue
		}
		debug.Log(debug.FS_ENTRY, "List: %q kind=%s size=%d", e.Name, e.Kind, e.Size)
		entries = append(entries, e)
	}

	SortEntries(entries, opts.SortKey, opts.Order)
	debug.Log(debug.FS, "List: returning %d entries", len(entries))
	return entries, nil
}

type sortItem struct {
	entry  Entry
	folded string
}

// SortEntries sorts entries in place by key and order, then moves every
// directory ahead of every non-directory keeping the relative order of each
// group. Ties on the key fall back to case-folded name, raw name and path so
// descending is always the exact reverse of ascending within a group.
func SortEntries(entries []Entry, key SortKey, order SortOrder) {
	// A Caser keeps state between calls and is not safe for concurrent use.
	fold := cases.Fold()
	items := make([]sortItem, len(entries))
	for i, e := range entries {
		items[i] = sortItem{entry: e, folded: fold.String(e.Name)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		c := compareItems(&items[i], &items[j], key)
		if order == Descending {
			return c > 0
		}
		return c < 0
	})

	n := 0
	for _, it := range items {
		if it.entry.IsDir() {
			entries[n] = it.entry
			n++
		}
	}
	for _, it := range items {
		if !it.entry.IsDir() {
			entries[n] = it.entry
			n++
		}
	}
}

func compareItems(a, b *sortItem, key SortKey) int {
	var c int
	switch key {
	case SortBySize:
		c = compareInt64(a.entry.Size, b.entry.Size)
	case SortByModified:
		c = a.entry.ModTime.Compare(b.entry.ModTime)
	case SortByType:
		c = strings.Compare(a.entry.Extension, b.entry.Extension)
	case SortByCreated:
		// Zero (unsupported) sorts as the earliest instant.
		c = a.entry.Created.Compare(b.entry.Created)
	}
	if c != 0 {
		return c
	}
	if c = strings.Compare(a.folded, b.folded); c != 0 {
		return c
	}
	if c = strings.Compare(a.entry.Name, b.entry.Name); c != 0 {
		return c
	}
	return strings.Compare(a.entry.Path, b.entry.Path)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
