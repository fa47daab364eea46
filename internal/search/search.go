package search

import (
	"context"
	"io"
	iofs "io/fs"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"

	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/fs"
)

// Match is one search result.
type Match struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
	Excerpt string // text around the first content hit, empty when none
}

// textExtensions are the only files whose content is searched, besides
// extensionless ones.
var textExtensions = map[string]bool{
	"txt": true, "md": true, "rst": true, "log": true, "cfg": true, "conf": true, "ini": true,
	"json": true, "xml": true, "yaml": true, "yml": true, "toml": true,
	"rs": true, "py": true, "js": true, "ts": true, "html": true, "css": true, "scss": true,
	"c": true, "cpp": true, "h": true, "hpp": true, "java": true, "go": true, "php": true,
	"rb": true, "pl": true, "sh": true, "bash": true, "ps1": true, "bat": true, "cmd": true,
}

// excerptRadius is the number of characters kept on each side of a content hit.
const excerptRadius = 50

// Search compiles q and walks root, calling emit for every match.
func Search(ctx context.Context, root string, q Query, emit func(Match)) error {
	m, err := q.Compile()
	if err != nil {
		return err
	}
	return m.Walk(ctx, root, emit)
}

// Collect runs Search and returns all matches.
func Collect(ctx context.Context, root string, q Query) ([]Match, error) {
	var out []Match
	err := Search(ctx, root, q, func(m Match) { out = append(out, m) })
	return out, err
}

// Walk visits every entry below root without following symlinks. emit is
// never called concurrently. Unreadable entries are skipped; only a missing
// or non-directory root fails the walk.
func (m *Matcher) Walk(ctx context.Context, root string, emit func(Match)) error {
	info, err := os.Stat(root)
	if err != nil {
		return fs.Classify("search", root, err)
	}
	if !info.IsDir() {
		return fs.NewError("search", root, fs.ErrNotADirectory, nil)
	}
	debug.Log(debug.SEARCH, "Walk: root=%q pattern=%q regex=%v content=%v", root, m.query.Pattern, m.query.Regex, m.query.Content)

	var (
		mu      sync.Mutex
		matches int
	)
	conf := &fastwalk.Config{Follow: false}

	err = fastwalk.Walk(conf, root, func(path string, d iofs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			debug.Log(debug.FS_WALK, "Walk: error at %q: %v", path, err)
			return nil
		}
		if path == root {
			return nil
		}
		if m.query.MaxDepth > 0 && fastwalk.DirEntryDepth(d) > m.query.MaxDepth {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		match, ok := m.evaluate(path, d)
		if !ok {
			return nil
		}
		debug.Log(debug.FS_WALK, "Walk: MATCH %s", path)

		mu.Lock()
		matches++
		emit(match)
		mu.Unlock()
		return nil
	})

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fs.NewError("search", root, fs.ErrCancelled, ctxErr)
	}
	if err != nil {
		return fs.Classify("search", root, err)
	}
	debug.Log(debug.SEARCH, "Walk: complete, %d matches", matches)
	return nil
}

// evaluate applies the predicates in order: name, extension, then size and
// time bounds for regular files.
func (m *Matcher) evaluate(path string, d iofs.DirEntry) (Match, bool) {
	name := d.Name()
	if !m.MatchName(name) || !m.MatchExtension(name) {
		return Match{}, false
	}

	info, err := d.Info()
	if err != nil {
		debug.Log(debug.FS_WALK, "Walk: skipping %q: %v", path, err)
		return Match{}, false
	}
	regular := info.Mode().IsRegular()
	if regular && !m.MatchFileMeta(info.Size(), info.ModTime()) {
		return Match{}, false
	}

	match := Match{
		Path:    path,
		Name:    name,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
	if regular && m.content != nil {
		match.Excerpt = m.excerpt(path, name, info.Size())
	}
	return match, true
}

// excerpt returns the context around the first content hit in path, or ""
// when the file is not text or does not contain the pattern.
func (m *Matcher) excerpt(path, name string, size int64) string {
	if ext := fs.Extension(name); ext != "" && !textExtensions[ext] {
		return ""
	}
	if size > m.maxContent() {
		return ""
	}

	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, m.maxContent()))
	if err != nil {
		return ""
	}
	if !isText(data) {
		return ""
	}

	text := string(data)
	loc := m.content.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	return Excerpt(text, loc[0], loc[1], excerptRadius)
}

func isText(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for mt := mimetype.Detect(data); mt != nil; mt = mt.Parent() {
		if mt.Is("text/plain") {
			return true
		}
	}
	return false
}

// Excerpt returns text from radius runes before start to radius runes after
// end, clamped to the bounds of text. start and end are byte offsets on rune
// boundaries.
func Excerpt(text string, start, end, radius int) string {
	lo := start
	for i := 0; i < radius && lo > 0; i++ {
		_, n := utf8.DecodeLastRuneInString(text[:lo])
		lo -= n
	}
	hi := end
	for i := 0; i < radius && hi < len(text); i++ {
		_, n := utf8.DecodeRuneInString(text[hi:])
		hi += n
	}
	return text[lo:hi]
}
