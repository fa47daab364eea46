package ops

import (
	"context"
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"

	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/fs"
)

// copyBufferSize is the chunk size between cancellation checks.
const copyBufferSize = 256 << 10

var (
	errInsideSource = errors.New("destination is inside source")
	errSameFile     = errors.New("source and destination are the same file")
)

// CopyRequest describes one copy operation. Every source lands at
// Destination/base(source).
type CopyRequest struct {
	Sources     []string
	Destination string
	Overwrite   bool
}

// CopyProgress is emitted once per completed file. Totals are fixed by the
// counting pass; completed counters never decrease.
type CopyProgress struct {
	CurrentFile    string
	TotalFiles     int
	CompletedFiles int
	BytesCopied    int64
	TotalBytes     int64
}

// Fraction returns completed bytes over total bytes, or files when there
// are no bytes to copy.
func (p CopyProgress) Fraction() float64 {
	switch {
	case p.TotalBytes > 0:
		return float64(p.BytesCopied) / float64(p.TotalBytes)
	case p.TotalFiles > 0:
		return float64(p.CompletedFiles) / float64(p.TotalFiles)
	}
	return 1
}

type copyItem struct {
	src    string
	dstDir string
}

// Copy copies req.Sources into req.Destination, calling emit after each file.
// The first failure aborts the whole operation; files already written stay
// on disk. The returned progress reflects the work done before any failure.
func Copy(ctx context.Context, req CopyRequest, emit func(CopyProgress)) (CopyProgress, error) {
	var progress CopyProgress
	if len(req.Sources) == 0 {
		return progress, nil
	}

	dest, err := filepath.Abs(req.Destination)
	if err != nil {
		return progress, fs.Classify("copy", req.Destination, err)
	}
	sources := make([]string, len(req.Sources))
	for i, src := range req.Sources {
		abs, err := filepath.Abs(src)
		if err != nil {
			return progress, fs.Classify("copy", src, err)
		}
		if dest == abs || strings.HasPrefix(dest, abs+string(filepath.Separator)) {
			return progress, fs.NewError("copy", dest, fs.ErrIO, errInsideSource)
		}
		if filepath.Join(dest, filepath.Base(abs)) == abs {
			return progress, fs.NewError("copy", abs, fs.ErrIO, errSameFile)
		}
		sources[i] = abs
	}

	files, bytes, err := countSources(ctx, sources)
	if err != nil {
		return progress, err
	}
	progress.TotalFiles, progress.TotalBytes = files, bytes
	debug.Log(debug.OPS, "Copy: %d sources, %d files, %d bytes -> %q", len(sources), files, bytes, dest)

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return progress, fs.Classify("mkdir", dest, err)
	}

	// Depth-first worklist; sources are pushed in reverse so they are
	// processed in the order given.
	stack := make([]copyItem, 0, len(sources))
	for i := len(sources) - 1; i >= 0; i-- {
		stack = append(stack, copyItem{src: sources[i], dstDir: dest})
	}
	buf := make([]byte, copyBufferSize)

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := ctx.Err(); err != nil {
			return progress, fs.NewError("copy", item.src, fs.ErrCancelled, err)
		}

		info, err := os.Lstat(item.src)
		if err != nil {
			return progress, fs.Classify("copy", item.src, err)
		}
		target := filepath.Join(item.dstDir, filepath.Base(item.src))
		// Hard links and symlinked destination directories can resolve
		// onto the source itself.
		if existing, err := os.Lstat(target); err == nil && os.SameFile(info, existing) {
			return progress, fs.NewError("copy", item.src, fs.ErrIO, errSameFile)
		}
		mode := info.Mode()

		switch {
		case mode.IsDir():
			// Owner write is kept so children can be created under
			// read-only source directories.
			if err := os.MkdirAll(target, mode.Perm()|0o700); err != nil {
				return progress, fs.Classify("mkdir", target, err)
			}
			children, err := os.ReadDir(item.src)
			if err != nil {
				return progress, fs.Classify("copy", item.src, err)
			}
			// ReadDir is sorted by name; push in reverse to pop in order.
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, copyItem{
					src:    filepath.Join(item.src, children[i].Name()),
					dstDir: target,
				})
			}

		case mode.IsRegular():
			n, err := copyFile(ctx, item.src, target, mode.Perm(), req.Overwrite, buf)
			if err != nil {
				return progress, err
			}
			progress.CurrentFile = item.src
			progress.CompletedFiles++
			progress.BytesCopied += n
			debug.Log(debug.FS_WALK, "Copy: %q (%d/%d)", item.src, progress.CompletedFiles, progress.TotalFiles)
			if emit != nil {
				emit(progress)
			}

		case mode&os.ModeSymlink != 0:
			if err := copySymlink(item.src, target, req.Overwrite); err != nil {
				return progress, err
			}

		default:
			debug.Log(debug.OPS, "Copy: skipping special file %q (%s)", item.src, mode.Type())
		}
	}

	debug.Log(debug.OPS, "Copy: done, %d files %d bytes", progress.CompletedFiles, progress.BytesCopied)
	return progress, nil
}

// countSources walks every source without following symlinks and returns the
// number and total size of regular files. Any error is fatal.
func countSources(ctx context.Context, sources []string) (int, int64, error) {
	var files, bytes atomic.Int64
	conf := &fastwalk.Config{Follow: false}

	for _, src := range sources {
		info, err := os.Lstat(src)
		if err != nil {
			return 0, 0, fs.Classify("copy", src, err)
		}
		if !info.IsDir() {
			if info.Mode().IsRegular() {
				files.Add(1)
				bytes.Add(info.Size())
			}
			continue
		}

		err = fastwalk.Walk(conf, src, func(path string, d iofs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !d.Type().IsRegular() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			files.Add(1)
			bytes.Add(fi.Size())
			return nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, 0, fs.NewError("copy", src, fs.ErrCancelled, ctxErr)
			}
			return 0, 0, fs.Classify("count", src, err)
		}
	}
	return int(files.Load()), bytes.Load(), nil
}

func copyFile(ctx context.Context, src, dst string, perm os.FileMode, overwrite bool, buf []byte) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fs.Classify("open", src, err)
	}
	defer in.Close()

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		// Replace a symlink rather than writing through it.
		if fi, err := os.Lstat(dst); err == nil && fi.Mode()&os.ModeSymlink != 0 {
			if err := os.Remove(dst); err != nil {
				return 0, fs.Classify("remove", dst, err)
			}
		}
	}
	out, err := os.OpenFile(dst, flags, perm)
	if err != nil {
		return 0, fs.Classify("create", dst, err)
	}

	// Hide WriterTo so the copy goes through buf and the ctx check.
	n, err := io.CopyBuffer(&ctxWriter{ctx: ctx, w: out}, struct{ io.Reader }{in}, buf)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return n, fs.NewError("copy", src, fs.ErrCancelled, ctxErr)
		}
		return n, fs.Classify("write", dst, err)
	}
	// OpenFile applies the umask; match the source exactly.
	if err := os.Chmod(dst, perm); err != nil {
		return n, fs.Classify("chmod", dst, err)
	}
	return n, nil
}

func copySymlink(src, dst string, overwrite bool) error {
	link, err := os.Readlink(src)
	if err != nil {
		return fs.Classify("readlink", src, err)
	}
	if overwrite {
		if err := os.Remove(dst); err != nil && !errors.Is(err, iofs.ErrNotExist) {
			return fs.Classify("remove", dst, err)
		}
	}
	if err := os.Symlink(link, dst); err != nil {
		return fs.Classify("symlink", dst, err)
	}
	return nil
}

// ctxWriter fails writes once ctx is done so long copies stop between chunks.
type ctxWriter struct {
	ctx context.Context
	w   io.Writer
}

func (cw *ctxWriter) Write(p []byte) (int, error) {
	if err := cw.ctx.Err(); err != nil {
		return 0, err
	}
	return cw.w.Write(p)
}
