// Package archive creates and extracts zip, tar, tar.gz and tar.zst archives.
package archive

import (
	"context"
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/fs"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrUnsafePath        = errors.New("entry escapes destination")
)

// Format is an archive container and compression pair.
type Format int

const (
	FormatZip Format = iota
	FormatTar
	FormatTarGz
	FormatTarZst
)

var formatSuffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.zst", FormatTarZst},
	{".tzst", FormatTarZst},
	{".tar", FormatTar},
	{".zip", FormatZip},
}

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarGz:
		return "tar.gz"
	case FormatTarZst:
		return "tar.zst"
	}
	return "unknown"
}

// ParseFormat maps a format name as printed by String back to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "zip":
		return FormatZip, nil
	case "tar":
		return FormatTar, nil
	case "tar.gz", "tgz", "gz", "gzip":
		return FormatTarGz, nil
	case "tar.zst", "tzst", "zst", "zstd":
		return FormatTarZst, nil
	}
	return 0, ErrUnsupportedFormat
}

// DetectFormat picks the format from the archive file name.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(name)
	for _, s := range formatSuffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format, nil
		}
	}
	return 0, fs.NewError("archive", name, ErrUnsupportedFormat, nil)
}

// Stats summarizes a finished create or extract.
type Stats struct {
	Files int
	Bytes int64
}

// item is one filesystem object to archive under name.
type item struct {
	path string
	name string // slash separated, relative
	info os.FileInfo
}

// Create writes sources into output. A file is stored under its base name; a
// directory contributes its contents relative to itself.
func Create(ctx context.Context, output string, sources []string, format Format) (Stats, error) {
	out, err := filepath.Abs(output)
	if err != nil {
		return Stats{}, fs.Classify("archive", output, err)
	}
	items, err := collect(ctx, out, sources)
	if err != nil {
		return Stats{}, err
	}
	debug.Log(debug.OPS, "archive: writing %d entries to %s (%s)", len(items), out, format)

	f, err := os.Create(out)
	if err != nil {
		return Stats{}, fs.Classify("archive", out, err)
	}

	var stats Stats
	switch format {
	case FormatZip:
		stats, err = writeZip(ctx, f, items)
	case FormatTar, FormatTarGz, FormatTarZst:
		stats, err = writeTar(ctx, f, items, format)
	default:
		err = fs.NewError("archive", out, ErrUnsupportedFormat, nil)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fs.Classify("archive", out, cerr)
	}
	if err != nil {
		os.Remove(out)
		return stats, err
	}
	return stats, nil
}

// collect expands sources into a sorted list of items, skipping output.
func collect(ctx context.Context, output string, sources []string) ([]item, error) {
	var items []item
	for _, src := range sources {
		abs, err := filepath.Abs(src)
		if err != nil {
			return nil, fs.Classify("archive", src, err)
		}
		info, err := os.Lstat(abs)
		if err != nil {
			return nil, fs.Classify("archive", abs, err)
		}
		if !info.IsDir() {
			items = append(items, item{path: abs, name: filepath.Base(abs), info: info})
			continue
		}

		var (
			mu    sync.Mutex
			found []item
		)
		conf := &fastwalk.Config{Follow: false}
		err = fastwalk.Walk(conf, abs, func(path string, d iofs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if path == abs || path == output {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(abs, path)
			if err != nil {
				return err
			}
			mu.Lock()
			found = append(found, item{path: path, name: filepath.ToSlash(rel), info: fi})
			mu.Unlock()
			return nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fs.NewError("archive", abs, fs.ErrCancelled, ctxErr)
			}
			return nil, fs.Classify("archive", abs, err)
		}
		// Walk order is not deterministic; parents sort before children.
		sort.Slice(found, func(i, j int) bool { return found[i].name < found[j].name })
		items = append(items, found...)
	}
	return items, nil
}

// Extract unpacks archive into dest, creating dest if needed. Any entry whose
// path or link target would land outside dest fails the extraction.
func Extract(ctx context.Context, archive, dest string) (Stats, error) {
	format, err := DetectFormat(archive)
	if err != nil {
		return Stats{}, err
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return Stats{}, fs.Classify("extract", dest, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return Stats{}, fs.Classify("extract", root, err)
	}
	debug.Log(debug.OPS, "archive: extracting %s (%s) into %s", archive, format, root)

	if format == FormatZip {
		return extractZip(ctx, archive, root)
	}
	f, err := os.Open(archive)
	if err != nil {
		return Stats{}, fs.Classify("extract", archive, err)
	}
	defer f.Close()
	return extractTar(ctx, f, root, format)
}

// safeJoin resolves the archive entry name under root.
func safeJoin(root, name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fs.NewError("extract", name, fs.ErrIO, ErrUnsafePath)
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fs.NewError("extract", name, fs.ErrIO, ErrUnsafePath)
	}
	return target, nil
}

// writeFile creates target from r with perm, creating parents as needed.
func writeFile(ctx context.Context, target string, r io.Reader, perm os.FileMode) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fs.NewError("extract", target, fs.ErrCancelled, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fs.Classify("extract", target, err)
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return 0, fs.Classify("extract", target, err)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fs.Classify("extract", target, err)
	}
	return n, nil
}

func copyInto(ctx context.Context, w io.Writer, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fs.NewError("archive", path, fs.ErrCancelled, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fs.Classify("archive", path, err)
	}
	defer f.Close()
	n, err := io.Copy(w, f)
	if err != nil {
		return n, fs.Classify("archive", path, err)
	}
	return n, nil
}
