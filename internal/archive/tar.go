package archive

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/fs"
)

func writeTar(ctx context.Context, w io.Writer, items []item, format Format) (Stats, error) {
	var (
		stats Stats
		comp  io.WriteCloser
	)
	switch format {
	case FormatTarGz:
		comp = gzip.NewWriter(w)
	case FormatTarZst:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return stats, fs.NewError("archive", "", fs.ErrIO, err)
		}
		comp = enc
	}
	if comp != nil {
		w = comp
	}
	tw := tar.NewWriter(w)

	for _, it := range items {
		mode := it.info.Mode()
		var link string
		if mode&os.ModeSymlink != 0 {
			target, err := os.Readlink(it.path)
			if err != nil {
				return stats, fs.Classify("archive", it.path, err)
			}
			link = target
		} else if !mode.IsDir() && !mode.IsRegular() {
			debug.Log(debug.OPS, "archive: tar skips %s (%s)", it.path, mode.Type())
			continue
		}

		hdr, err := tar.FileInfoHeader(it.info, link)
		if err != nil {
			return stats, fs.Classify("archive", it.path, err)
		}
		hdr.Name = it.name
		if mode.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return stats, fs.NewError("archive", it.path, fs.ErrIO, err)
		}
		if !mode.IsRegular() {
			continue
		}
		n, err := copyInto(ctx, tw, it.path)
		if err != nil {
			return stats, err
		}
		stats.Files++
		stats.Bytes += n
	}

	if err := tw.Close(); err != nil {
		return stats, fs.NewError("archive", "", fs.ErrIO, err)
	}
	if comp != nil {
		if err := comp.Close(); err != nil {
			return stats, fs.NewError("archive", "", fs.ErrIO, err)
		}
	}
	return stats, nil
}

func extractTar(ctx context.Context, r io.Reader, root string, format Format) (Stats, error) {
	var stats Stats
	switch format {
	case FormatTarGz:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return stats, fs.NewError("extract", "", fs.ErrIO, err)
		}
		defer zr.Close()
		r = zr
	case FormatTarZst:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return stats, fs.NewError("extract", "", fs.ErrIO, err)
		}
		defer dec.Close()
		r = dec
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fs.NewError("extract", "", fs.ErrIO, err)
		}
		target, err := safeJoin(root, hdr.Name)
		if err != nil {
			return stats, err
		}
		perm := os.FileMode(hdr.Mode).Perm()

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, perm|0o700); err != nil {
				return stats, fs.Classify("extract", target, err)
			}
		case tar.TypeReg:
			n, err := writeFile(ctx, target, tr, perm)
			if err != nil {
				return stats, err
			}
			stats.Files++
			stats.Bytes += n
		case tar.TypeSymlink:
			if err := extractSymlink(root, target, hdr.Linkname); err != nil {
				return stats, err
			}
		default:
			debug.Log(debug.OPS, "archive: skipping %s (type %c)", hdr.Name, hdr.Typeflag)
		}
	}
}

// extractSymlink recreates a link whose target stays inside root.
func extractSymlink(root, target, link string) error {
	resolved := link
	if !filepath.IsAbs(link) {
		resolved = filepath.Join(filepath.Dir(target), link)
	}
	if _, err := safeJoin(root, mustRel(root, resolved)); err != nil {
		return fs.NewError("extract", target, fs.ErrIO, ErrUnsafePath)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fs.Classify("extract", target, err)
	}
	if err := os.Symlink(link, target); err != nil {
		return fs.Classify("extract", target, err)
	}
	return nil
}

func mustRel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
