package archive

import (
	"context"
	"io"
	"os"

	"github.com/klauspost/compress/zip"

	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/fs"
)

func writeZip(ctx context.Context, w io.Writer, items []item) (Stats, error) {
	var stats Stats
	zw := zip.NewWriter(w)

	for _, it := range items {
		mode := it.info.Mode()
		if !mode.IsDir() && !mode.IsRegular() {
			debug.Log(debug.OPS, "archive: zip skips %s (%s)", it.path, mode.Type())
			continue
		}
		hdr, err := zip.FileInfoHeader(it.info)
		if err != nil {
			return stats, fs.Classify("archive", it.path, err)
		}
		hdr.Name = it.name
		if mode.IsDir() {
			hdr.Name += "/"
		} else {
			hdr.Method = zip.Deflate
		}

		entry, err := zw.CreateHeader(hdr)
		if err != nil {
			return stats, fs.Classify("archive", it.path, err)
		}
		if mode.IsDir() {
			continue
		}
		n, err := copyInto(ctx, entry, it.path)
		if err != nil {
			return stats, err
		}
		stats.Files++
		stats.Bytes += n
	}

	if err := zw.Close(); err != nil {
		return stats, fs.NewError("archive", "", fs.ErrIO, err)
	}
	return stats, nil
}

func extractZip(ctx context.Context, archive, root string) (Stats, error) {
	var stats Stats
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return stats, fs.Classify("extract", archive, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		target, err := safeJoin(root, f.Name)
		if err != nil {
			return stats, err
		}
		mode := f.Mode()
		if mode.IsDir() {
			if err := os.MkdirAll(target, mode.Perm()|0o700); err != nil {
				return stats, fs.Classify("extract", target, err)
			}
			continue
		}
		if !mode.IsRegular() {
			debug.Log(debug.OPS, "archive: skipping %s (%s)", f.Name, mode.Type())
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return stats, fs.NewError("extract", f.Name, fs.ErrIO, err)
		}
		n, err := writeFile(ctx, target, rc, mode.Perm())
		rc.Close()
		if err != nil {
			return stats, err
		}
		stats.Files++
		stats.Bytes += n
	}
	return stats, nil
}
