package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/justyntemme/chex/internal/fs"
)

func displayName(e fs.Entry) string {
	switch {
	case e.Kind == fs.KindDirectory:
		return e.Name + "/"
	case e.Kind == fs.KindSymbolicLink && e.LinksToDir:
		return e.Name + "@/"
	case e.Kind == fs.KindSymbolicLink:
		return e.Name + "@"
	}
	return e.Name
}

func displaySize(e fs.Entry) string {
	if e.IsDir() {
		return "-"
	}
	return humanize.IBytes(uint64(e.Size))
}

func displayTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func displayType(e fs.Entry) string {
	if e.IsDir() {
		return "dir"
	}
	if e.Category != fs.CategoryOther {
		return e.Category.String()
	}
	if e.Extension != "" {
		return e.Extension
	}
	return "file"
}

// writeEntries prints a listing as a table. selected marks rows with '*';
// indexed adds an index column for selection commands.
func writeEntries(out io.Writer, entries []fs.Entry, long, indexed bool, selected map[int]bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "NAME\tSIZE\tMODIFIED\tTYPE"
	if long {
		header += "\tCREATED\tMODE"
	}
	if indexed {
		header = " \t#\t" + header
	}
	fmt.Fprintln(w, header)

	for i, e := range entries {
		row := fmt.Sprintf("%s\t%s\t%s\t%s", displayName(e), displaySize(e), displayTime(e.ModTime), displayType(e))
		if long {
			mode := "rw"
			if e.ReadOnly {
				mode = "ro"
			}
			if e.Hidden {
				mode += ",hidden"
			}
			row += fmt.Sprintf("\t%s\t%s", displayTime(e.Created), mode)
		}
		if indexed {
			mark := " "
			if selected[i] {
				mark = "*"
			}
			row = fmt.Sprintf("%s\t%d\t%s", mark, i, row)
		}
		fmt.Fprintln(w, row)
	}
	return w.Flush()
}
