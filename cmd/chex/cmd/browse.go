package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/justyntemme/chex/internal/app"
	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/fs"
	"github.com/justyntemme/chex/internal/store"
)

const browseHelp = `commands:
  cd PATH            change directory (relative, absolute or ~)
  back | forward     move through history
  up                 go to the parent directory
  ls                 list the current directory
  sel N [+]          select entry N, "+" toggles it in the selection
  selall | clear     select everything or nothing
  open [N]           open entry N (default: the selection) with its application
  sort KEY [desc]    sort by name, size, modified, type or created
  hidden             toggle hidden entries
  refresh            re-read the directory
  poll               apply pending filesystem changes
  bookmark           bookmark the current directory
  pwd                print the current directory
  quit               leave`

var browseCmd = &cobra.Command{
	Use:   "browse [path]",
	Short: "Browse directories interactively",
	Long: `Start an interactive session reading commands from standard input.

The current directory is watched; changes are applied before each prompt.
Every directory visited is recorded in the recent paths list.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := listOptions(cmd)
		if err != nil {
			return err
		}
		start := ""
		if len(args) == 1 {
			start = args[0]
		}
		out := cmd.OutOrStdout()

		db, closeStore, err := openStore()
		if err != nil {
			debug.Warn(debug.CLI, "recent paths disabled: %v", err)
		} else {
			defer closeStore()
		}

		session, err := app.NewSession(app.SessionOptions{
			StartPath:  start,
			ShowHidden: opts.ShowHidden,
			SortKey:    opts.SortKey,
			Order:      opts.Order,
			Watch:      cfg.Watcher.Enabled,
			Metrics:    mtr,
			OnNavigate: func(path string) { recordRecent(cmd.Context(), db, path) },
		})
		if err != nil {
			return err
		}
		defer session.Close()

		b := &browser{session: session, db: db, out: out, ctx: cmd.Context()}
		return b.run(cmd.InOrStdin())
	},
}

func recordRecent(ctx context.Context, db *store.DB, path string) {
	if db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.Call(ctx, store.Request{Op: store.AddRecent, Path: path}); err != nil {
		debug.Warn(debug.CLI, "failed to record %s: %v", path, err)
	}
}

type browser struct {
	session *app.Session
	db      *store.DB
	out     io.Writer
	ctx     context.Context
	shown   uint64 // snapshot version of the last listing
}

func (b *browser) run(in io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		errc <- sc.Err()
	}()

	b.printListing()
	b.prompt()
	for {
		select {
		case <-b.ctx.Done():
			fmt.Fprintln(b.out)
			return nil

		case <-b.session.Changes():
			changed, err := b.session.PollChanges()
			if err != nil {
				fmt.Fprintf(b.out, "\nrefresh failed: %v\n", err)
				b.prompt()
			} else if changed {
				fmt.Fprintln(b.out, "\n(directory changed)")
				b.printListing()
				b.prompt()
			}

		case err := <-errc:
			fmt.Fprintln(b.out)
			return err

		case line := <-lines:
			line = strings.TrimSpace(line)
			fields := strings.Fields(line)
			if len(fields) == 0 {
				b.prompt()
				continue
			}
			rest := strings.TrimSpace(line[len(fields[0]):])
			quit, err := b.exec(fields[0], fields[1:], rest)
			if err != nil {
				fmt.Fprintf(b.out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			b.prompt()
		}
	}
}

func (b *browser) prompt() {
	fmt.Fprintf(b.out, "%s> ", b.session.Snapshot().Path)
}

// exec runs one command. rest is the unsplit argument text for cd.
func (b *browser) exec(name string, args []string, rest string) (bool, error) {
	s := b.session
	switch name {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(b.out, browseHelp)
		return false, nil
	case "pwd":
		fmt.Fprintln(b.out, s.Snapshot().Path)
		return false, nil
	case "ls", "l":
		b.printListing()
		return false, nil
	case "cd":
		if rest == "" {
			rest = "~"
		}
		return false, b.listAfter(s.Navigate(rest))
	case "back", "b":
		return false, b.listAfter(s.GoBack())
	case "forward", "f":
		return false, b.listAfter(s.GoForward())
	case "up", "..":
		return false, b.listAfter(s.GoUp())
	case "refresh":
		return false, b.listAfter(s.Refresh())
	case "poll":
		changed, err := s.PollChanges()
		if err == nil && !changed {
			fmt.Fprintln(b.out, "no changes")
		}
		if changed {
			b.printListing()
		}
		return false, err
	case "hidden":
		return false, b.listAfter(s.ToggleHidden())
	case "sort":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: sort KEY [desc]")
		}
		key, err := fs.ParseSortKey(args[0])
		if err != nil {
			return false, err
		}
		order := fs.Ascending
		if len(args) > 1 && strings.HasPrefix(args[1], "desc") {
			order = fs.Descending
		}
		return false, b.listAfter(s.SetSort(key, order))
	case "sel", "select":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: sel N [+]")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, fmt.Errorf("invalid index %q", args[0])
		}
		additive := len(args) > 1 && args[1] == "+"
		// The version guards against a watcher refresh since the last listing.
		if err := s.SelectVersion(b.shown, n, additive); err != nil {
			return false, err
		}
		b.printSelection()
		return false, nil
	case "selall":
		s.SelectAll()
		b.printSelection()
		return false, nil
	case "clear":
		s.ClearSelection()
		return false, nil
	case "open", "o":
		return false, b.open(args)
	case "bookmark":
		if b.db == nil {
			return false, fmt.Errorf("store unavailable")
		}
		path := s.Snapshot().Path
		ctx, cancel := context.WithTimeout(b.ctx, 5*time.Second)
		defer cancel()
		if _, err := b.db.Call(ctx, store.Request{Op: store.AddBookmark, Path: path}); err != nil {
			return false, err
		}
		fmt.Fprintf(b.out, "bookmarked %s\n", path)
		return false, nil
	}
	return false, fmt.Errorf("unknown command %q, try help", name)
}

// open launches entry N of the last listing, or every selected entry.
func (b *browser) open(args []string) error {
	snap := b.session.Snapshot()
	targets := snap.Selected()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[0])
		}
		if snap.Version != b.shown {
			return fs.NewError("open", snap.Path, fs.ErrStaleSnapshot, nil)
		}
		if n < 0 || n >= len(snap.Entries) {
			return fs.NewError("open", snap.Path, fs.ErrInvalidSelection, nil)
		}
		targets = []fs.Entry{snap.Entries[n]}
	}
	if len(targets) == 0 {
		return fmt.Errorf("usage: open N, or select entries first")
	}
	for _, e := range targets {
		if err := app.Open(e.Path); err != nil {
			return err
		}
		fmt.Fprintf(b.out, "opened %s\n", e.Name)
	}
	return nil
}

func (b *browser) listAfter(err error) error {
	if err != nil {
		return err
	}
	b.printListing()
	return nil
}

func (b *browser) printListing() {
	snap := b.session.Snapshot()
	b.shown = snap.Version
	selected := make(map[int]bool, len(snap.Selection))
	for _, i := range snap.Selection {
		selected[i] = true
	}
	fmt.Fprintf(b.out, "%s (%d entries, sort %s %s", snap.Path, len(snap.Entries), snap.SortKey, snap.Order)
	if snap.ShowHidden {
		fmt.Fprint(b.out, ", hidden shown")
	}
	fmt.Fprintln(b.out, ")")
	if app.IsWatchFailure(snap.WatchErr) {
		fmt.Fprintf(b.out, "live updates unavailable: %v\n", snap.WatchErr)
	}
	if err := writeEntries(b.out, snap.Entries, false, true, selected); err != nil {
		debug.Warn(debug.CLI, "write listing: %v", err)
	}
}

func (b *browser) printSelection() {
	snap := b.session.Snapshot()
	var size int64
	for _, e := range snap.Selected() {
		size += e.Size
	}
	fmt.Fprintf(b.out, "%d selected (%s)\n", len(snap.Selection), displaySize(fs.Entry{Size: size}))
}

func init() {
	rootCmd.AddCommand(browseCmd)
	addListFlags(browseCmd)
}
