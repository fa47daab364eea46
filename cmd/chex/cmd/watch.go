package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/justyntemme/chex/internal/app"
	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/fs"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Print changes to a directory as they happen",
	Long: `Watch a directory and print the entries added and removed after each
change. With --metrics-addr the Prometheus metrics are served on /metrics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := listOptions(cmd)
		if err != nil {
			return err
		}
		start := "."
		if len(args) == 1 {
			start = args[0]
		}
		addr, _ := cmd.Flags().GetString("metrics-addr")
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		session, err := app.NewSession(app.SessionOptions{
			StartPath:  start,
			ShowHidden: opts.ShowHidden,
			SortKey:    opts.SortKey,
			Order:      opts.Order,
			Watch:      true,
			Metrics:    mtr,
		})
		if err != nil {
			return err
		}
		defer session.Close()

		snap := session.Snapshot()
		if snap.WatchErr != nil {
			return snap.WatchErr
		}

		if addr != "" {
			srv := &http.Server{Addr: addr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					debug.Error(debug.CLI, "metrics server: %v", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			fmt.Fprintf(out, "Serving metrics on http://%s/metrics\n", addr)
		}

		fmt.Fprintf(out, "Watching %s (%d entries), interrupt to stop\n", snap.Path, len(snap.Entries))
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-session.Changes():
				changed, err := session.PollChanges()
				if err != nil {
					return err
				}
				if !changed {
					continue
				}
				next := session.Snapshot()
				added, removed := diffEntries(snap.Entries, next.Entries)
				for _, name := range removed {
					fmt.Fprintf(out, "%s  - %s\n", time.Now().Format("15:04:05"), name)
				}
				for _, name := range added {
					fmt.Fprintf(out, "%s  + %s\n", time.Now().Format("15:04:05"), name)
				}
				if next.WatchErr != nil {
					fmt.Fprintf(out, "watcher degraded: %v\n", next.WatchErr)
				}
				snap = next
			}
		}
	},
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", mtr.Handler())
	return mux
}

// diffEntries returns the names present only in next and only in prev.
func diffEntries(prev, next []fs.Entry) (added, removed []string) {
	before := make(map[string]bool, len(prev))
	for _, e := range prev {
		before[e.Name] = true
	}
	after := make(map[string]bool, len(next))
	for _, e := range next {
		after[e.Name] = true
		if !before[e.Name] {
			added = append(added, e.Name)
		}
	}
	for _, e := range prev {
		if !after[e.Name] {
			removed = append(removed, e.Name)
		}
	}
	return added, removed
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addListFlags(watchCmd)
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
}
