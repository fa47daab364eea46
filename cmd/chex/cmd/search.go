package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/search"
	"github.com/justyntemme/chex/internal/store"
)

var searchCmd = &cobra.Command{
	Use:     "search ROOT [QUERY...]",
	Aliases: []string{"find"},
	Short:   "Search names and contents below a directory",
	Long: `Search ROOT recursively. QUERY is free text plus optional directives:

  ext:pdf,txt          extensions ("ext:" alone matches extensionless names)
  size:>1MB            size bounds (>, >=, <, <=, =)
  modified:>2024-01-01 modification bounds (also today, yesterday, week, month, year)
  content:TEXT         search file contents and show an excerpt
  regex:PATTERN        treat the pattern as a regular expression
  case:                case sensitive matching
  depth:N              limit recursion

Flags are applied on top of the directives.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]
		text := strings.Join(args[1:], " ")
		q, err := buildQuery(cmd, text)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		out := cmd.OutOrStdout()

		engine := newEngine()
		defer engine.Shutdown(context.Background())

		task := engine.StartSearch(cmd.Context(), root, q)
		shown := 0
		for m := range task.Events() {
			if limit > 0 && shown == limit {
				task.Cancel()
				continue
			}
			shown++
			kind := humanize.IBytes(uint64(m.Size))
			if m.IsDir {
				kind = "dir"
			}
			fmt.Fprintf(out, "%s\t%s\t%s\n", m.Path, kind, humanize.Time(m.ModTime))
			if m.Excerpt != "" {
				fmt.Fprintf(out, "    %s\n", strings.Join(strings.Fields(m.Excerpt), " "))
			}
		}

		res, err := task.Wait()
		if err != nil && !(limit > 0 && shown == limit) {
			return fmt.Errorf("search failed: %w", err)
		}
		fmt.Fprintf(out, "%d matches in %s\n", shown, res.Duration().Round(time.Millisecond))

		rememberSearch(cmd.Context(), text, root)
		return nil
	},
}

// buildQuery parses the directive text and applies the flags that were set.
func buildQuery(cmd *cobra.Command, text string) (search.Query, error) {
	flags := cmd.Flags()
	var extra []string
	for _, f := range []struct{ flag, directive string }{
		{"min", "size:>="},
		{"max", "size:<="},
		{"after", "modified:>="},
		{"before", "modified:<="},
	} {
		if v, _ := flags.GetString(f.flag); v != "" {
			extra = append(extra, fmt.Sprintf("%s%q", f.directive, v))
		}
	}

	q, err := search.Parse(strings.TrimSpace(text + " " + strings.Join(extra, " ")))
	if err != nil {
		return q, err
	}
	if v, _ := flags.GetBool("regex"); v {
		q.Regex = true
	}
	if v, _ := flags.GetBool("case"); v {
		q.CaseSensitive = true
	}
	if v, _ := flags.GetBool("content"); v {
		q.Content = true
	}
	exts, _ := flags.GetStringSlice("ext")
	for _, e := range exts {
		q.Extensions = append(q.Extensions, strings.ToLower(strings.TrimPrefix(e, ".")))
	}
	if flags.Changed("depth") {
		q.MaxDepth, _ = flags.GetInt("depth")
	} else if q.MaxDepth == 0 {
		q.MaxDepth = cfg.Search.DefaultDepth
	}
	debug.Log(debug.CLI, "search query: %+v", q)
	return q, nil
}

func rememberSearch(ctx context.Context, text, root string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	db, closeStore, err := openStore()
	if err != nil {
		debug.Warn(debug.CLI, "search history disabled: %v", err)
		return
	}
	defer closeStore()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.Call(ctx, store.Request{Op: store.AddSearchHistory, Query: text, Root: root}); err != nil {
		debug.Warn(debug.CLI, "failed to record search: %v", err)
	}
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()
		resp, err := db.Call(cmd.Context(), store.Request{Op: store.FetchSearchHistory})
		if err != nil {
			return err
		}
		if len(resp.Searches) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No searches yet")
			return nil
		}
		for _, s := range resp.Searches {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.Root, s.Query)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(historyCmd)
	searchCmd.Flags().Bool("regex", false, "treat the pattern as a regular expression")
	searchCmd.Flags().Bool("case", false, "case sensitive matching")
	searchCmd.Flags().Bool("content", false, "search file contents")
	searchCmd.Flags().StringSlice("ext", nil, "only these extensions (repeatable or comma separated)")
	searchCmd.Flags().String("min", "", "minimum file size, e.g. 10KB")
	searchCmd.Flags().String("max", "", "maximum file size, e.g. 2GB")
	searchCmd.Flags().String("after", "", "modified on or after (2006-01-02, today, week...)")
	searchCmd.Flags().String("before", "", "modified on or before")
	searchCmd.Flags().Int("depth", 0, "maximum depth, 0 for unlimited")
	searchCmd.Flags().Int("limit", 0, "stop after N matches")
}
