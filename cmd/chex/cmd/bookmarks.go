package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/justyntemme/chex/internal/store"
)

var bookmarksCmd = &cobra.Command{
	Use:     "bookmarks",
	Aliases: []string{"bm"},
	Short:   "Manage bookmarked directories",
}

var bookmarksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List bookmarks",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return bookmarkCall(cmd, store.Request{Op: store.FetchBookmarks})
	},
}

var bookmarksAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Bookmark a directory (default: current directory)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := absArg(args)
		if err != nil {
			return err
		}
		return bookmarkCall(cmd, store.Request{Op: store.AddBookmark, Path: path})
	},
}

var bookmarksRemoveCmd = &cobra.Command{
	Use:     "remove PATH",
	Aliases: []string{"rm"},
	Short:   "Remove a bookmark",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := absArg(args)
		if err != nil {
			return err
		}
		return bookmarkCall(cmd, store.Request{Op: store.RemoveBookmark, Path: path})
	},
}

func absArg(args []string) (string, error) {
	path := "."
	if len(args) == 1 {
		path = args[0]
	}
	return filepath.Abs(path)
}

// bookmarkCall runs req and prints the resulting bookmark list.
func bookmarkCall(cmd *cobra.Command, req store.Request) error {
	db, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	resp, err := db.Call(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to update bookmarks: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(resp.Bookmarks) == 0 {
		fmt.Fprintln(out, "No bookmarks")
		return nil
	}
	for _, b := range resp.Bookmarks {
		fmt.Fprintln(out, b)
	}
	return nil
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently browsed directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		resp, err := db.Call(cmd.Context(), store.Request{Op: store.FetchRecent})
		if err != nil {
			return err
		}
		if len(resp.Recent) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No recent directories")
			return nil
		}
		for i, p := range resp.Recent {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s\n", i+1, p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bookmarksCmd)
	rootCmd.AddCommand(recentCmd)
	bookmarksCmd.AddCommand(bookmarksListCmd)
	bookmarksCmd.AddCommand(bookmarksAddCmd)
	bookmarksCmd.AddCommand(bookmarksRemoveCmd)
}
