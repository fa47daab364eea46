package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justyntemme/chex/internal/fs"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory",
	Long:  `List a directory with directories first, sorted by the configured key unless --sort is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		opts, err := listOptions(cmd)
		if err != nil {
			return err
		}
		long, _ := cmd.Flags().GetBool("long")

		entries, err := fs.List(dir, opts)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Empty directory")
			return nil
		}
		return writeEntries(cmd.OutOrStdout(), entries, long, false, nil)
	},
}

// listOptions starts from the config and applies --all, --sort and --desc
// when they were given.
func listOptions(cmd *cobra.Command) (fs.ListOptions, error) {
	opts, err := cfg.ListOptions()
	if err != nil {
		return opts, fmt.Errorf("config fileList: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("all") {
		opts.ShowHidden, _ = flags.GetBool("all")
	}
	if flags.Changed("sort") {
		s, _ := flags.GetString("sort")
		key, err := fs.ParseSortKey(s)
		if err != nil {
			return opts, err
		}
		opts.SortKey = key
	}
	if flags.Changed("desc") {
		if desc, _ := flags.GetBool("desc"); desc {
			opts.Order = fs.Descending
		} else {
			opts.Order = fs.Ascending
		}
	}
	return opts, nil
}

func addListFlags(c *cobra.Command) {
	c.Flags().BoolP("all", "a", false, "show hidden entries")
	c.Flags().StringP("sort", "s", "name", "sort key: name, size, modified, type, created")
	c.Flags().BoolP("desc", "r", false, "sort descending")
}

func init() {
	rootCmd.AddCommand(lsCmd)
	addListFlags(lsCmd)
	lsCmd.Flags().BoolP("long", "l", false, "show creation time and mode")
}
