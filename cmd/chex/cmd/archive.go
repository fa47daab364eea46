package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justyntemme/chex/internal/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Create and extract zip and tar archives",
	Long:  `Create and extract zip, tar, tar.gz and tar.zst archives. The format follows the file name.`,
}

var archiveCreateCmd = &cobra.Command{
	Use:   "create ARCHIVE SOURCE...",
	Short: "Create an archive from files and directories",
	Long: `Create ARCHIVE from the sources. Files are stored under their base name
and directories contribute their contents.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := args[0]
		name, _ := cmd.Flags().GetString("format")

		var (
			format archive.Format
			err    error
		)
		if name != "" {
			format, err = archive.ParseFormat(name)
		} else {
			format, err = archive.DetectFormat(output)
		}
		if err != nil {
			return err
		}

		stats, err := archive.Create(cmd.Context(), output, args[1:], format)
		if err != nil {
			return fmt.Errorf("failed to create archive: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %d files, %s\n", output, stats.Files, humanize.IBytes(uint64(stats.Bytes)))
		return nil
	},
}

var archiveExtractCmd = &cobra.Command{
	Use:   "extract ARCHIVE [DEST]",
	Short: "Extract an archive",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest := "."
		if len(args) == 2 {
			dest = args[1]
		}
		stats, err := archive.Extract(cmd.Context(), args[0], dest)
		if err != nil {
			return fmt.Errorf("failed to extract archive: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d files (%s) into %s\n", stats.Files, humanize.IBytes(uint64(stats.Bytes)), dest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveCreateCmd)
	archiveCmd.AddCommand(archiveExtractCmd)
	archiveCreateCmd.Flags().String("format", "", "zip, tar, tar.gz or tar.zst (default: from the file name)")
}
