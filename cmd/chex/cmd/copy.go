package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justyntemme/chex/internal/ops"
)

var copyCmd = &cobra.Command{
	Use:     "copy SOURCE... DEST",
	Aliases: []string{"cp"},
	Short:   "Copy files and directories into a directory",
	Long: `Copy every SOURCE into the DEST directory, creating it if needed.

Directories are copied recursively and symlinks are recreated, not followed.
An existing file stops the copy unless --overwrite is given; files copied
before the failure are kept.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		quiet, _ := cmd.Flags().GetBool("quiet")
		out := cmd.OutOrStdout()

		req := ops.CopyRequest{
			Sources:     args[:len(args)-1],
			Destination: args[len(args)-1],
			Overwrite:   overwrite,
		}

		engine := newEngine()
		defer engine.Shutdown(context.Background())

		task := engine.StartCopy(cmd.Context(), req)
		for p := range task.Events() {
			if quiet {
				continue
			}
			fmt.Fprintf(out, "[%3.0f%%] %d/%d %s (%s of %s)\n",
				p.Fraction()*100, p.CompletedFiles, p.TotalFiles, p.CurrentFile,
				humanize.IBytes(uint64(p.BytesCopied)), humanize.IBytes(uint64(p.TotalBytes)))
		}

		res, err := task.Wait()
		if err != nil {
			return fmt.Errorf("copy failed after %d files: %w", res.Files, err)
		}
		fmt.Fprintf(out, "Copied %d files (%s) in %s\n",
			res.Files, humanize.IBytes(uint64(res.Bytes)), res.Duration().Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(copyCmd)
	copyCmd.Flags().Bool("overwrite", false, "replace existing files")
	copyCmd.Flags().BoolP("quiet", "q", false, "only print the summary")
}
