package cmd

import (
	"github.com/spf13/cobra"

	"github.com/justyntemme/chex/internal/app"
)

var openReveal bool

var openCmd = &cobra.Command{
	Use:   "open PATH",
	Short: "Open a file or directory with the default application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if openReveal {
			return app.Reveal(args[0])
		}
		return app.Open(args[0])
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
	openCmd.Flags().BoolVarP(&openReveal, "reveal", "R", false, "show the item in the file manager instead")
}
