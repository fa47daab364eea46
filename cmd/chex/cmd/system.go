package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/justyntemme/chex/internal/config"
	"github.com/justyntemme/chex/internal/fs"
)

var drivesCmd = &cobra.Command{
	Use:   "drives",
	Short: "List mounted drives and volumes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPATH")
		for _, d := range fs.ListDrives() {
			fmt.Fprintf(w, "%s\t%s\n", d.Name, d.Path)
		}
		return w.Flush()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and reset the configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), cfgManager.Path())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration, environment overrides included",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		if err := cfgManager.ParseError(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s could not be parsed, showing defaults: %v\n", cfgManager.Path(), err)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a fresh default config, backing up the current one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backup, err := config.GenerateConfig(cfgManager.Path())
		if err != nil {
			return err
		}
		if backup != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up previous config to %s\n", backup)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", cfgManager.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(drivesCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
