// Package cmd implements the chex command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/justyntemme/chex/internal/config"
	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/metrics"
	"github.com/justyntemme/chex/internal/ops"
	"github.com/justyntemme/chex/internal/store"
)

var (
	configPath      string
	debugFlag       bool
	debugCategories string

	cfgManager *config.Manager
	cfg        config.Config
	mtr        *metrics.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "chex",
	Short: "chex - browse, search and copy files from the command line",
	Long: `chex is a file browser for the terminal.

It lists and navigates directories with live updates, copies trees with
progress, searches names and contents, and manages archives, bookmarks and
recently visited paths.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = debug.Sync()
	},
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/chex/config.json)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable verbose debug logging")
	rootCmd.PersistentFlags().StringVar(&debugCategories, "debug-categories", "", "comma separated log categories, e.g. APP,FS,WATCH or ALL")
}

func setup(cmd *cobra.Command, args []string) error {
	cfgManager = config.NewManager(configPath)
	if err := cfgManager.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = cfgManager.Get()

	opts := debug.Options{Level: cfg.Logging.Level, Categories: cfg.Logging.Categories}
	if debugFlag || os.Getenv("CHEX_DEBUG") != "" {
		opts.Level = "debug"
		opts.Development = true
		if opts.Categories == "" {
			opts.Categories = os.Getenv("CHEX_DEBUG")
		}
		if opts.Categories == "" {
			opts.Categories = "ALL"
		}
	}
	if debugCategories != "" {
		opts.Categories = debugCategories
	}
	if err := debug.Init(opts); err != nil {
		return err
	}
	if err := cfgManager.ParseError(); err != nil {
		debug.Warn(debug.CLI, "config %s is invalid, using defaults: %v", cfgManager.Path(), err)
	}

	mtr = metrics.New(true)
	debug.Log(debug.CLI, "running %q with config %s", cmd.CommandPath(), cfgManager.Path())
	return nil
}

func newEngine() *ops.Engine {
	return ops.NewEngine(ops.Config{
		Workers:         cfg.Operations.Workers,
		EventBuffer:     cfg.Operations.ProgressBuffer,
		MaxContentBytes: cfg.Search.MaxContentBytes,
	}, mtr)
}

// openStore opens the database and starts its worker. The returned func
// stops the worker and closes the database.
func openStore() (*store.DB, func(), error) {
	path := cfg.Store.Path
	if path == "" {
		p, err := store.DefaultPath()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to locate store: %w", err)
		}
		path = p
	}

	db := store.NewDB()
	if err := db.Open(path); err != nil {
		return nil, nil, err
	}
	done := make(chan struct{})
	go func() {
		db.Start()
		close(done)
	}()
	return db, func() {
		close(db.RequestChan)
		<-done
		db.Close()
	}, nil
}
