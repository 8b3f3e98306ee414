package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/tasktracker/internal/config"
	"github.com/Joseda-hg/tasktracker/internal/store"
)

// options holds the global flags shared by every subcommand.
type options struct {
	configPath string
	backend    string
	path       string
}

func NewRootCommand(version string) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "tasktracker",
		Short: "Track tasks, epics and subtasks",
		Long: `tasktracker keeps tasks, epics and their subtasks on a shared schedule,
remembers which entries were viewed and persists everything to the configured
storage backend.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path")
	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "storage backend (memory, sqlite, postgres, csv, kv)")
	root.PersistentFlags().StringVar(&opts.path, "path", "", "database or data file path")

	root.AddCommand(serveCmd(opts))
	root.AddCommand(kvServerCmd(opts))
	root.AddCommand(listCmd(opts))
	root.AddCommand(showCmd(opts))
	root.AddCommand(addCmd(opts))
	root.AddCommand(removeCmd(opts))
	root.AddCommand(historyCmd(opts))
	root.AddCommand(scheduleCmd(opts))
	root.AddCommand(exportCmd(opts))
	root.AddCommand(importCmd(opts))
	root.AddCommand(configCmd(opts))
	return root
}

// Execute runs the root command
func Execute(version string) error {
	if err := NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (o *options) resolveConfigPath() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.DefaultConfigPath()
}

// load reads the config file and applies the global flag overrides.
func (o *options) load() (config.Config, error) {
	path, err := o.resolveConfigPath()
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if o.backend != "" {
		cfg.Storage.Backend = o.backend
	}
	if o.path != "" {
		cfg.Storage.Path = o.path
	}
	return cfg, cfg.Validate()
}

func (o *options) openTracker(ctx context.Context) (*store.Tracker, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	switch cfg.Storage.Backend {
	case config.BackendSQLite, config.BackendCSV:
		if cfg.Storage.Path != ":memory:" {
			if err := config.EnsureDir(cfg.Storage.Path); err != nil {
				return nil, err
			}
		}
	}

	backend, err := store.OpenBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	tracker, err := store.Open(ctx, backend)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return tracker, nil
}

// withTracker opens the tracker for the duration of fn.
func (o *options) withTracker(cmd *cobra.Command, fn func(*store.Tracker) error) error {
	tracker, err := o.openTracker(cmd.Context())
	if err != nil {
		return err
	}
	defer tracker.Close()
	return fn(tracker)
}
