package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-arndt/shellbox/internal/config"
	"github.com/p-arndt/shellbox/internal/reaper"
	"github.com/p-arndt/shellbox/internal/store"
)

var gcRetention time.Duration

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove working directories of closed and orphaned sessions",
	Args:  cobra.NoArgs,
	RunE:  runGC,
}

func init() {
	gcCmd.Flags().DurationVar(&gcRetention, "retention", -1, "minimum idle time before removal (default: reaper.retention_seconds)")
}

func runGC(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	st, err := store.New(cfg.DBPath, 1)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	retention := gcRetention
	if retention < 0 {
		retention = time.Duration(cfg.Reaper.RetentionSeconds) * time.Second
	}
	logger, err := newLogger(cmd.ErrOrStderr(), "warn")
	if err != nil {
		return err
	}
	rpr := reaper.New(st, reaper.NewHostRuntime(tempRoot(cfg)), time.Minute, retention, logger)

	n := rpr.RunOnce()
	fmt.Fprintf(cmd.OutOrStdout(), "reaped %d session(s)\n", n)
	return nil
}
