package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/p-arndt/shellbox/internal/config"
	"github.com/p-arndt/shellbox/internal/sandbox"
	"github.com/p-arndt/shellbox/protocol"
)

var (
	runTimeout int
	runEnable  bool
	runKeep    bool
)

var runCmd = &cobra.Command{
	Use:   "run <command>",
	Short: "Run one command in a fresh local sandbox",
	Long: `Create a sandbox session, run a single command in it and remove the
working directory afterwards.

Examples:
  shellbox run --enable "echo hello"
  shellbox run --keep -- sh -c "echo state > f.txt"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLocal,
}

func init() {
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "timeout in seconds (0 = configured default)")
	runCmd.Flags().BoolVar(&runEnable, "enable", false, "enable the sandbox regardless of ENABLE_SANDBOX")
	runCmd.Flags().BoolVar(&runKeep, "keep", false, "keep the working directory")
}

func runLocal(cmd *cobra.Command, args []string) error {
	res, err := runOnce(cmd, joinArgs(args))
	if err != nil {
		return err
	}
	return printResult(cmd, protocol.ExecuteResponse(res))
}

func runOnce(cmd *cobra.Command, command string) (sandbox.Result, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return sandbox.Result{}, err
	}
	if runEnable {
		cfg.Sandbox.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return sandbox.Result{}, err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), "warn")
	if err != nil {
		return sandbox.Result{}, err
	}
	opts, err := sandboxOptions(cfg)
	if err != nil {
		return sandbox.Result{}, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	launcher, closeLauncher, err := newLauncher(ctx, cfg, logger)
	if err != nil {
		return sandbox.Result{}, err
	}
	defer closeLauncher()

	sb, err := sandbox.New(opts, launcher, logger)
	if err != nil {
		return sandbox.Result{}, err
	}
	res := sb.ExecuteCommand(ctx, command, runTimeout)

	if sb.Enabled() {
		if runKeep {
			fmt.Fprintf(cmd.ErrOrStderr(), "working directory: %s\n", sb.WorkingDir())
		} else if err := os.RemoveAll(sb.WorkingDir()); err != nil {
			logger.Warn("removing working directory", "path", sb.WorkingDir(), "error", err)
		}
	}
	return res, nil
}
