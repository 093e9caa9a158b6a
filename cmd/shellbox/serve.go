package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-arndt/shellbox/internal/agent"
	"github.com/p-arndt/shellbox/internal/api"
	"github.com/p-arndt/shellbox/internal/config"
	"github.com/p-arndt/shellbox/internal/metrics"
	"github.com/p-arndt/shellbox/internal/reaper"
	"github.com/p-arndt/shellbox/internal/sandbox"
	"github.com/p-arndt/shellbox/internal/session"
	"github.com/p-arndt/shellbox/internal/store"
	"github.com/p-arndt/shellbox/internal/web"
)

var serveLogLevel string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default command)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "debug, info, warn or error (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if serveLogLevel != "" {
		level = serveLogLevel
	}
	logger, err := newLogger(os.Stdout, level)
	if err != nil {
		return err
	}

	settings := web.NewSettingsFile(cfg.SettingsPath)
	if o, err := settings.SandboxOverrides(); err != nil {
		logger.Warn("ignoring saved sandbox settings", "path", cfg.SettingsPath, "error", err)
	} else {
		cfg.ApplySandboxOverrides(o)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	opts, err := sandboxOptions(cfg)
	if err != nil {
		return err
	}

	st, err := store.New(cfg.DBPath, 0)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	launcher, closeLauncher, err := newLauncher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLauncher()

	collector := metrics.NewCollector()
	registry := session.NewRegistry(st, logger)

	sb, err := sandbox.New(opts, launcher, logger, collector, registry)
	if err != nil {
		return fmt.Errorf("create sandbox: %w", err)
	}
	if err := registry.Register(sb.Info()); err != nil {
		logger.Warn("session registry unavailable", "error", err)
	}
	if !sb.Enabled() {
		logger.Warn("sandbox is disabled, set ENABLE_SANDBOX=true to enable it")
	}

	rpr := reaper.New(st, reaper.NewHostRuntime(tempRoot(cfg)),
		time.Duration(cfg.Reaper.IntervalSeconds)*time.Second,
		time.Duration(cfg.Reaper.RetentionSeconds)*time.Second,
		logger)
	rpr.SetLiveSession(sb.SessionID())
	go rpr.Run(ctx)

	dispatcher := agent.NewDispatcher(sb, agent.NewState(), logger)
	wh := web.NewHandler(settings, sb, logger)
	srv := api.NewServer(cfg, sb, dispatcher, wh, collector, logger)

	httpServer := &http.Server{
		Addr:        cfg.Listen,
		Handler:     srv.Handler(),
		ReadTimeout: 30 * time.Second,
		// a command may run for the whole sandbox timeout
		WriteTimeout: time.Duration(cfg.Sandbox.MaxTimeoutSeconds)*time.Second + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-sigCh
		logger.Info("shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("listening",
		"addr", cfg.Listen,
		"session_id", sb.SessionID(),
		"backend", sb.Backend(),
		"enabled", sb.Enabled(),
	)
	fmt.Fprintf(os.Stderr, "\n  shellbox ready at http://%s\n\n", cfg.Listen)

	err = httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-shutdownDone
	}
	if cerr := registry.Close(sb.SessionID()); cerr != nil {
		logger.Warn("closing session", "error", cerr)
	}
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
