package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/p-arndt/shellbox/internal/config"
	"github.com/p-arndt/shellbox/internal/docker"
	"github.com/p-arndt/shellbox/internal/sandbox"
)

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func sandboxOptions(cfg *config.Config) (sandbox.Options, error) {
	maxOutput, err := cfg.MaxOutputBytes()
	if err != nil {
		return sandbox.Options{}, err
	}
	return sandbox.Options{
		Enabled:           cfg.Sandbox.Enabled,
		User:              cfg.Sandbox.User,
		Home:              cfg.Sandbox.Home,
		TimeoutSeconds:    cfg.Sandbox.TimeoutSeconds,
		MaxTimeoutSeconds: cfg.Sandbox.MaxTimeoutSeconds,
		TempRoot:          cfg.Sandbox.TempRoot,
		MaxOutputBytes:    maxOutput,
	}, nil
}

// newLauncher builds the configured backend. The returned close func is
// never nil.
func newLauncher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sandbox.Launcher, func(), error) {
	if cfg.Sandbox.Backend != config.BackendDocker {
		return sandbox.NewProcessLauncher(), func() {}, nil
	}

	mem, err := cfg.DockerMemoryBytes()
	if err != nil {
		return nil, nil, err
	}
	dc, err := docker.New(docker.Options{
		Image:       cfg.Docker.Image,
		MemoryBytes: mem,
		CPULimit:    cfg.Docker.CPULimit,
		PidsLimit:   int64(cfg.Docker.PidsLimit),
		NetworkMode: cfg.Docker.NetworkMode,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := dc.Ping(pingCtx); err != nil {
		dc.Close()
		return nil, nil, fmt.Errorf("docker ping failed, is Docker running? %w", err)
	}
	logger.Info("docker connection OK", "image", cfg.Docker.Image)
	return dc, func() { dc.Close() }, nil
}

func tempRoot(cfg *config.Config) string {
	if cfg.Sandbox.TempRoot != "" {
		return cfg.Sandbox.TempRoot
	}
	return os.TempDir()
}

// joinArgs turns CLI arguments back into one command line. A single argument
// is taken as the command line itself; several arguments are quoted so each
// stays one word when the sandbox tokenizes the line.
func joinArgs(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quoteArg(a)
	}
	return strings.Join(quoted, " ")
}

func quoteArg(s string) string {
	if s != "" && strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./=:,+@%", r)
}
