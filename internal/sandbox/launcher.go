package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// LaunchSpec is a fully resolved process invocation.
type LaunchSpec struct {
	SessionID      string
	Args           []string
	Dir            string
	Env            []string
	User           string
	Home           string
	Timeout        time.Duration
	MaxOutputBytes int64
}

// LaunchResult is the captured outcome of a process that was started.
type LaunchResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Launcher spawns a command and blocks until it exits or its timeout fires.
// A returned error means the command could not be run to completion for a
// reason other than the timeout.
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (*LaunchResult, error)
	Name() string
}

const defaultWaitDelay = 2 * time.Second

// ProcessLauncher runs commands as host processes in their own process group.
type ProcessLauncher struct {
	// WaitDelay bounds how long output pipes may stay open after the process
	// is killed (for example by a backgrounded grandchild).
	WaitDelay time.Duration
}

func NewProcessLauncher() *ProcessLauncher {
	return &ProcessLauncher{WaitDelay: defaultWaitDelay}
}

func (l *ProcessLauncher) Name() string { return "process" }

func (l *ProcessLauncher) Launch(ctx context.Context, spec LaunchSpec) (*LaunchResult, error) {
	if len(spec.Args) == 0 {
		return nil, ErrEmptyCommand
	}

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Args[0], spec.Args[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.WaitDelay = l.WaitDelay
	configureProcessGroup(cmd)

	limit := spec.MaxOutputBytes
	if limit <= 0 {
		limit = DefaultMaxOutputBytes
	}
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = LimitWriter(&stdoutBuf, limit)
	cmd.Stderr = LimitWriter(&stderrBuf, limit)

	runErr := cmd.Run()

	if runErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return &LaunchResult{ExitCode: ExitCodeTimeout, TimedOut: true}, nil
		}

		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, runErr
		}
		return &LaunchResult{
			Stdout:   stdoutBuf.String(),
			Stderr:   stderrBuf.String(),
			ExitCode: exitErr.ExitCode(),
		}, nil
	}

	return &LaunchResult{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}, nil
}

// LimitWriter returns a writer that keeps the first n bytes written to it.
func LimitWriter(w io.Writer, n int64) io.Writer {
	return &limitedWriter{w: w, remaining: n}
}

// limitedWriter drops everything past the first remaining bytes while still
// reporting full writes, so the child never sees EPIPE.
type limitedWriter struct {
	w         io.Writer
	remaining int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.remaining <= 0 {
		return n, nil
	}
	if int64(n) > lw.remaining {
		p = p[:lw.remaining]
	}
	written, err := lw.w.Write(p)
	lw.remaining -= int64(written)
	if err != nil {
		return written, err
	}
	return n, nil
}
