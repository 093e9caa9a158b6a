package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/shlex"
)

// Result is the structured outcome of ExecuteCommand. Stdout and Stderr are
// always present in JSON, even when empty.
type Result struct {
	Success  bool   `json:"success"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

func failure(msg string) Result {
	return Result{Success: false, Stdout: "", Stderr: msg, ExitCode: ExitCodeFailure}
}

// Tokenize splits a command line with POSIX shell-word rules. Shell
// operators such as ; | && are ordinary characters; an unquoted # at the
// start of a word begins a comment.
func Tokenize(command string) ([]string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}
	return args, nil
}

// ExecuteCommand runs command once, without a shell, in the working
// directory. A timeoutSeconds of zero or less selects the session default;
// larger values are capped at the session maximum.
// Cancelling ctx kills the child and reports a failure.
func (s *Sandbox) ExecuteCommand(ctx context.Context, command string, timeoutSeconds int) Result {
	start := time.Now()

	if !s.enabled {
		res := failure(DisabledMessage)
		s.finish(command, res, OutcomeDisabled, start)
		return res
	}
	s.EnsureRunning()

	if timeoutSeconds <= 0 {
		timeoutSeconds = s.timeoutSeconds
	}
	timeoutSeconds = min(timeoutSeconds, s.maxTimeout)

	args, err := Tokenize(command)
	if err != nil {
		res := failure(err.Error())
		s.finish(command, res, OutcomeError, start)
		return res
	}

	s.logger.Info("executing command in sandbox", "command", command, "timeout", timeoutSeconds)

	spec := LaunchSpec{
		SessionID:      s.id,
		Args:           args,
		Dir:            s.workDir,
		Env:            append(os.Environ(), SessionEnvVar+"="+s.id),
		User:           s.user,
		Home:           s.home,
		Timeout:        time.Duration(timeoutSeconds) * time.Second,
		MaxOutputBytes: s.maxOutputBytes,
	}

	out, err := s.launcher.Launch(ctx, spec)
	if err != nil {
		if errors.Is(err, ErrCanceled) {
			s.logger.Warn("command canceled", "command", command, "error", err)
		} else {
			s.logger.Error("error executing command", "command", command, "error", err)
		}
		res := failure(err.Error())
		s.finish(command, res, OutcomeError, start)
		return res
	}

	if out.TimedOut {
		res := Result{
			Success:  false,
			Stdout:   "",
			Stderr:   fmt.Sprintf("Command timed out after %d seconds", timeoutSeconds),
			ExitCode: ExitCodeTimeout,
		}
		s.logger.Warn("command timed out", "command", command, "timeout", timeoutSeconds)
		s.finish(command, res, OutcomeTimeout, start)
		return res
	}

	res := Result{
		Success:  out.ExitCode == 0,
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		ExitCode: out.ExitCode,
	}
	outcome := OutcomeSuccess
	if !res.Success {
		outcome = OutcomeFailure
	}
	s.finish(command, res, outcome, start)
	return res
}

func (s *Sandbox) finish(command string, res Result, outcome Outcome, start time.Time) {
	ev := Execution{
		SessionID: s.id,
		Command:   command,
		Backend:   s.launcher.Name(),
		Outcome:   outcome,
		ExitCode:  res.ExitCode,
		Duration:  time.Since(start),
	}
	s.logger.Debug("command finished",
		"outcome", ev.Outcome,
		"exit_code", ev.ExitCode,
		"duration", ev.Duration,
	)
	for _, o := range s.observers {
		o.CommandFinished(ev)
	}
}
