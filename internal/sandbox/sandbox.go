// Package sandbox runs tokenized commands inside a per-process working
// directory with a wall-clock timeout and reports structured results.
package sandbox

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	DefaultUser              = "sandbox"
	DefaultHome              = "/home/sandbox"
	DefaultTimeoutSeconds    = 300
	DefaultMaxTimeoutSeconds = 3600

	// DefaultMaxOutputBytes caps each of stdout and stderr.
	DefaultMaxOutputBytes = 10 << 20

	// ExitCodeTimeout mirrors the coreutils timeout(1) convention.
	ExitCodeTimeout = 124
	ExitCodeFailure = 1

	// DisabledMessage is reported by every operation on a disabled sandbox.
	DisabledMessage = "Sandbox is not enabled. Set ENABLE_SANDBOX=true in .env"

	// SessionEnvVar is injected into every child environment.
	SessionEnvVar = "SANDBOX_SESSION_ID"

	workDirPrefix = "ai-sandbox-"
)

var (
	ErrDisabled     = errors.New("sandbox disabled")
	ErrEmptyCommand = errors.New("command is empty")
	ErrPathEscape   = errors.New("path escapes sandbox working directory")
	ErrCanceled     = errors.New("command canceled")
)

// State is the lifecycle state of a sandbox session.
type State string

const (
	StateDisabled State = "disabled"
	StateStopped  State = "stopped"
	StateRunning  State = "running"
)

type Options struct {
	Enabled           bool
	User              string
	Home              string
	TimeoutSeconds    int
	// MaxTimeoutSeconds caps the per-command timeout. It is raised to
	// TimeoutSeconds when lower.
	MaxTimeoutSeconds int
	// TempRoot is the parent of the working directory. Empty means os.TempDir().
	TempRoot          string
	MaxOutputBytes    int64
}

// Info is a point-in-time snapshot of a session.
type Info struct {
	SessionID        string `json:"session_id"`
	WorkingDirectory string `json:"working_directory"`
	Enabled          bool   `json:"enabled"`
	Running          bool   `json:"running"`
	State            State  `json:"state"`
	User             string `json:"user"`
	Home             string `json:"home"`
	TimeoutSeconds   int    `json:"timeout"`
	Backend          string `json:"backend"`
}

// Sandbox is a single command-execution session. All methods are safe for
// concurrent use; concurrent commands are not serialized.
type Sandbox struct {
	id             string
	workDir        string
	enabled        bool
	user           string
	home           string
	timeoutSeconds int
	maxTimeout     int
	maxOutputBytes int64

	running atomic.Bool

	launcher  Launcher
	observers []Observer
	logger    *slog.Logger
}

// New builds a session. The working directory is created only when the
// sandbox is enabled; an existing directory is reused.
func New(opts Options, launcher Launcher, logger *slog.Logger, observers ...Observer) (*Sandbox, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if launcher == nil {
		launcher = NewProcessLauncher()
	}
	if opts.User == "" {
		opts.User = DefaultUser
	}
	if opts.Home == "" {
		opts.Home = DefaultHome
	}
	if opts.TimeoutSeconds < 1 {
		opts.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if opts.MaxTimeoutSeconds < 1 {
		opts.MaxTimeoutSeconds = DefaultMaxTimeoutSeconds
	}
	opts.MaxTimeoutSeconds = max(opts.MaxTimeoutSeconds, opts.TimeoutSeconds)
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = DefaultMaxOutputBytes
	}
	root := opts.TempRoot
	if root == "" {
		root = os.TempDir()
	}

	id := uuid.New().String()
	s := &Sandbox{
		id:             id,
		workDir:        filepath.Join(root, workDirPrefix+id),
		enabled:        opts.Enabled,
		user:           opts.User,
		home:           opts.Home,
		timeoutSeconds: opts.TimeoutSeconds,
		maxTimeout:     opts.MaxTimeoutSeconds,
		maxOutputBytes: opts.MaxOutputBytes,
		launcher:       launcher,
		observers:      observers,
		logger:         logger.With("session_id", id),
	}

	if s.enabled {
		if err := os.MkdirAll(s.workDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating working directory: %w", err)
		}
		s.logger.Info("created sandbox working directory", "dir", s.workDir)
	}

	return s, nil
}

// IsWorkDirName reports whether name has the shape of a session working directory.
func IsWorkDirName(name string) bool {
	if len(name) <= len(workDirPrefix) || name[:len(workDirPrefix)] != workDirPrefix {
		return false
	}
	return uuid.Validate(name[len(workDirPrefix):]) == nil
}

func (s *Sandbox) SessionID() string  { return s.id }
func (s *Sandbox) WorkingDir() string { return s.workDir }
func (s *Sandbox) Enabled() bool      { return s.enabled }
func (s *Sandbox) Backend() string    { return s.launcher.Name() }

// Start marks the sandbox running. It fails only when the sandbox is disabled.
func (s *Sandbox) Start() bool {
	if !s.enabled {
		s.logger.Warn("sandbox is disabled, enable it by setting ENABLE_SANDBOX=true")
		return false
	}
	if s.running.CompareAndSwap(false, true) {
		s.logger.Info("sandbox started")
		s.notifyState()
	}
	return true
}

// Stop reports whether the sandbox was running. Commands already in flight
// keep running; only new commands are affected.
func (s *Sandbox) Stop() bool {
	if !s.running.CompareAndSwap(true, false) {
		return false
	}
	s.logger.Info("sandbox stopped")
	s.notifyState()
	return true
}

func (s *Sandbox) IsRunning() bool {
	return s.enabled && s.running.Load()
}

// EnsureRunning starts an enabled, stopped sandbox and reports whether work
// may proceed.
func (s *Sandbox) EnsureRunning() bool {
	if !s.enabled {
		return false
	}
	if s.running.Load() {
		return true
	}
	return s.Start()
}

func (s *Sandbox) State() State {
	switch {
	case !s.enabled:
		return StateDisabled
	case s.running.Load():
		return StateRunning
	default:
		return StateStopped
	}
}

func (s *Sandbox) Info() Info {
	state := s.State()
	return Info{
		SessionID:        s.id,
		WorkingDirectory: s.workDir,
		Enabled:          s.enabled,
		Running:          state == StateRunning,
		State:            state,
		User:             s.user,
		Home:             s.home,
		TimeoutSeconds:   s.timeoutSeconds,
		Backend:          s.launcher.Name(),
	}
}

func (s *Sandbox) notifyState() {
	info := s.Info()
	for _, o := range s.observers {
		o.StateChanged(info)
	}
}
