// Package docker runs sandbox commands in throwaway containers. The session
// working directory is bind-mounted so files persist across commands.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-units"
	"github.com/google/uuid"

	"github.com/p-arndt/shellbox/internal/sandbox"
)

const (
	labelPrefix   = "shellbox."
	workSubdir    = "work"
	removeTimeout = 10 * time.Second
)

type Options struct {
	Image       string
	MemoryBytes int64
	CPULimit    float64
	PidsLimit   int64
	NetworkMode string
}

// Client implements sandbox.Launcher on top of the Docker Engine API.
type Client struct {
	docker *client.Client
	opts   Options
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger) (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Client{docker: cli, opts: opts, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.docker.Close()
}

// Ping verifies the Docker daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.docker.Ping(ctx)
	return err
}

func (c *Client) Name() string { return "docker" }

// Launch creates, starts and waits for one container. The container is
// always force-removed before Launch returns.
func (c *Client) Launch(ctx context.Context, spec sandbox.LaunchSpec) (*sandbox.LaunchResult, error) {
	if len(spec.Args) == 0 {
		return nil, sandbox.ErrEmptyCommand
	}

	name := containerName(spec.SessionID)
	resp, err := c.docker.ContainerCreate(ctx, c.containerConfig(spec), c.hostConfig(spec), nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("container create: %w", err)
	}
	defer c.remove(resp.ID)

	if err := c.docker.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("container start: %w", err)
	}

	c.logger.Debug("container started",
		slog.String("container", name),
		slog.String("image", c.opts.Image),
		slog.Duration("timeout", spec.Timeout),
	)

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	statusCh, errCh := c.docker.ContainerWait(runCtx, resp.ID, container.WaitConditionNotRunning)

	var exitCode int
	select {
	case st := <-statusCh:
		if st.Error != nil && st.Error.Message != "" {
			return nil, fmt.Errorf("container wait: %s", st.Error.Message)
		}
		exitCode = int(st.StatusCode)
	case err := <-errCh:
		c.kill(resp.ID)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", sandbox.ErrCanceled, ctx.Err())
		}
		if runCtx.Err() != nil {
			return &sandbox.LaunchResult{ExitCode: sandbox.ExitCodeTimeout, TimedOut: true}, nil
		}
		return nil, fmt.Errorf("container wait: %w", err)
	}

	stdout, stderr, err := c.logs(ctx, resp.ID, spec.MaxOutputBytes)
	if err != nil {
		return nil, err
	}
	return &sandbox.LaunchResult{Stdout: stdout, Stderr: stderr, ExitCode: exitCode}, nil
}

func (c *Client) containerConfig(spec sandbox.LaunchSpec) *container.Config {
	return &container.Config{
		Image:      c.opts.Image,
		Cmd:        spec.Args,
		Env:        containerEnv(spec),
		WorkingDir: containerWorkDir(spec.Home),
		User:       spec.User,
		Tty:        false,
		Labels: map[string]string{
			labelPrefix + "session_id": spec.SessionID,
			labelPrefix + "managed":    "true",
		},
	}
}

func (c *Client) hostConfig(spec sandbox.LaunchSpec) *container.HostConfig {
	resources := container.Resources{
		NanoCPUs: int64(c.opts.CPULimit * 1e9),
		Memory:   c.opts.MemoryBytes,
	}
	if c.opts.PidsLimit > 0 {
		resources.PidsLimit = int64Ptr(c.opts.PidsLimit)
	}

	hostCfg := &container.HostConfig{
		Resources:   resources,
		AutoRemove:  false,
		SecurityOpt: []string{"no-new-privileges"},
		CapDrop:     []string{"ALL"},
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: spec.Dir,
				Target: containerWorkDir(spec.Home),
			},
			{
				Type:   mount.TypeTmpfs,
				Target: "/tmp",
				TmpfsOptions: &mount.TmpfsOptions{
					SizeBytes: 64 * units.MiB,
				},
			},
		},
	}
	if c.opts.NetworkMode != "" {
		hostCfg.NetworkMode = container.NetworkMode(c.opts.NetworkMode)
	}
	return hostCfg
}

// logs reads the demultiplexed stdout and stderr of a finished container.
func (c *Client) logs(ctx context.Context, id string, limit int64) (string, string, error) {
	rc, err := c.docker.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", "", fmt.Errorf("container logs: %w", err)
	}
	defer rc.Close()

	if limit <= 0 {
		limit = sandbox.DefaultMaxOutputBytes
	}
	var stdoutBuf, stderrBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(sandbox.LimitWriter(&stdoutBuf, limit), sandbox.LimitWriter(&stderrBuf, limit), rc); err != nil {
		return "", "", fmt.Errorf("container logs read: %w", err)
	}
	return stdoutBuf.String(), stderrBuf.String(), nil
}

func (c *Client) kill(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()
	if err := c.docker.ContainerKill(ctx, id, "KILL"); err != nil && !client.IsErrNotFound(err) {
		c.logger.Warn("container kill", "container", id, "error", err)
	}
}

func (c *Client) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()
	err := c.docker.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		c.logger.Warn("container remove", "container", id, "error", err)
	}
}

func containerName(sessionID string) string {
	return "shellbox-" + sessionID + "-" + uuid.New().String()[:8]
}

func containerWorkDir(home string) string {
	if home == "" {
		home = sandbox.DefaultHome
	}
	return path.Join(home, workSubdir)
}

// containerEnv carries only HOME and the session id. Host variables are not
// forwarded into the image.
func containerEnv(spec sandbox.LaunchSpec) []string {
	home := spec.Home
	if home == "" {
		home = sandbox.DefaultHome
	}
	return []string{
		"HOME=" + home,
		sandbox.SessionEnvVar + "=" + spec.SessionID,
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}
