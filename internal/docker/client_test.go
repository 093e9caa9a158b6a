package docker

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-arndt/shellbox/internal/sandbox"
)

func testClient() *Client {
	return &Client{
		opts: Options{
			Image:       "alpine:3.20",
			MemoryBytes: 512 * units.MiB,
			CPULimit:    0.5,
			PidsLimit:   64,
			NetworkMode: "none",
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testSpec() sandbox.LaunchSpec {
	return sandbox.LaunchSpec{
		SessionID: "0b8a5d0e-1111-4222-8333-444455556666",
		Args:      []string{"ls", "-la"},
		Dir:       "/tmp/ai-sandbox-0b8a5d0e-1111-4222-8333-444455556666",
		Env:       []string{"PATH=/host/only", "SECRET=host"},
		User:      "1000:1000",
		Home:      "/home/sandbox",
		Timeout:   5 * time.Second,
	}
}

func TestContainerConfig(t *testing.T) {
	c := testClient()
	cfg := c.containerConfig(testSpec())

	assert.Equal(t, "alpine:3.20", cfg.Image)
	assert.Equal(t, []string{"ls", "-la"}, []string(cfg.Cmd))
	assert.Equal(t, "/home/sandbox/work", cfg.WorkingDir)
	assert.Equal(t, "1000:1000", cfg.User)
	assert.Equal(t, "true", cfg.Labels["shellbox.managed"])
	assert.Equal(t, testSpec().SessionID, cfg.Labels["shellbox.session_id"])
}

func TestContainerEnvDoesNotLeakHostEnv(t *testing.T) {
	env := containerEnv(testSpec())

	assert.ElementsMatch(t, []string{
		"HOME=/home/sandbox",
		"SANDBOX_SESSION_ID=" + testSpec().SessionID,
	}, env)
}

func TestHostConfig(t *testing.T) {
	c := testClient()
	host := c.hostConfig(testSpec())

	assert.Equal(t, int64(512*units.MiB), host.Memory)
	assert.Equal(t, int64(5e8), host.NanoCPUs)
	require.NotNil(t, host.PidsLimit)
	assert.Equal(t, int64(64), *host.PidsLimit)
	assert.Equal(t, container.NetworkMode("none"), host.NetworkMode)
	assert.Contains(t, host.CapDrop, "ALL")
	assert.Contains(t, host.SecurityOpt, "no-new-privileges")

	require.Len(t, host.Mounts, 2)
	assert.Equal(t, mount.TypeBind, host.Mounts[0].Type)
	assert.Equal(t, testSpec().Dir, host.Mounts[0].Source)
	assert.Equal(t, "/home/sandbox/work", host.Mounts[0].Target)
	assert.Equal(t, mount.TypeTmpfs, host.Mounts[1].Type)
}

func TestHostConfigNoPidsLimit(t *testing.T) {
	c := testClient()
	c.opts.PidsLimit = 0

	assert.Nil(t, c.hostConfig(testSpec()).PidsLimit)
}

func TestContainerName(t *testing.T) {
	a := containerName("abc")
	b := containerName("abc")

	assert.True(t, strings.HasPrefix(a, "shellbox-abc-"))
	assert.NotEqual(t, a, b)
}

func TestContainerWorkDirDefault(t *testing.T) {
	assert.Equal(t, "/home/sandbox/work", containerWorkDir(""))
	assert.Equal(t, "/srv/box/work", containerWorkDir("/srv/box"))
}

func TestLaunchEmptyCommand(t *testing.T) {
	c := testClient()

	_, err := c.Launch(context.Background(), sandbox.LaunchSpec{})
	assert.ErrorIs(t, err, sandbox.ErrEmptyCommand)
}

// TestLaunchAgainstDaemon needs a reachable Docker daemon and the alpine image.
func TestLaunchAgainstDaemon(t *testing.T) {
	if os.Getenv("SHELLBOX_DOCKER_TESTS") == "" {
		t.Skip("set SHELLBOX_DOCKER_TESTS=1 to run against a Docker daemon")
	}
	c, err := New(Options{Image: "alpine:3.20", NetworkMode: "none"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Ping(context.Background()))

	spec := testSpec()
	spec.Dir = t.TempDir()
	spec.User = ""
	spec.Args = []string{"sh", "-c", "echo out; echo err >&2; exit 2"}

	res, err := c.Launch(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 2, res.ExitCode)

	spec.Args = []string{"sleep", "30"}
	spec.Timeout = time.Second
	res, err = c.Launch(context.Background(), spec)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
}
