//go:build unix

package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-arndt/shellbox/internal/sandbox"
	"github.com/p-arndt/shellbox/internal/testutil"
)

func TestJoinArgsRunsShellScript(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	sb, err := sandbox.New(sandbox.Options{Enabled: true, TempRoot: t.TempDir()}, nil, testutil.DiscardLogger())
	require.NoError(t, err)

	res := sb.ExecuteCommand(context.Background(), joinArgs([]string{"sh", "-c", "echo state > f.txt"}), 10)
	require.True(t, res.Success, res.Stderr)

	data, err := os.ReadFile(filepath.Join(sb.WorkingDir(), "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "state\n", string(data))
}
