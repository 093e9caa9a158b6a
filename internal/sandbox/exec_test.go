//go:build unix

package sandbox

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteCommand_Echo(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	res := sb.ExecuteCommand(context.Background(), "echo hello", 0)

	assert.Equal(t, Result{Success: true, Stdout: "hello\n", Stderr: "", ExitCode: 0}, res)
}

func TestExecuteCommand_LazyStart(t *testing.T) {
	sb := newTestSandbox(t, true, nil)
	require.False(t, sb.IsRunning())

	res := sb.ExecuteCommand(context.Background(), "true", 0)

	assert.True(t, res.Success)
	assert.True(t, sb.IsRunning())
}

func TestExecuteCommand_NoShellInterpretation(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	res := sb.ExecuteCommand(context.Background(), "echo a; echo b", 0)

	require.True(t, res.Success)
	assert.Equal(t, "a; echo b\n", res.Stdout)
}

func TestExecuteCommand_NoVariableExpansion(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	res := sb.ExecuteCommand(context.Background(), "echo $HOME", 0)

	assert.Equal(t, "$HOME\n", res.Stdout)
}

func TestExecuteCommand_NonZeroExit(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	res := sb.ExecuteCommand(context.Background(), `sh -c "echo out; echo err >&2; exit 3"`, 0)

	assert.False(t, res.Success)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestExecuteCommand_Timeout(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	start := time.Now()
	res := sb.ExecuteCommand(context.Background(), "sleep 10", 1)
	elapsed := time.Since(start)

	assert.Equal(t, Result{
		Success:  false,
		Stdout:   "",
		Stderr:   "Command timed out after 1 seconds",
		ExitCode: 124,
	}, res)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestExecuteCommand_TimeoutKillsProcessGroup(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	start := time.Now()
	res := sb.ExecuteCommand(context.Background(), `sh -c "sleep 10 & sleep 10"`, 1)

	assert.Equal(t, ExitCodeTimeout, res.ExitCode)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecuteCommand_WorkingDirectory(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	res := sb.ExecuteCommand(context.Background(), "pwd", 0)
	require.True(t, res.Success)

	want, err := filepath.EvalSymlinks(sb.WorkingDir())
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExecuteCommand_SessionEnv(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	res := sb.ExecuteCommand(context.Background(), "printenv SANDBOX_SESSION_ID", 0)

	require.True(t, res.Success)
	assert.Equal(t, sb.SessionID()+"\n", res.Stdout)
}

func TestExecuteCommand_InheritsEnvironment(t *testing.T) {
	t.Setenv("SHELLBOX_TEST_MARKER", "inherited")
	sb := newTestSandbox(t, true, nil)

	res := sb.ExecuteCommand(context.Background(), "printenv SHELLBOX_TEST_MARKER", 0)

	assert.Equal(t, "inherited\n", res.Stdout)
}

func TestExecuteCommand_ExecutableNotFound(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	res := sb.ExecuteCommand(context.Background(), "shellbox-no-such-binary --flag", 0)

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.ExitCode)
	assert.Empty(t, res.Stdout)
	assert.Contains(t, res.Stderr, "shellbox-no-such-binary")
}

func TestExecuteCommand_ContextCancel(t *testing.T) {
	sb := newTestSandbox(t, true, nil)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	res := sb.ExecuteCommand(ctx, "sleep 10", 0)

	assert.False(t, res.Success)
	assert.Equal(t, ExitCodeFailure, res.ExitCode)
	assert.Contains(t, res.Stderr, "command canceled")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecuteCommand_StopLeavesInFlightRunning(t *testing.T) {
	sb := newTestSandbox(t, true, nil)
	require.True(t, sb.Start())

	done := make(chan Result, 1)
	go func() { done <- sb.ExecuteCommand(context.Background(), `sh -c "sleep 0.5; echo finished"`, 0) }()

	time.Sleep(100 * time.Millisecond)
	assert.True(t, sb.Stop())

	res := <-done
	assert.True(t, res.Success)
	assert.Equal(t, "finished\n", res.Stdout)
}

func TestExecuteCommand_ConcurrentCallsNotSerialized(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	var wg sync.WaitGroup
	results := make([]Result, 3)
	start := time.Now()
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = sb.ExecuteCommand(context.Background(), "sleep 1", 0)
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		assert.True(t, res.Success)
	}
	assert.Less(t, time.Since(start), 2500*time.Millisecond)
}

func TestExecuteCommand_OutputCapped(t *testing.T) {
	sb, err := New(Options{Enabled: true, TempRoot: t.TempDir(), MaxOutputBytes: 4}, nil, testLogger())
	require.NoError(t, err)

	res := sb.ExecuteCommand(context.Background(), "echo 0123456789", 0)

	assert.True(t, res.Success)
	assert.Equal(t, "0123", res.Stdout)
}

func TestExecuteCommand_NotifiesObservers(t *testing.T) {
	obs := &recordingObserver{}
	sb := newTestSandbox(t, true, nil, obs)

	sb.ExecuteCommand(context.Background(), "true", 0)
	sb.ExecuteCommand(context.Background(), "false", 0)

	execs := obs.executions()
	require.Len(t, execs, 2)
	assert.Equal(t, OutcomeSuccess, execs[0].Outcome)
	assert.Equal(t, OutcomeFailure, execs[1].Outcome)
	assert.Equal(t, 1, execs[1].ExitCode)
	assert.Equal(t, "process", execs[0].Backend)
	assert.Equal(t, sb.SessionID(), execs[0].SessionID)
}

func TestLimitedWriter(t *testing.T) {
	var buf strings.Builder
	lw := &limitedWriter{w: &buf, remaining: 5}

	n, err := lw.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = lw.Write([]byte("defgh"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = lw.Write([]byte("ij"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "abcde", buf.String())
}
