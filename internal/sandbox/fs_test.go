package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndReadFile(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	created := sb.CreateFile("notes/todo.txt", "hello")
	require.True(t, created.Success, created.Error)
	assert.Equal(t, filepath.Join(sb.WorkingDir(), "notes", "todo.txt"), created.Path)
	assert.True(t, sb.IsRunning(), "file operations start the sandbox")

	read := sb.ReadFile("notes/todo.txt")
	require.True(t, read.Success, read.Error)
	assert.Equal(t, "hello", read.Content)
	assert.Equal(t, created.Path, read.Path)
}

func TestCreateFile_Overwrites(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	require.True(t, sb.CreateFile("a.txt", "first").Success)
	require.True(t, sb.CreateFile("a.txt", "second").Success)

	assert.Equal(t, "second", sb.ReadFile("a.txt").Content)
}

func TestCreateFile_AbsolutePathIsContained(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	res := sb.CreateFile("/etc/shellbox-test.conf", "x")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, filepath.Join(sb.WorkingDir(), "etc", "shellbox-test.conf"), res.Path)
}

func TestFileOps_RejectTraversal(t *testing.T) {
	sb := newTestSandbox(t, true, nil)
	outside := filepath.Join(filepath.Dir(sb.WorkingDir()), "escaped.txt")

	for _, p := range []string{"../escaped.txt", "a/../../escaped.txt", "/../escaped.txt"} {
		res := sb.CreateFile(p, "nope")
		assert.False(t, res.Success, p)
		assert.Contains(t, res.Error, "escapes", p)

		read := sb.ReadFile(p)
		assert.False(t, read.Success, p)

		list := sb.ListFiles(p)
		assert.False(t, list.Success, p)
	}

	_, err := os.Stat(outside)
	assert.True(t, os.IsNotExist(err))
}

func TestReadFile_SymlinkEscapeRejected(t *testing.T) {
	sb := newTestSandbox(t, true, nil)
	secret := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o644))
	require.NoError(t, os.Symlink(secret, filepath.Join(sb.WorkingDir(), "link.txt")))

	res := sb.ReadFile("link.txt")

	assert.False(t, res.Success)
	assert.Empty(t, res.Content)
}

func TestReadFile_NotFound(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	res := sb.ReadFile("missing.txt")

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestListFiles(t *testing.T) {
	sb := newTestSandbox(t, true, nil)
	require.True(t, sb.CreateFile("b.txt", "").Success)
	require.True(t, sb.CreateFile("a.txt", "").Success)
	require.True(t, sb.CreateFile("sub/c.txt", "").Success)

	res := sb.ListFiles("")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"a.txt", "b.txt", "sub"}, res.Files)
	assert.Equal(t, sb.WorkingDir(), res.Directory)

	sub := sb.ListFiles("sub")
	require.True(t, sub.Success)
	assert.Equal(t, []string{"c.txt"}, sub.Files)
}

func TestListFiles_Missing(t *testing.T) {
	sb := newTestSandbox(t, true, nil)

	res := sb.ListFiles("nope")

	assert.False(t, res.Success)
	assert.NotNil(t, res.Files)
}

func TestFileOps_Disabled(t *testing.T) {
	sb := newTestSandbox(t, false, nil)

	assert.Equal(t, FileResult{Success: false, Error: DisabledMessage}, sb.CreateFile("a.txt", "x"))
	assert.Equal(t, ReadResult{Success: false, Error: DisabledMessage}, sb.ReadFile("a.txt"))
	assert.Equal(t, DisabledMessage, sb.ListFiles("").Error)

	_, err := os.Stat(sb.WorkingDir())
	assert.True(t, os.IsNotExist(err))
}
