package reaper

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/p-arndt/shellbox/internal/sandbox"
)

// HostRuntime checks owner processes and deletes working directories on the
// local machine. It refuses to delete anything that is not a session working
// directory directly under Root.
type HostRuntime struct {
	Root string
}

func NewHostRuntime(root string) *HostRuntime {
	if root == "" {
		root = os.TempDir()
	}
	return &HostRuntime{Root: filepath.Clean(root)}
}

func (h *HostRuntime) IsAlive(pid int) bool {
	return sandbox.ProcessAlive(pid)
}

func (h *HostRuntime) RemoveWorkDir(dir string) error {
	dir = filepath.Clean(dir)
	if filepath.Dir(dir) != h.Root || !sandbox.IsWorkDirName(filepath.Base(dir)) {
		return fmt.Errorf("refusing to remove %s: not a sandbox working directory under %s", dir, h.Root)
	}
	return os.RemoveAll(dir)
}
