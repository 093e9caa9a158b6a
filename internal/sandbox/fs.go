package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

type FileResult struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ReadResult struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

type ListResult struct {
	Success   bool     `json:"success"`
	Directory string   `json:"directory,omitempty"`
	Files     []string `json:"files"`
	Error     string   `json:"error,omitempty"`
}

// resolve maps a caller path onto a path relative to the working directory.
// Absolute paths are re-rooted at the working directory.
func resolve(p string) (string, error) {
	rel := filepath.Clean(strings.TrimLeft(filepath.ToSlash(p), "/"))
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, p)
	}
	return rel, nil
}

// openRoot activates the sandbox on demand and opens its working directory
// as a traversal-resistant root.
func (s *Sandbox) openRoot() (*os.Root, error) {
	if !s.EnsureRunning() {
		return nil, ErrDisabled
	}
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenRoot(s.workDir)
}

func (s *Sandbox) fsError(op, path string, err error) string {
	if errors.Is(err, ErrDisabled) {
		return DisabledMessage
	}
	s.logger.Error("error in "+op, "path", path, "error", err)
	return err.Error()
}

// CreateFile writes content to path inside the working directory, creating
// parent directories and replacing any existing file.
func (s *Sandbox) CreateFile(path, content string) FileResult {
	if !s.enabled {
		return FileResult{Success: false, Error: DisabledMessage}
	}
	rel, err := resolve(path)
	if err != nil {
		return FileResult{Success: false, Error: err.Error()}
	}
	root, err := s.openRoot()
	if err != nil {
		return FileResult{Success: false, Error: s.fsError("creating file", path, err)}
	}
	defer root.Close()

	if dir := filepath.Dir(rel); dir != "." {
		if err := root.MkdirAll(dir, 0o755); err != nil {
			return FileResult{Success: false, Error: s.fsError("creating file", path, err)}
		}
	}
	if err := root.WriteFile(rel, []byte(content), 0o644); err != nil {
		return FileResult{Success: false, Error: s.fsError("creating file", path, err)}
	}
	return FileResult{Success: true, Path: filepath.Join(s.workDir, rel)}
}

func (s *Sandbox) ReadFile(path string) ReadResult {
	if !s.enabled {
		return ReadResult{Success: false, Error: DisabledMessage}
	}
	rel, err := resolve(path)
	if err != nil {
		return ReadResult{Success: false, Error: err.Error()}
	}
	root, err := s.openRoot()
	if err != nil {
		return ReadResult{Success: false, Error: s.fsError("reading file", path, err)}
	}
	defer root.Close()

	data, err := root.ReadFile(rel)
	if err != nil {
		return ReadResult{Success: false, Error: s.fsError("reading file", path, err)}
	}
	return ReadResult{Success: true, Path: filepath.Join(s.workDir, rel), Content: string(data)}
}

// ListFiles returns the sorted names of the immediate entries of dir. An
// empty dir lists the working directory itself.
func (s *Sandbox) ListFiles(dir string) ListResult {
	if !s.enabled {
		return ListResult{Success: false, Files: []string{}, Error: DisabledMessage}
	}
	rel, err := resolve(dir)
	if err != nil {
		return ListResult{Success: false, Files: []string{}, Error: err.Error()}
	}
	root, err := s.openRoot()
	if err != nil {
		return ListResult{Success: false, Files: []string{}, Error: s.fsError("listing files", dir, err)}
	}
	defer root.Close()

	f, err := root.Open(rel)
	if err != nil {
		return ListResult{Success: false, Files: []string{}, Error: s.fsError("listing files", dir, err)}
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return ListResult{Success: false, Files: []string{}, Error: s.fsError("listing files", dir, err)}
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		files = append(files, e.Name())
	}
	slices.Sort(files)

	return ListResult{Success: true, Directory: filepath.Join(s.workDir, rel), Files: files}
}
