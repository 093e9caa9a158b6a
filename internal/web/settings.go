package web

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/p-arndt/shellbox/internal/config"
)

const sandboxSection = "sandbox"

// DefaultSettings is the UI document served when no settings file exists.
func DefaultSettings() map[string]any {
	return map[string]any{
		"llm": map[string]any{
			"provider":    "openai",
			"model":       "gpt-3.5-turbo",
			"temperature": 0.7,
		},
		"browser": map[string]any{
			"headless":           false,
			"record_video":       false,
			"persistent_session": false,
		},
		"ui": map[string]any{
			"theme":        "light",
			"show_browser": true,
		},
	}
}

// SettingsFile is the JSON settings document edited from the UI.
type SettingsFile struct {
	path string
	mu   sync.Mutex
}

func NewSettingsFile(path string) *SettingsFile {
	return &SettingsFile{path: path}
}

func (f *SettingsFile) Path() string { return f.path }

// Load returns the stored document. A missing file yields the defaults; an
// unreadable one yields the defaults together with the error. Writers refuse
// to touch a file Load cannot parse.
func (f *SettingsFile) Load() (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *SettingsFile) load() (map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return DefaultSettings(), fmt.Errorf("reading settings: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		if err == nil {
			err = fmt.Errorf("settings file is not a JSON object")
		}
		return DefaultSettings(), fmt.Errorf("parsing settings %s: %w", f.path, err)
	}
	return doc, nil
}

// Merge replaces the given top-level sections and writes the document back.
func (f *SettingsFile) Merge(updates map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	maps.Copy(doc, updates)
	if err := f.write(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Section returns one top-level section of the document. A missing or
// non-object section yields an empty map.
func (f *SettingsFile) Section(name string) (map[string]any, error) {
	doc, err := f.Load()
	section, _ := doc[name].(map[string]any)
	if section == nil {
		section = map[string]any{}
	}
	return section, err
}

// MergeSection updates keys inside one section, leaving the other keys of
// that section in place.
func (f *SettingsFile) MergeSection(name string, updates map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	section, _ := doc[name].(map[string]any)
	if section == nil {
		section = make(map[string]any, len(updates))
	}
	maps.Copy(section, updates)
	doc[name] = section
	if err := f.write(doc); err != nil {
		return nil, err
	}
	return section, nil
}

// SandboxOverrides returns the saved sandbox section.
func (f *SettingsFile) SandboxOverrides() (config.SandboxOverrides, error) {
	doc, err := f.Load()
	if err != nil {
		return config.SandboxOverrides{}, err
	}
	return sandboxSectionOf(doc)
}

// SaveSandbox merges o into the saved sandbox section.
func (f *SettingsFile) SaveSandbox(o config.SandboxOverrides) (config.SandboxOverrides, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return config.SandboxOverrides{}, err
	}
	current, err := sandboxSectionOf(doc)
	if err != nil {
		return config.SandboxOverrides{}, err
	}
	if o.Enabled != nil {
		current.Enabled = o.Enabled
	}
	if o.User != nil {
		current.User = o.User
	}
	if o.Timeout != nil {
		current.Timeout = o.Timeout
	}
	doc[sandboxSection] = current
	if err := f.write(doc); err != nil {
		return config.SandboxOverrides{}, err
	}
	return current, nil
}

func sandboxSectionOf(doc map[string]any) (config.SandboxOverrides, error) {
	var o config.SandboxOverrides
	raw, ok := doc[sandboxSection]
	if !ok {
		return o, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(data, &o); err != nil {
		return config.SandboxOverrides{}, fmt.Errorf("parsing sandbox settings: %w", err)
	}
	return o, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (f *SettingsFile) write(doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("creating temp settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}
