// Package web serves the settings and status endpoints used by the UI.
package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/p-arndt/shellbox/internal/config"
	"github.com/p-arndt/shellbox/internal/sandbox"
	"github.com/p-arndt/shellbox/protocol"
)

const maxSettingsBodyBytes int64 = 1 << 20

// StatusSource reports the live sandbox.
type StatusSource interface {
	Info() sandbox.Info
}

type Handler struct {
	settings  *SettingsFile
	sandbox   StatusSource
	logger    *slog.Logger
	startTime time.Time
}

func NewHandler(settings *SettingsFile, sb StatusSource, logger *slog.Logger) *Handler {
	return &Handler{
		settings:  settings,
		sandbox:   sb,
		logger:    logger,
		startTime: time.Now(),
	}
}

// GetStatus reports uptime and the sandbox state.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	info := h.sandbox.Info()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"session_id":     info.SessionID,
		"sandbox":        info,
	})
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	doc, err := h.settings.Load()
	if err != nil {
		h.logger.Warn("using default settings", "path", h.settings.Path(), "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"config": doc})
}

// UpdateConfig merges the posted top-level sections into the settings file.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if err := decodeBody(w, r, &updates); err != nil {
		writeError(w, http.StatusBadRequest, protocol.CodeInvalidRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(updates) > 0 {
		if _, err := h.settings.Merge(updates); err != nil {
			h.logger.Error("saving settings", "path", h.settings.Path(), "error", err)
			writeError(w, http.StatusInternalServerError, protocol.CodeInternalError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, protocol.OKResponse{Success: true, Message: "Configuration saved successfully"})
}

// GetSandboxSettings returns the settings the running sandbox was built with.
func (h *Handler) GetSandboxSettings(w http.ResponseWriter, r *http.Request) {
	info := h.sandbox.Info()
	writeJSON(w, http.StatusOK, protocol.SandboxSettingsResponse{
		Settings: protocol.SandboxSettings{
			Enabled: info.Enabled,
			User:    info.User,
			Timeout: info.TimeoutSeconds,
		},
	})
}

// UpdateSandboxSettings persists sandbox settings. They apply on the next
// start of the service.
func (h *Handler) UpdateSandboxSettings(w http.ResponseWriter, r *http.Request) {
	var o config.SandboxOverrides
	if err := decodeBody(w, r, &o); err != nil {
		writeError(w, http.StatusBadRequest, protocol.CodeInvalidRequest, "invalid JSON: "+err.Error())
		return
	}
	if o.Timeout != nil && *o.Timeout < 1 {
		writeError(w, http.StatusBadRequest, protocol.CodeInvalidRequest, "timeout must be at least 1 second")
		return
	}
	if _, err := h.settings.SaveSandbox(o); err != nil {
		h.logger.Error("saving sandbox settings", "path", h.settings.Path(), "error", err)
		writeError(w, http.StatusInternalServerError, protocol.CodeInternalError, err.Error())
		return
	}
	h.logger.Info("sandbox settings saved", "path", h.settings.Path())
	writeJSON(w, http.StatusOK, protocol.OKResponse{Success: true, Message: "Sandbox settings saved successfully"})
}

// Settings sections editable through /api/settings/{section}.
const (
	SectionLLM     = "llm"
	SectionBrowser = "browser"
)

var sectionLabels = map[string]string{
	SectionLLM:     "LLM",
	SectionBrowser: "Browser",
}

// llmModels lists the models offered per provider, in display order.
var llmModels = map[string][]string{
	"openai":    {"gpt-3.5-turbo", "gpt-4", "gpt-4o"},
	"ollama":    {"llama2", "mistral", "mixtral"},
	"anthropic": {"claude-2", "claude-instant", "claude-3-opus"},
	"google":    {"gemini-pro", "gemini-ultra"},
	"azure":     {"gpt-4", "gpt-3.5-turbo"},
	"custom":    {"custom-model"},
}

var llmProviders = []string{"openai", "ollama", "anthropic", "google", "azure", "custom"}

// GetSectionSettings returns one section of the settings document.
func (h *Handler) GetSectionSettings(section string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := h.settings.Section(section)
		if err != nil {
			h.logger.Warn("using default settings", "path", h.settings.Path(), "section", section, "error", err)
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
	}
}

// UpdateSectionSettings merges the posted keys into one section.
func (h *Handler) UpdateSectionSettings(section string) http.HandlerFunc {
	label := sectionLabels[section]
	if label == "" {
		label = section
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var updates map[string]any
		if err := decodeBody(w, r, &updates); err != nil {
			writeError(w, http.StatusBadRequest, protocol.CodeInvalidRequest, "invalid JSON: "+err.Error())
			return
		}
		if updates == nil {
			writeError(w, http.StatusBadRequest, protocol.CodeInvalidRequest, "settings must be a JSON object")
			return
		}
		if _, err := h.settings.MergeSection(section, updates); err != nil {
			h.logger.Error("saving settings", "path", h.settings.Path(), "section", section, "error", err)
			writeError(w, http.StatusInternalServerError, protocol.CodeInternalError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, protocol.OKResponse{Success: true, Message: label + " settings saved successfully"})
	}
}

func (h *Handler) GetLLMProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": llmProviders})
}

// GetLLMModels lists the models for ?provider=. Unknown providers get an
// empty list.
func (h *Handler) GetLLMModels(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		writeError(w, http.StatusBadRequest, protocol.CodeInvalidRequest, "provider query parameter is required")
		return
	}
	models := llmModels[strings.ToLower(provider)]
	if models == nil {
		models = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxSettingsBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, protocol.ErrorResponse{Detail: msg, Code: code})
}
