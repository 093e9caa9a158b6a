package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/p-arndt/shellbox/internal/config"
	"github.com/p-arndt/shellbox/internal/metrics"
	"github.com/p-arndt/shellbox/internal/web"
)

type Server struct {
	cfg        *config.Config
	sandbox    SandboxService
	tasks      TaskRunner
	webHandler *web.Handler
	metrics    *metrics.Collector
	limiter    *rate.Limiter
	logger     *slog.Logger
	mux        *http.ServeMux
}

// NewServer wires the routes. collector may be nil, in which case no
// metrics are recorded and /metrics is not served.
func NewServer(cfg *config.Config, sb SandboxService, tasks TaskRunner, webHandler *web.Handler, collector *metrics.Collector, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		sandbox:    sb,
		tasks:      tasks,
		webHandler: webHandler,
		metrics:    collector,
		limiter:    newLimiter(cfg.RateLimit),
		logger:     logger,
		mux:        http.NewServeMux(),
	}
	s.routes()
	return s
}

func newLimiter(rl config.RateLimitConfig) *rate.Limiter {
	if rl.RequestsPerSecond <= 0 {
		return nil
	}
	burst := rl.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), burst)
}

// Handler returns the mux wrapped in middleware. Metrics wrap the mux
// directly so the matched route pattern is visible to them.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.metrics != nil {
		h = s.metrics.Middleware(h)
	}
	return s.requestIDMiddleware(s.recoverMiddleware(h))
}

func (s *Server) routes() {
	// Sandbox
	s.mux.HandleFunc("POST /api/sandbox/execute", s.rateLimited(s.handleExecute))
	s.mux.HandleFunc("POST /api/sandbox/start", s.handleSandboxStart)
	s.mux.HandleFunc("POST /api/sandbox/stop", s.handleSandboxStop)
	s.mux.HandleFunc("GET /api/sandbox/status", s.handleSandboxStatus)
	s.mux.HandleFunc("POST /api/sandbox/files", s.handleWriteFile)
	s.mux.HandleFunc("GET /api/sandbox/files", s.handleReadFile)
	s.mux.HandleFunc("GET /api/sandbox/files/list", s.handleListFiles)

	// Agent
	s.mux.HandleFunc("POST /api/run-agent", s.rateLimited(s.handleRunAgent))
	s.mux.HandleFunc("POST /api/agent/stop", s.handleAgentStop)
	s.mux.HandleFunc("GET /api/agent/status", s.handleAgentStatus)

	// Settings and status
	s.mux.HandleFunc("GET /api/settings/sandbox", s.webHandler.GetSandboxSettings)
	s.mux.HandleFunc("POST /api/settings/sandbox", s.webHandler.UpdateSandboxSettings)
	for _, section := range []string{web.SectionLLM, web.SectionBrowser} {
		s.mux.HandleFunc("GET /api/settings/"+section, s.webHandler.GetSectionSettings(section))
		s.mux.HandleFunc("POST /api/settings/"+section, s.webHandler.UpdateSectionSettings(section))
	}
	s.mux.HandleFunc("GET /api/llm/providers", s.webHandler.GetLLMProviders)
	s.mux.HandleFunc("GET /api/llm/models", s.webHandler.GetLLMModels)
	s.mux.HandleFunc("GET /api/config", s.webHandler.GetConfig)
	s.mux.HandleFunc("POST /api/config", s.webHandler.UpdateConfig)
	s.mux.HandleFunc("GET /api/status", s.webHandler.GetStatus)

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
