package api

import (
	"net/http"

	"github.com/p-arndt/shellbox/protocol"
)

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req protocol.ExecuteRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if ferr := validateExecuteRequest(req, s.cfg.Sandbox.MaxTimeoutSeconds); ferr != nil {
		writeValidationError(w, ferr.Error(), ferr.details())
		return
	}

	s.logger.Debug("execute", "request_id", RequestID(r.Context()), "command", req.Command, "timeout", int(req.Timeout))
	result := s.sandbox.ExecuteCommand(r.Context(), req.Command, int(req.Timeout))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSandboxStart(w http.ResponseWriter, r *http.Request) {
	if !s.sandbox.Start() {
		writeJSON(w, http.StatusOK, protocol.OKResponse{Success: false, Message: "Sandbox is disabled"})
		return
	}
	writeJSON(w, http.StatusOK, protocol.OKResponse{Success: true, Message: "Sandbox started"})
}

func (s *Server) handleSandboxStop(w http.ResponseWriter, r *http.Request) {
	s.sandbox.Stop()
	writeJSON(w, http.StatusOK, protocol.OKResponse{Success: true, Message: "Sandbox stopped"})
}

func (s *Server) handleSandboxStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sandbox.Info())
}

func (s *Server) handleWriteFile(w http.ResponseWriter, r *http.Request) {
	var req protocol.FileWriteRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if ferr := validateFileWriteRequest(req); ferr != nil {
		writeValidationError(w, ferr.Error(), ferr.details())
		return
	}
	writeJSON(w, http.StatusOK, s.sandbox.CreateFile(req.Path, req.Content))
}

func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeValidationError(w, "Path is required", map[string]any{"field": "path"})
		return
	}
	writeJSON(w, http.StatusOK, s.sandbox.ReadFile(path))
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sandbox.ListFiles(r.URL.Query().Get("directory")))
}
