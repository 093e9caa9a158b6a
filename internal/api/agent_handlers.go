package api

import (
	"net/http"

	"github.com/p-arndt/shellbox/protocol"
)

func (s *Server) handleRunAgent(w http.ResponseWriter, r *http.Request) {
	var req protocol.TaskRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if ferr := validateTaskRequest(req); ferr != nil {
		writeValidationError(w, ferr.Error(), ferr.details())
		return
	}
	s.logger.Info("run agent", "request_id", RequestID(r.Context()), "task", req.Task)
	writeJSON(w, http.StatusOK, s.tasks.RunTask(r.Context(), req.Task, req.AdditionalInfo))
}

func (s *Server) handleAgentStop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tasks.Stop())
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tasks.Status())
}
