package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/divitsinghall/Vortex/internal/model"
	"github.com/divitsinghall/Vortex/internal/store"
)

// maxSourceSize bounds deploy request bodies.
const maxSourceSize = 1 << 20 // 1 MB

// deployRequest is the JSON body for POST /deploy. The legacy key "code"
// is accepted as an alias for "source".
type deployRequest struct {
	Source string `json:"source"`
	Code   string `json:"code"`
}

// deployResponse is the JSON response for POST /deploy.
type deployResponse struct {
	FunctionID string `json:"function_id"`
}

// executeResponse is the JSON response for POST /execute/{functionID}.
type executeResponse struct {
	Output          model.ReturnValue `json:"output"`
	Logs            []model.LogEvent  `json:"logs"`
	ExecutionTimeMs int64             `json:"execution_time_ms"`
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req deployRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxSourceSize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	source := req.Source
	if source == "" {
		source = req.Code
	}
	if source == "" {
		s.writeError(w, http.StatusBadRequest, "source cannot be empty")
		return
	}

	functionID := model.NewFunctionID()
	if err := s.store.Save(r.Context(), functionID, source); err != nil {
		s.logger.Error("save function", "function_id", functionID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store function")
		return
	}

	s.logger.Info("function deployed", "function_id", functionID, "bytes", len(source))
	s.writeJSON(w, http.StatusCreated, deployResponse{FunctionID: functionID})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	functionID := chi.URLParam(r, "functionID")
	if functionID == "" {
		s.writeError(w, http.StatusBadRequest, "missing function id")
		return
	}

	source, err := s.store.Get(r.Context(), functionID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "function not found")
		return
	}
	if err != nil {
		s.logger.Error("get function", "function_id", functionID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to retrieve function")
		return
	}

	exec, err := s.engine.Execute(r.Context(), functionID, source)
	if err != nil {
		kind := model.KindOf(err)
		if kind == model.KindAborted {
			// The caller is gone; there is nobody to respond to.
			return
		}
		s.writeError(w, kind.HTTPStatus(), err.Error())
		return
	}

	logs := exec.Logs
	if logs == nil {
		logs = []model.LogEvent{}
	}
	s.writeJSON(w, http.StatusOK, executeResponse{
		Output:          exec.Return,
		Logs:            logs,
		ExecutionTimeMs: exec.Elapsed.Milliseconds(),
	})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
