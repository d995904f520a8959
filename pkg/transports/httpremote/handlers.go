package httpremote

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openlro/openlro/pkg/lro"
)

const maxBodySize = 1 << 20 // 1 MB

// startOperationRequest is the JSON body for POST /v1/operations.
type startOperationRequest struct {
	Payload string `json:"payload"`
}

// startOperationResponse acknowledges an accepted submission.
type startOperationResponse struct {
	Handle string `json:"handle"`
}

// statusResponse reports the current status of an operation.
type statusResponse struct {
	Handle string `json:"handle"`
	Status string `json:"status"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleStartOperation(w http.ResponseWriter, r *http.Request) {
	var req startOperationRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Payload == "" {
		s.writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	handle, err := s.remote.Start(r.Context(), req.Payload)
	if err != nil {
		s.logger.WithError(err).Error("start operation")
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to start operation: %v", err))
		return
	}

	s.writeJSON(w, http.StatusAccepted, startOperationResponse{Handle: string(handle)})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	handle := lro.OperationHandle(chi.URLParam(r, "handle"))

	status, err := s.remote.GetStatus(r.Context(), handle)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, statusResponse{Handle: string(handle), Status: string(status)})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	handle := lro.OperationHandle(chi.URLParam(r, "handle"))

	result, err := s.remote.GetResult(r.Context(), handle)
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result); err != nil {
		s.logger.WithError(err).Error("write result")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("encode response")
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
