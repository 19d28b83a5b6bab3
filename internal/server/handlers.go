package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/counselhq/counsel/internal/answer"
	"github.com/counselhq/counsel/internal/extract"
	"github.com/counselhq/counsel/internal/llm"
	"github.com/counselhq/counsel/internal/models"
	"go.uber.org/zap"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request", zap.String("provider", req.Provider))
	resp, err := s.service.Ask(r.Context(), req)
	if err != nil {
		if isClientError(err) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type bulkRequest struct {
	Questions []string `json:"questions"`
	Provider  string   `json:"llm_provider"`
}

func (s *Server) handleBulkQuestions(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("bulk request", zap.Int("questions", len(req.Questions)))
	items, err := s.service.Bulk(r.Context(), req.Questions, req.Provider)
	if err != nil {
		if isClientError(err) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("bulk failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results":         items,
		"total_questions": len(req.Questions),
		"processed":       len(items),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, ready := s.service.Status()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ready":            ready,
		"documents_loaded": status.DocumentsLoaded,
		"chunks_created":   status.ChunksCreated,
		"last_updated":     status.LastUpdated,
	})
}

func (s *Server) handleSearchCapabilities(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.service.Capabilities(extract.SupportedExtensions))
}

func (s *Server) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	s.service.ClearMemory()
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Conversation memory cleared"})
}

func (s *Server) handleMemoryStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.service.MemoryStatus())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// isClientError reports whether err is the caller's fault rather than ours.
func isClientError(err error) bool {
	return errors.Is(err, answer.ErrInvalidRequest) || errors.Is(err, llm.ErrUnsupportedProvider)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
