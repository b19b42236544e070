package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"heart-risk-workers/internal/common/errors"
	"heart-risk-workers/internal/survey"
)

const apiSource = "api"

type predictRequest struct {
	RespondentID string          `json:"respondentId"`
	Survey       json.RawMessage `json:"survey"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.NewParseError(err))
		return
	}
	if len(req.Survey) == 0 || string(req.Survey) == "null" {
		s.writeError(w, errors.NewInvalidInputError("survey is required"))
		return
	}

	rec, err := survey.DecodeJSON(req.Survey)
	if err != nil {
		s.writeError(w, err)
		return
	}

	assessment, err := s.pipeline.Assess(r.Context(), req.RespondentID, rec, apiSource)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

func (s *Server) handleSurveySchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, survey.Schema())
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Predictor().Info())
}

func (s *Server) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	if s.predictions == nil {
		s.writeError(w, errors.NewResourceNotFoundError("predictions", "prediction storage is not enabled"))
		return
	}
	rec, err := s.predictions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.readyChecks))
	ready := true
	for name, check := range s.readyChecks {
		if err := check(ctx); err != nil {
			checks[name] = fmt.Sprintf("unavailable: %v", err)
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
		"time":   time.Now().Format(time.RFC3339),
	})
}
