// Package server exposes the risk predictor over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"heart-risk-workers/internal/common/errors"
	"heart-risk-workers/internal/common/logger"
	"heart-risk-workers/internal/models"
	"heart-risk-workers/internal/predictor"
)

const maxBodyBytes = 1 << 20

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

// PredictionLookup reads stored predictions.
type PredictionLookup interface {
	Get(ctx context.Context, id string) (*models.PredictionRecord, error)
}

type Options struct {
	Pipeline    *predictor.Pipeline
	Predictions PredictionLookup
	ReadyChecks map[string]ReadyCheck
	Logger      logger.Logger
}

type Server struct {
	router      chi.Router
	pipeline    *predictor.Pipeline
	predictions PredictionLookup
	readyChecks map[string]ReadyCheck
	logger      logger.Logger
}

func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	s := &Server{
		router:      chi.NewRouter(),
		pipeline:    opts.Pipeline,
		predictions: opts.Predictions,
		readyChecks: opts.ReadyChecks,
		logger:      log.WithFields(map[string]interface{}{"component": "http"}),
	}
	s.routes()
	return s
}

// Handler returns the router wrapped with server spans.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "heart-risk-api")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			s.logger.Debug("request", map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).String(),
				"remote":   r.RemoteAddr,
			})
		})
	})

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/predict", s.handlePredict)
		r.Get("/survey/schema", s.handleSurveySchema)
		r.Get("/model", s.handleModel)
		r.Get("/predictions/{id}", s.handleGetPrediction)
	})
}

// NewHTTPServer binds handler to addr with the configured timeouts.
func NewHTTPServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := errors.AsStandardError(err)
	status := StatusFor(stdErr.Code)
	fields := map[string]interface{}{
		"status":    status,
		"errorCode": string(stdErr.Code),
		"error":     err.Error(),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields)
	} else {
		s.logger.Warn("request failed", fields)
	}
	writeJSON(w, status, map[string]interface{}{"error": errorBody{
		Code:     string(stdErr.Code),
		Message:  stdErr.Message,
		Details:  stdErr.Details,
		Metadata: stdErr.Metadata,
	}})
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeOutOfDomainInput:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeInvalidInput, errors.ErrCodeParseError:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInferenceFailed:
		return http.StatusBadGateway
	case errors.ErrCodePredictionPersistFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
