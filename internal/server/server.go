// Package server exposes the turn workflow over HTTP alongside the health,
// readiness and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "shopgenie-workers/internal/common/errors"
	"shopgenie-workers/internal/common/logger"
	"shopgenie-workers/internal/models"
	runturn "shopgenie-workers/internal/workers/shopping-assistant/run-turn"
	"shopgenie-workers/internal/workflow"
	"shopgenie-workers/pkg/registry"
)

// TurnExecutor runs one conversation turn.
type TurnExecutor interface {
	Execute(ctx context.Context, input *runturn.Input, reporter workflow.Reporter) (*runturn.Output, error)
}

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

type Server struct {
	router  *mux.Router
	turns   TurnExecutor
	checks  map[string]Checker
	reg     *registry.ActivityRegistry
	logger  logger.Logger
	httpSrv *http.Server
}

type Option func(*Server)

// WithRegistry serves the activity registry under /api/v1/activities.
func WithRegistry(reg *registry.ActivityRegistry) Option {
	return func(s *Server) { s.reg = reg }
}

// WithCheck adds a named readiness check.
func WithCheck(name string, check Checker) Option {
	return func(s *Server) { s.checks[name] = check }
}

func New(addr string, turns TurnExecutor, log logger.Logger, opts ...Option) *Server {
	s := &Server{
		router: mux.NewRouter(),
		turns:  turns,
		checks: map[string]Checker{},
		logger: log.With(map[string]interface{}{"component": "http"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           corsMiddleware(s.router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/turns", s.handleTurn).Methods(http.MethodPost)
	api.HandleFunc("/turns/stream", s.handleTurnStream).Methods(http.MethodPost)
	if s.reg != nil {
		api.HandleFunc("/activities", s.handleActivities).Methods(http.MethodGet)
		api.HandleFunc("/activities/{taskType}", s.handleActivity).Methods(http.MethodGet)
	}
}

// Handler returns the routed handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", map[string]interface{}{"address": s.httpSrv.Addr})
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	s.sendJSON(w, status, map[string]interface{}{"status": state, "checks": results})
}

func (s *Server) handleActivities(w http.ResponseWriter, _ *http.Request) {
	s.sendJSON(w, http.StatusOK, s.reg)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	taskType := mux.Vars(r)["taskType"]
	activity, ok := s.reg.Lookup(taskType)
	if !ok {
		s.sendJSON(w, http.StatusNotFound, errorResponse{Error: "Unknown task type", Code: "NOT_FOUND", Details: taskType})
		return
	}
	s.sendJSON(w, http.StatusOK, activity)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	input, ok := s.decodeTurn(w, r)
	if !ok {
		return
	}

	output, err := s.turns.Execute(r.Context(), input, nil)
	if err != nil {
		s.sendTurnError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, output)
}

// streamEvent is one line of the newline-delimited stream response.
type streamEvent struct {
	Type   string               `json:"type"` // status | result | error
	Status *models.StatusUpdate `json:"status,omitempty"`
	Result *runturn.Output      `json:"result,omitempty"`
	Error  *errorResponse       `json:"error,omitempty"`
}

// handleTurnStream writes each status update as it happens, then the result.
func (s *Server) handleTurnStream(w http.ResponseWriter, r *http.Request) {
	input, ok := s.decodeTurn(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	emit := func(ev streamEvent) {
		if err := enc.Encode(ev); err != nil {
			s.logger.Warn("failed to write stream event", map[string]interface{}{"error": err.Error()})
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	reporter := workflow.ReporterFunc(func(update models.StatusUpdate) {
		u := update
		emit(streamEvent{Type: "status", Status: &u})
	})

	output, err := s.turns.Execute(r.Context(), input, reporter)
	if err != nil {
		_, body := turnErrorResponse(err)
		emit(streamEvent{Type: "error", Error: body})
		return
	}
	emit(streamEvent{Type: "result", Result: output})
}

func (s *Server) decodeTurn(w http.ResponseWriter, r *http.Request) (*runturn.Input, bool) {
	var input runturn.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.logger.Warn("invalid turn request", map[string]interface{}{"error": err.Error()})
		s.sendJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Invalid request body",
			Code:    string(apperrors.ErrCodeInvalidInput),
			Details: err.Error(),
		})
		return nil, false
	}
	return &input, true
}

func (s *Server) sendTurnError(w http.ResponseWriter, err error) {
	status, body := turnErrorResponse(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("turn failed", map[string]interface{}{"code": body.Code, "error": body.Details})
	}
	s.sendJSON(w, status, body)
}

func turnErrorResponse(err error) (int, *errorResponse) {
	stdErr := apperrors.Normalize(err)
	status := http.StatusBadGateway
	switch stdErr.Code {
	case apperrors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case apperrors.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	case apperrors.ErrCodeInternal:
		status = http.StatusInternalServerError
	}
	return status, &errorResponse{
		Error:   stdErr.Message,
		Code:    string(stdErr.Code),
		Details: stdErr.Details,
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}
