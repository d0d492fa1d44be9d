// Package server exposes the pipeline over HTTP: POST /api/query runs one
// turn, /healthz reports liveness, /metrics serves Prometheus.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledger-assistant/internal/common/config"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/ledger"
	"ledger-assistant/internal/orchestrator"
)

type Server struct {
	pipeline *orchestrator.Pipeline
	store    *ledger.Store
	logger   logger.Logger
	httpSrv  *http.Server
}

func New(pipeline *orchestrator.Pipeline, store *ledger.Store, cfg config.ServerConfig, log logger.Logger) *Server {
	s := &Server{
		pipeline: pipeline,
		store:    store,
		logger:   log.WithFields(map[string]interface{}{"component": "http-server"}),
	}
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Millisecond,
	}
	return s
}

// QueryRequest is the POST /api/query body. SessionID may be empty; the
// response carries the (possibly minted) id to send on the next turn.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	start := time.Now()
	resp := s.pipeline.HandleTurn(r.Context(), req.SessionID, req.Query)
	s.logger.Info("turn handled", map[string]interface{}{
		"session_id":  resp.SessionID,
		"intent":      string(resp.Intent),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"ledger_records": s.store.Len(),
		"time":           time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("response encode failed", nil)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("listening", map[string]interface{}{"addr": s.httpSrv.Addr})
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
