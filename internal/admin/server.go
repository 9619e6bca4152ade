package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the live view of a run served on /admin/v1/status.
type Status struct {
	RunID            string  `json:"run_id"`
	Scenario         string  `json:"scenario,omitempty"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	Phase            string  `json:"phase,omitempty"`
	CurrentTPS       float64 `json:"current_tps"`
	StableTPS        float64 `json:"stable_tps"`
	PhaseTransitions int64   `json:"phase_transitions"`
	Executions       int64   `json:"executions"`
	Failures         int64   `json:"failures"`
	FailureRatePct   float64 `json:"failure_rate_pct"`
	Pending          int64   `json:"pending"`
	Dropped          int64   `json:"dropped"`
	Rejected         int64   `json:"rejected"`
}

// StatusProvider supplies the current run status. In production this is
// satisfied by the binary's wiring over engine, collector and pattern;
// tests can provide a fixed snapshot.
type StatusProvider interface {
	Status() Status
}

// StatusFunc adapts a function into a StatusProvider.
type StatusFunc func() Status

func (f StatusFunc) Status() Status { return f() }

// Server provides the operational HTTP surface for a run: health and
// status probes, the Prometheus scrape endpoint, and an authenticated-by
// -network stop control.
type Server struct {
	port      int
	status    StatusProvider
	stop      func()
	logger    *slog.Logger
	rateLimit *RateLimitMiddleware
}

// NewServer creates an admin server. stop may be nil to disable the stop
// endpoint.
func NewServer(port int, status StatusProvider, stop func(), logger *slog.Logger) *Server {
	return &Server{
		port:      port,
		status:    status,
		stop:      stop,
		logger:    logger.With("component", "admin"),
		rateLimit: NewRateLimitMiddleware(logger),
	}
}

// Handler returns the HTTP handler for the admin API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /admin/v1/status", s.handleStatus)
	mux.HandleFunc("POST /admin/v1/stop", s.handleStop)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.rateLimit.Wrap(AuditMiddleware(s.logger, mux))
}

// Run serves the admin API until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.rateLimit.Stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("admin server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		s.rateLimit.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("admin server: %w", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status.Status()); err != nil {
		s.logger.Error("encode status response", "error", err)
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if s.stop == nil {
		http.Error(w, `{"error":"stop not supported"}`, http.StatusNotImplemented)
		return
	}
	s.logger.Warn("stop requested via admin API", "remote_addr", r.RemoteAddr)
	s.stop()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"stopping"}`))
}
