package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"ccsim/pkg/config"
	"ccsim/pkg/logging"
	"ccsim/pkg/scheduler"
)

// Server exposes the simulator over HTTP with the request and response shape
// the browser client uses:
//
//	POST /twophase  {"input_seq": "R1(A)W2(A)C1;C2"}
//	POST /occ       {"input_seq": "..."}
//	POST /simulate  {"algorithm": "occ", "input_seq": "...", "aborted_policy": "flag"}
//	GET  /healthz
//	GET  /metrics
type Server struct {
	config   config.ServerConfig
	defaults scheduler.Options
	fallback scheduler.Algorithm
	metrics  *Metrics
	log      *slog.Logger
	started  time.Time
	handler  http.Handler
}

// New builds a server from cfg. It does not listen until ListenAndServe.
func New(cfg *config.Config) *Server {
	s := &Server{
		config:   cfg.Server,
		defaults: cfg.Simulation,
		fallback: cfg.DefaultAlgorithm(),
		metrics:  NewMetrics(),
		log:      logging.WithComponent("server"),
		started:  time.Now(),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /twophase", s.handleAlgorithm(scheduler.TwoPhaseLocking))
	mux.HandleFunc("POST /occ", s.handleAlgorithm(scheduler.Optimistic))
	mux.HandleFunc("POST /simulate", s.handleSimulate)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.config.EnableMetrics {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return s.withRecovery(s.withRequestID(s.withCORS(s.withLogging(mux))))
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Address, fmt.Sprint(s.config.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr, "metrics", s.config.EnableMetrics)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
