// Package server provides the HTTP trigger surface called by the automation host.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/interview-dispatch/internal/dispatch"
	"github.com/jonathan/interview-dispatch/internal/mailer"
	"github.com/jonathan/interview-dispatch/internal/records"
	"github.com/jonathan/interview-dispatch/internal/server/ratelimit"
	"github.com/jonathan/interview-dispatch/internal/splitter"
)

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	store       records.Client
	splitter    *splitter.Splitter
	dispatcher  *dispatch.Dispatcher
	scheduler   *dispatch.Scheduler
	rateLimiter *ratelimit.Limiter
}

// Config holds server configuration
type Config struct {
	Port   int
	Store  records.Client
	Sender mailer.Sender

	Split     splitter.Options
	Dispatch  dispatch.Options
	Scheduler dispatch.SchedulerOptions

	// RateLimit overrides the environment-derived rate limit configuration.
	RateLimit *ratelimit.Config
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("server requires a record store")
	}
	if cfg.Sender == nil {
		return nil, fmt.Errorf("server requires an email sender")
	}

	rlConfig := cfg.RateLimit
	if rlConfig == nil {
		var err error
		if rlConfig, err = ratelimit.LoadConfig(); err != nil {
			return nil, err
		}
	}

	dispatcher := dispatch.New(cfg.Sender, cfg.Store, cfg.Dispatch)
	s := &Server{
		store:       cfg.Store,
		splitter:    splitter.New(cfg.Store, cfg.Split),
		dispatcher:  dispatcher,
		scheduler:   dispatch.NewScheduler(cfg.Store, dispatcher, cfg.Scheduler),
		rateLimiter: ratelimit.NewLimiter(rlConfig),
	}

	// Setup router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /split", s.handleSplit)
	mux.HandleFunc("POST /dispatch", s.handleDispatch)
	mux.HandleFunc("POST /dispatch/pending", s.handleDispatchPending)
	mux.HandleFunc("GET /records", s.handleListRecords)

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for bulk dispatch
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens until SIGINT or SIGTERM, then drains in-flight requests.
func (s *Server) Start() error {
	defer s.rateLimiter.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

// Close stops background work without serving. Used when Start is never called.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
