// File: internal/control/server.go
// Package control is the HTTP front-end of a running assistant: push-to-talk
// press and release, session status, health and metrics.
package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/internal/agent"
	"github.com/xkilldash9x/sitevoice/internal/config"
	"github.com/xkilldash9x/sitevoice/internal/observability"
)

// requestTimeout bounds a request; a release waits for transcription.
const requestTimeout = 60 * time.Second

// PushToTalk is the press/release surface driven by the HTTP endpoints.
type PushToTalk interface {
	Start(ctx context.Context) bool
	Stop(ctx context.Context) (string, error)
	Recording() bool
	Status() string
}

// Assistant exposes the session being controlled.
type Assistant interface {
	ID() string
	Session() *agent.SessionState
	Memory() *agent.ConversationMemory
	Navigator() *agent.Navigator
}

// Server serves the control API.
type Server struct {
	logger    *zap.Logger
	cfg       config.ControlConfig
	assistant Assistant
	ptt       PushToTalk
	// captureCtx outlives individual requests; a press starts a capture
	// that continues after the request returns.
	captureCtx context.Context

	httpServer *http.Server
}

// NewServer creates a control server. Captures started over HTTP are bound
// to ctx.
func NewServer(ctx context.Context, logger *zap.Logger, cfg config.ControlConfig, assistant Assistant, ptt PushToTalk) *Server {
	s := &Server{
		logger:     logger.Named("control"),
		cfg:        cfg,
		assistant:  assistant,
		ptt:        ptt,
		captureCtx: ctx,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", observability.MetricsHandler())

	r.Group(func(r chi.Router) {
		r.Use(s.requestLogger)
		r.Get("/status", s.handleStatus)
		r.Route("/ptt", func(r chi.Router) {
			r.Post("/start", s.handleStart)
			r.Post("/stop", s.handleStop)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("control server failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Control server starting.", zap.String("address", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("control server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down control server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("control server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request served.",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
