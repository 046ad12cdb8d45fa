package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gazeheat/internal/config"
	"gazeheat/internal/jobs"
	"gazeheat/internal/logging"
	"gazeheat/internal/recording"
	"gazeheat/internal/workflow"
)

// Generator renders heatmap jobs.
type Generator interface {
	Generate(ctx context.Context, req workflow.Request) (*workflow.Outcome, error)
}

// Recorder drives server-side screen capture.
type Recorder interface {
	Start() (recording.Info, error)
	Stop(ctx context.Context) (string, error)
	Active() (recording.Info, bool)
}

// Server hosts the HTTP interface.
type Server struct {
	cfg       *config.Config
	generator Generator
	recorder  Recorder
	store     *jobs.Store
	hub       *logging.StreamHub
	logger    *slog.Logger
	handler   http.Handler

	listener net.Listener
	server   *http.Server
}

// Option configures optional Server collaborators.
type Option func(*Server)

// WithRecorder enables the recording endpoints.
func WithRecorder(r Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithStore enables the job history endpoints.
func WithStore(store *jobs.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithLogHub enables the log stream endpoint.
func WithLogHub(hub *logging.StreamHub) Option {
	return func(s *Server) { s.hub = hub }
}

// New constructs a server.
func New(cfg *config.Config, generator Generator, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		generator: generator,
		logger:    logging.NewComponentLogger(logger, "api-server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Listen binds the configured address. It returns the bound address so a
// ":0" bind can be reported and advertised.
func (s *Server) Listen() (*net.TCPAddr, error) {
	listener, err := net.Listen("tcp", s.cfg.Server.Bind)
	if err != nil {
		return nil, fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	addr, _ := listener.Addr().(*net.TCPAddr)
	return addr, nil
}

// Serve handles requests until ctx ends, then shuts down gracefully.
// Renders run inside requests, so no read or write deadline is set.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
	}
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(s.listener)
	}()
	s.logger.Info("api server listening", logging.String("address", s.listener.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api shutdown incomplete", logging.Error(err))
	}
	return nil
}
