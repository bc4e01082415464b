package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Server defines fields used in HTTP processing
type Server struct {
	logger          *zap.SugaredLogger
	httpServer      *http.Server
	afterShutdown   []func()
	shutdownTimeout time.Duration
}

// NewServer returns new Server struct with provided zap.SugaredLogger and Store.
// Options are applied to bare handlers, recovery and request logging always wrap the result.
func NewServer(logger *zap.SugaredLogger, store Store, opts ...Option) (*Server, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}

	c := &config{
		httpServer: &http.Server{
			Addr:              "0.0.0.0:8080",
			ReadHeaderTimeout: 5 * time.Second,
		},
		shutdownTimeout: 10 * time.Second,
		now:             time.Now,
	}

	h := &handler{
		logger:   logger,
		store:    store,
		views:    v,
		validate: newValidator(),
		now:      func() time.Time { return c.now() },
	}
	c.handlers = h.routes()

	for _, opt := range opts {
		opt.apply(c)
	}

	for _, opt := range []Option{
		applyRecover(logger.Desugar(), h.internalError),
		applyLog(logger.Desugar()),
		registerHandlers(),
	} {
		opt.apply(c)
	}

	return &Server{
		logger:          logger,
		httpServer:      c.httpServer,
		afterShutdown:   c.afterShutdown,
		shutdownTimeout: c.shutdownTimeout,
	}, nil
}

// Handler returns the root http.Handler serving every route
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start calls ListenAndServe on http.Server instance inside Server struct
// and implements graceful shutdown via goroutine waiting for signals
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		s.logger.Info("Shutting down HTTP server")

		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Errorf("srv.Shutdown: %v", err)
		}
		s.logger.Info("HTTP server is stopped")

		close(idleConnsClosed)
	}()

	s.logger.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("s.httpServer.ListenAndServe: %v", err)
	}

	<-idleConnsClosed

	for _, f := range s.afterShutdown {
		f()
	}

	return nil
}
