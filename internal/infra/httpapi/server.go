package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"compliance_reminders/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the trigger endpoint, run lookup and the health check.
// history may be nil, which leaves the run lookup unrouted.
func NewRouter(log *logrus.Entry, auth Authorizer, service app.ReminderService, history RunHistory, runNotFound error) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger(log))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", Health())
	router.Post("/api/reminders/{module}/run", RunReminder(log, auth, service))
	if history != nil {
		router.Get("/api/reminders/runs/{runID}", GetRun(log, auth, history, runNotFound))
	}

	return router
}

// Server is an http.Server with graceful shutdown.
type Server struct {
	srv    *http.Server
	logger *logrus.Entry
}

func NewServer(addr string, handler http.Handler, logger *logrus.Entry) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background. Listen errors are sent to the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("HTTP server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed: %w", err)
		}
		close(errCh)
	}()
	return errCh
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	return s.srv.Shutdown(ctx)
}
