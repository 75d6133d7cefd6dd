// Package server exposes the parser and the application store over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/amishk599/applytrack/internal/model"
	"github.com/amishk599/applytrack/internal/ratelimit"
)

// Ingester turns email text and manual entries into application changes.
type Ingester interface {
	Ingest(ctx context.Context, text, source string) (model.Transition, error)
	Add(ctx context.Context, app model.Application) (model.Application, error)
	Edit(id string, patch model.ApplicationPatch) (model.Application, error)
}

// Options configures the HTTP server.
type Options struct {
	Addr         string
	RateLimit    float64 // requests per second per client; 0 disables limiting
	Burst        int
	MaxBodyBytes int64
	CORSOrigins  []string
}

// Server serves the /api/v1 routes.
type Server struct {
	store    model.ApplicationStore
	ingester Ingester
	limiter  *ratelimit.ClientLimiter
	opts     Options
	logger   *slog.Logger
}

// New creates a Server.
func New(store model.ApplicationStore, ingester Ingester, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		store:    store,
		ingester: ingester,
		opts:     opts,
		logger:   logger,
	}
	if opts.RateLimit > 0 {
		s.limiter = ratelimit.NewClientLimiter(opts.RateLimit, opts.Burst)
	}
	return s
}

// Router builds the gin engine with all middleware and routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	if len(s.opts.CORSOrigins) > 0 {
		cfg := cors.DefaultConfig()
		cfg.AllowOrigins = s.opts.CORSOrigins
		cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete}
		cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
		r.Use(cors.New(cfg))
	}

	api := r.Group("/api/v1")
	api.Use(s.rateLimit(), s.limitBody())
	{
		api.GET("/health", s.health)

		api.POST("/emails/parse", s.parseEmail)
		api.POST("/emails/ingest", s.ingestEmail)

		api.GET("/applications", s.listApplications)
		api.POST("/applications", s.createApplication)
		api.GET("/applications/:id", s.getApplication)
		api.PATCH("/applications/:id", s.editApplication)
		api.PATCH("/applications/:id/status", s.updateStatus)
		api.DELETE("/applications/:id", s.deleteApplication)
		api.GET("/applications/:id/events", s.listEvents)
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully. Request
// contexts derive from ctx, so in-flight notifications stop on shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	if s.limiter != nil {
		go s.pruneClients(ctx)
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) pruneClients(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Prune(10 * time.Minute); n > 0 {
				s.logger.Debug("pruned idle rate-limit clients", "removed", n)
			}
		}
	}
}
