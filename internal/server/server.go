// Package server собирает HTTP сервер координатора
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/gophsync/internal/config"
	"github.com/iudanet/gophsync/internal/server/coordinator"
	"github.com/iudanet/gophsync/internal/server/handlers"
	"github.com/iudanet/gophsync/internal/server/middleware"
	"github.com/iudanet/gophsync/internal/server/storage"
	"github.com/iudanet/gophsync/pkg/api"
)

// Server HTTP сервер координатора
type Server struct {
	httpServer *http.Server
	limiter    *middleware.RateLimiter
	logger     *slog.Logger
	cfg        config.ServerConfig
}

// New создает сервер поверх хранилища store
func New(cfg config.ServerConfig, store storage.SyncStorage, version string, logger *slog.Logger) *Server {
	clock := clockwork.NewRealClock()
	coord := coordinator.New(store, logger, coordinator.WithClock(clock), coordinator.WithPullLimit(cfg.PullLimit))

	syncHandler := handlers.NewSyncHandler(logger, coord)
	healthHandler := handlers.NewHealthHandler(logger, coord, version)

	mux := http.NewServeMux()
	mux.HandleFunc(api.PathPush, syncHandler.Push)
	mux.HandleFunc(api.PathResolve, syncHandler.Resolve)
	mux.HandleFunc("GET "+api.PathRecords+"{type}/{id}", syncHandler.GetRecord)
	mux.HandleFunc("GET "+api.PathHealth, healthHandler.Health)

	s := &Server{
		logger: logger,
		cfg:    cfg,
	}

	var handler http.Handler = mux
	if cfg.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, clock, logger)
		handler = s.limiter.Middleware(handler)
	}
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.Logging(logger, clock, api.PathHealth)(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler возвращает корневой обработчик со всеми middleware
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run слушает cfg.Address до отмены ctx, затем корректно завершает работу
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, listener)
}

// Serve обслуживает запросы на listener до отмены ctx
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Coordinator listening", "address", listener.Addr().String())
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down coordinator")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if s.limiter != nil {
			s.limiter.Stop()
		}
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
