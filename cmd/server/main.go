package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/automail/automail/internal/app"
	"github.com/automail/automail/internal/config"
	"github.com/automail/automail/internal/handler"
	"github.com/automail/automail/internal/logger"
	"github.com/automail/automail/internal/middleware"
	"github.com/automail/automail/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", handler.Version).Msg("starting automail server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	authorizers := func(clientID string) (handler.Authorizer, error) {
		authz, err := a.Authorizer(clientID, "")
		if err != nil {
			return nil, err
		}
		return authz, nil
	}

	h := handler.New(a.DB, a.Redis, log, cfg, a.Templates, a.Batches, a.Settings, a.Send, authorizers, a.StateStore())
	mw := middleware.New(a.Redis, log, cfg)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.New(h, mw, promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if a.Controller.Running() {
			log.Warn().Msg("a dispatch run was interrupted by shutdown")
		}
		return nil
	})

	return g.Wait()
}
