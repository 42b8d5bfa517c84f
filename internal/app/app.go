// Package app assembles the storage, services and dispatch controller shared
// by the server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/automail/automail/internal/auth"
	"github.com/automail/automail/internal/config"
	"github.com/automail/automail/internal/crypto"
	"github.com/automail/automail/internal/database"
	"github.com/automail/automail/internal/dispatch"
	"github.com/automail/automail/internal/email"
	"github.com/automail/automail/internal/logger"
	"github.com/automail/automail/internal/repository"
	"github.com/automail/automail/internal/service"
)

// App holds the long-lived components. Redis is nil when disabled.
type App struct {
	Config     *config.Config
	Log        *logger.Logger
	DB         *database.DB
	Redis      *database.Redis
	Controller *dispatch.Controller
	Registry   *prometheus.Registry

	Templates *service.TemplateService
	Batches   *service.BatchService
	Settings  *service.SettingsService
	Send      *service.SendService
}

// Options adjusts how New wires the dispatch controller
type Options struct {
	// DryRun forces the logging transport regardless of config
	DryRun bool
	// Observers are added after the Redis publisher
	Observers []dispatch.Observer
}

// New opens storage and builds every service. Close releases connections.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	log.Info().Str("driver", db.Driver()).Msg("database ready")

	a := &App{Config: cfg, Log: log, DB: db}

	if cfg.Redis.Enabled {
		rdb, err := database.NewRedis(cfg.Redis)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.Redis = rdb
		log.Info().Str("addr", cfg.Redis.Addr()).Msg("connected to Redis")
	}

	sealer, err := crypto.NewSealer(cfg.Security.TokenKey)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid security.token_key: %w", err)
	}
	if !sealer.Enabled() {
		log.Warn().Msg("security.token_key is not set; access tokens are stored unsealed")
	}

	store := repository.NewStore(db)
	a.Templates = service.NewTemplateService(repository.NewTemplateRepository(store), log)
	a.Batches = service.NewBatchService(repository.NewBatchRepository(store), log)
	a.Settings = service.NewSettingsService(repository.NewSettingsRepository(store, sealer), log)

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := dispatch.NewMetrics(a.Registry)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithInterval(cfg.Dispatch.Interval),
		dispatch.WithLogger(log),
		dispatch.WithObserver(metrics),
	}
	if a.Redis != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithObserver(
			dispatch.NewPublishObserver(a.Redis, cfg.Redis.Channel, log),
		))
	}
	for _, o := range opts.Observers {
		dispatchOpts = append(dispatchOpts, dispatch.WithObserver(o))
	}

	a.Controller = dispatch.New(a.transport(opts.DryRun), dispatchOpts...)
	a.Send = service.NewSendService(a.Templates, a.Batches, a.Settings, a.Controller, log)
	return a, nil
}

func (a *App) transport(dryRun bool) email.Transport {
	if dryRun || a.Config.Mail.DryRun {
		a.Log.Warn().Msg("dry run: messages are logged, not sent")
		return email.NewNoopTransport(a.Log)
	}
	return email.NewGmailTransport(email.GmailConfig{Endpoint: a.Config.Google.Endpoint})
}

// Authorizer builds the Google authorizer for clientID. An empty
// redirectURL uses the configured one.
func (a *App) Authorizer(clientID, redirectURL string) (*auth.GoogleAuthorizer, error) {
	if redirectURL == "" {
		redirectURL = a.Config.Google.RedirectURL
	}
	return auth.NewGoogleAuthorizer(auth.GoogleConfig{
		ClientID:     clientID,
		ClientSecret: a.Config.Google.ClientSecret,
		RedirectURL:  redirectURL,
	})
}

// StateStore returns a Redis-backed state store when Redis is enabled and an
// in-process one otherwise
func (a *App) StateStore() auth.StateStore {
	if a.Redis != nil {
		return auth.NewRedisStateStore(a.Redis, auth.DefaultStateTTL)
	}
	return auth.NewMemoryStateStore(auth.DefaultStateTTL)
}

// Close releases the database and Redis connections
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn().Err(err).Msg("failed to close Redis")
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Log.Warn().Err(err).Msg("failed to close database")
	}
}
