package handler

import (
	"context"

	"github.com/automail/automail/internal/auth"
	"github.com/automail/automail/internal/config"
	"github.com/automail/automail/internal/database"
	"github.com/automail/automail/internal/logger"
	"github.com/automail/automail/internal/service"
)

// Authorizer runs the Google consent flow for one client id
type Authorizer interface {
	AuthCodeURL(state string) string
	Complete(ctx context.Context, cb auth.Callback) (auth.TokenResult, error)
}

// AuthorizerFactory builds an Authorizer for the stored client id
type AuthorizerFactory func(clientID string) (Authorizer, error)

// Handler holds all HTTP handlers
type Handler struct {
	db          *database.DB
	rdb         *database.Redis
	log         *logger.Logger
	cfg         *config.Config
	templateSvc *service.TemplateService
	batchSvc    *service.BatchService
	settingsSvc *service.SettingsService
	sendSvc     *service.SendService
	authorizers AuthorizerFactory
	states      auth.StateStore
}

// New creates a new Handler instance. rdb may be nil.
func New(
	db *database.DB,
	rdb *database.Redis,
	log *logger.Logger,
	cfg *config.Config,
	templateSvc *service.TemplateService,
	batchSvc *service.BatchService,
	settingsSvc *service.SettingsService,
	sendSvc *service.SendService,
	authorizers AuthorizerFactory,
	states auth.StateStore,
) *Handler {
	return &Handler{
		db:          db,
		rdb:         rdb,
		log:         log.WithComponent("handler"),
		cfg:         cfg,
		templateSvc: templateSvc,
		batchSvc:    batchSvc,
		settingsSvc: settingsSvc,
		sendSvc:     sendSvc,
		authorizers: authorizers,
		states:      states,
	}
}
