package middleware

import (
	"github.com/automail/automail/internal/config"
	"github.com/automail/automail/internal/database"
	"github.com/automail/automail/internal/logger"
)

// Middleware holds all HTTP middleware. rdb is nil when Redis is disabled.
type Middleware struct {
	rdb *database.Redis
	log *logger.Logger
	cfg *config.Config
}

// New creates a new Middleware instance
func New(rdb *database.Redis, log *logger.Logger, cfg *config.Config) *Middleware {
	return &Middleware{
		rdb: rdb,
		log: log.WithComponent("http"),
		cfg: cfg,
	}
}
