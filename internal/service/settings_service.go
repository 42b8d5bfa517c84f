package service

import (
	"context"
	"fmt"
	"time"

	"github.com/automail/automail/internal/auth"
	"github.com/automail/automail/internal/logger"
	"github.com/automail/automail/internal/model"
	"github.com/automail/automail/internal/repository"
)

// SettingsView is the settings record as shown to clients. The token itself
// never leaves the server.
type SettingsView struct {
	ClientID    string     `json:"clientId"`
	LoggedIn    bool       `json:"loggedIn"`
	TokenExpiry *time.Time `json:"tokenExpiry,omitempty"`
}

// SettingsService manages the settings singleton
type SettingsService struct {
	repo *repository.SettingsRepository
	now  func() time.Time
	log  *logger.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(repo *repository.SettingsRepository, log *logger.Logger) *SettingsService {
	return &SettingsService{
		repo: repo,
		now:  time.Now,
		log:  log.WithComponent("settings_service"),
	}
}

// Get returns the stored settings, or zero settings if none were saved
func (s *SettingsService) Get(ctx context.Context) (model.AppSettings, error) {
	return s.repo.Get(ctx)
}

// View returns the redacted settings
func (s *SettingsService) View(ctx context.Context) (SettingsView, error) {
	st, err := s.repo.Get(ctx)
	if err != nil {
		return SettingsView{}, err
	}

	v := SettingsView{ClientID: st.ClientID, LoggedIn: st.IsTokenValid(s.now())}
	if v.LoggedIn {
		exp := st.ExpiresAt()
		v.TokenExpiry = &exp
	}
	return v, nil
}

// SetClientID changes the OAuth client id. Any token issued for the old
// client is discarded.
func (s *SettingsService) SetClientID(ctx context.Context, clientID string) (model.AppSettings, error) {
	st := model.AppSettings{ClientID: clientID}
	if err := s.repo.Save(ctx, st); err != nil {
		return model.AppSettings{}, fmt.Errorf("failed to save client id: %w", err)
	}

	s.log.Info().Msg("client id changed")
	return st, nil
}

// Login stores a freshly issued token, keeping the client id
func (s *SettingsService) Login(ctx context.Context, tok auth.TokenResult) (model.AppSettings, error) {
	st, err := s.repo.Get(ctx)
	if err != nil {
		return model.AppSettings{}, err
	}

	st.AccessToken = tok.AccessToken
	st.TokenExpiry = model.TokenExpiryFrom(s.now(), tok.ExpiresIn)
	if err := s.repo.Save(ctx, st); err != nil {
		return model.AppSettings{}, fmt.Errorf("failed to save token: %w", err)
	}

	s.log.Info().Time("expires_at", st.ExpiresAt()).Msg("logged in")
	return st, nil
}

// Logout clears the token, keeping the client id
func (s *SettingsService) Logout(ctx context.Context) error {
	st, err := s.repo.Get(ctx)
	if err != nil {
		return err
	}

	st.AccessToken = ""
	st.TokenExpiry = 0
	if err := s.repo.Save(ctx, st); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}

	s.log.Info().Msg("logged out")
	return nil
}

// IsLoggedIn reports whether a valid token is stored
func (s *SettingsService) IsLoggedIn(ctx context.Context) (bool, error) {
	st, err := s.repo.Get(ctx)
	if err != nil {
		return false, err
	}
	return st.IsTokenValid(s.now()), nil
}
