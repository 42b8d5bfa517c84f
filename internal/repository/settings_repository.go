package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/automail/automail/internal/model"
)

// TokenSealer protects the access token while it is at rest
type TokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(value string) (string, error)
}

// SettingsRepository persists the AppSettings singleton
type SettingsRepository struct {
	store  *Store
	sealer TokenSealer
}

// NewSettingsRepository creates a new SettingsRepository.
// sealer may be nil, in which case the token is stored as given.
func NewSettingsRepository(store *Store, sealer TokenSealer) *SettingsRepository {
	return &SettingsRepository{store: store, sealer: sealer}
}

// Get returns the stored settings, or zero-value settings when none exist yet
func (r *SettingsRepository) Get(ctx context.Context) (model.AppSettings, error) {
	var s model.AppSettings
	err := r.store.GetSingleton(ctx, SettingsKey, &s)
	if errors.Is(err, ErrNotFound) {
		return model.AppSettings{}, nil
	}
	if err != nil {
		return model.AppSettings{}, err
	}

	if r.sealer != nil {
		token, err := r.sealer.Open(s.AccessToken)
		if err != nil {
			return model.AppSettings{}, fmt.Errorf("failed to open access token: %w", err)
		}
		s.AccessToken = token
	}
	return s, nil
}

// Save overwrites the settings singleton wholesale
func (r *SettingsRepository) Save(ctx context.Context, s model.AppSettings) error {
	if r.sealer != nil {
		sealed, err := r.sealer.Seal(s.AccessToken)
		if err != nil {
			return fmt.Errorf("failed to seal access token: %w", err)
		}
		s.AccessToken = sealed
	}
	return r.store.PutSingleton(ctx, SettingsKey, s)
}
