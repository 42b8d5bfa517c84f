package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/automail/automail/internal/database"
)

// Kind names a keyed collection in the store
type Kind string

const (
	KindTemplates Kind = "templates"
	KindBatches   Kind = "batches"
)

const (
	settingsTable = "settings"

	// SettingsKey is the fixed key of the settings singleton
	SettingsKey = "current"
)

func (k Kind) table() (string, error) {
	switch k {
	case KindTemplates, KindBatches:
		return string(k), nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, k)
}

// Record is anything stored in a keyed collection
type Record interface {
	RecordID() string
}

// Store is the durable keyed persistence for all record kinds.
// Each Put and Delete is atomic on its own; there is no caching, so a write
// is visible to every later read.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// NewStore creates a Store over an opened database
func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func unavailable(op, table, id string, err error) error {
	if id == "" {
		return fmt.Errorf("%s %s: %w: %w", op, table, ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s %s/%s: %w: %w", op, table, id, ErrStorageUnavailable, err)
}

func (s *Store) upsert(ctx context.Context, table, id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", table, id, err)
	}

	query := s.db.Rebind(`
		INSERT INTO ` + table + ` (id, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`)
	if _, err := s.db.ExecContext(ctx, query, id, string(body), s.now().UnixMilli()); err != nil {
		return unavailable("put", table, id, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, table, id string, dst any) error {
	query := s.db.Rebind(`SELECT body FROM ` + table + ` WHERE id = ?`)

	var body []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return unavailable("get", table, id, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode %s/%s: %w", table, id, err)
	}
	return nil
}

func (s *Store) all(ctx context.Context, table string) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, unavailable("list", table, "", err)
	}
	defer rows.Close()

	var bodies [][]byte
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, unavailable("list", table, "", err)
		}
		bodies = append(bodies, body)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list", table, "", err)
	}
	return bodies, nil
}

func (s *Store) delete(ctx context.Context, table, id string) error {
	query := s.db.Rebind(`DELETE FROM ` + table + ` WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return unavailable("delete", table, id, err)
	}
	return nil
}

// GetSingleton decodes the singleton stored under key into dst.
// Returns ErrNotFound when nothing has been stored yet.
func (s *Store) GetSingleton(ctx context.Context, key string, dst any) error {
	return s.get(ctx, settingsTable, key, dst)
}

// PutSingleton overwrites the singleton stored under key
func (s *Store) PutSingleton(ctx context.Context, key string, v any) error {
	if key == "" {
		return fmt.Errorf("%w: empty singleton key", ErrInvalidInput)
	}
	return s.upsert(ctx, settingsTable, key, v)
}
