package repository

import (
	"errors"

	"github.com/automail/automail/internal/database"
)

// Common repository errors
var (
	// ErrStorageUnavailable is returned when the storage medium cannot be
	// opened or a read/write cannot be committed. It is never retried here.
	ErrStorageUnavailable = database.ErrStorageUnavailable
	ErrNotFound           = errors.New("record not found")
	ErrInvalidInput       = errors.New("invalid input")
)
