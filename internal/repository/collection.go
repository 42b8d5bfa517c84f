package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/automail/automail/internal/model"
)

// Collection gives typed access to one kind of record in a Store
type Collection[T Record] struct {
	store *Store
	kind  Kind
}

// NewCollection binds a typed collection to kind
func NewCollection[T Record](store *Store, kind Kind) *Collection[T] {
	return &Collection[T]{store: store, kind: kind}
}

// NewTemplateRepository returns the templates collection
func NewTemplateRepository(store *Store) *Collection[model.Template] {
	return NewCollection[model.Template](store, KindTemplates)
}

// NewBatchRepository returns the batches collection
func NewBatchRepository(store *Store) *Collection[model.Batch] {
	return NewCollection[model.Batch](store, KindBatches)
}

// Kind returns the collection's record kind
func (c *Collection[T]) Kind() Kind {
	return c.kind
}

// Put inserts rec, or overwrites the record with the same id
func (c *Collection[T]) Put(ctx context.Context, rec T) error {
	table, err := c.kind.table()
	if err != nil {
		return err
	}
	if rec.RecordID() == "" {
		return fmt.Errorf("%w: %s record without id", ErrInvalidInput, c.kind)
	}
	return c.store.upsert(ctx, table, rec.RecordID(), rec)
}

// Get returns the record with the given id or ErrNotFound
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var rec T
	table, err := c.kind.table()
	if err != nil {
		return rec, err
	}
	if err := c.store.get(ctx, table, id, &rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// GetAll returns every record of the collection's kind
func (c *Collection[T]) GetAll(ctx context.Context) ([]T, error) {
	table, err := c.kind.table()
	if err != nil {
		return nil, err
	}
	bodies, err := c.store.all(ctx, table)
	if err != nil {
		return nil, err
	}

	recs := make([]T, 0, len(bodies))
	for _, body := range bodies {
		var rec T
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s record: %w", c.kind, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Delete removes the record with the given id. Deleting a missing id is a no-op.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	table, err := c.kind.table()
	if err != nil {
		return err
	}
	return c.store.delete(ctx, table, id)
}
