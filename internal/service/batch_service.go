package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/automail/automail/internal/logger"
	"github.com/automail/automail/internal/model"
	"github.com/automail/automail/internal/repository"
)

// RecipientInput is a recipient before it gets an id
type RecipientInput struct {
	Company string `json:"company"`
	Email   string `json:"email"`
}

func (in RecipientInput) validate() error {
	if strings.TrimSpace(in.Company) == "" || strings.TrimSpace(in.Email) == "" {
		return ErrInvalidRecipient
	}
	return nil
}

// BatchInput is a whole batch as edited by the user
type BatchInput struct {
	Name       string           `json:"name"`
	Recipients []RecipientInput `json:"recipients"`
}

// BatchService manages recipient batches
type BatchService struct {
	repo *repository.Collection[model.Batch]
	log  *logger.Logger
}

// NewBatchService creates a new BatchService
func NewBatchService(repo *repository.Collection[model.Batch], log *logger.Logger) *BatchService {
	return &BatchService{
		repo: repo,
		log:  log.WithComponent("batch_service"),
	}
}

// List returns every stored batch
func (s *BatchService) List(ctx context.Context) ([]model.Batch, error) {
	return s.repo.GetAll(ctx)
}

// Get returns one batch
func (s *BatchService) Get(ctx context.Context, id string) (*model.Batch, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Create stores a new batch. Every recipient gets a fresh id.
func (s *BatchService) Create(ctx context.Context, in BatchInput) (*model.Batch, error) {
	recipients, err := newRecipients(in)
	if err != nil {
		return nil, err
	}

	b := model.Batch{ID: uuid.NewString(), Name: in.Name, Recipients: recipients}
	if err := s.repo.Put(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	s.log.RecordChange("create", "batch", b.ID)
	return &b, nil
}

// Replace overwrites the name and recipient list of an existing batch.
// Recipient ids are reassigned.
func (s *BatchService) Replace(ctx context.Context, id string, in BatchInput) (*model.Batch, error) {
	recipients, err := newRecipients(in)
	if err != nil {
		return nil, err
	}

	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Name = in.Name
	b.Recipients = recipients

	if err := s.repo.Put(ctx, *b); err != nil {
		return nil, fmt.Errorf("failed to update batch: %w", err)
	}

	s.log.RecordChange("update", "batch", id)
	return b, nil
}

// AddRecipient appends one recipient to an existing batch
func (s *BatchService) AddRecipient(ctx context.Context, id string, in RecipientInput) (*model.Batch, *model.Recipient, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	r := model.Recipient{ID: uuid.NewString(), Company: in.Company, Email: in.Email}
	for b.HasRecipient(r.ID) {
		r.ID = uuid.NewString()
	}
	b.Recipients = append(b.Recipients, r)

	if err := s.repo.Put(ctx, *b); err != nil {
		return nil, nil, fmt.Errorf("failed to add recipient: %w", err)
	}

	s.log.RecordChange("add_recipient", "batch", id)
	return b, &r, nil
}

// RemoveRecipient drops one recipient. A batch may not become empty.
func (s *BatchService) RemoveRecipient(ctx context.Context, id, recipientID string) (*model.Batch, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	kept := make([]model.Recipient, 0, len(b.Recipients))
	for _, r := range b.Recipients {
		if r.ID != recipientID {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(b.Recipients) {
		return nil, ErrRecipientNotFound
	}
	if len(kept) == 0 {
		return nil, ErrInvalidBatch
	}
	b.Recipients = kept

	if err := s.repo.Put(ctx, *b); err != nil {
		return nil, fmt.Errorf("failed to remove recipient: %w", err)
	}

	s.log.RecordChange("remove_recipient", "batch", id)
	return b, nil
}

// Delete removes a batch. Deleting a missing batch is not an error.
func (s *BatchService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	s.log.RecordChange("delete", "batch", id)
	return nil
}

func newRecipients(in BatchInput) ([]model.Recipient, error) {
	if strings.TrimSpace(in.Name) == "" || len(in.Recipients) == 0 {
		return nil, ErrInvalidBatch
	}

	out := make([]model.Recipient, 0, len(in.Recipients))
	for _, r := range in.Recipients {
		if err := r.validate(); err != nil {
			return nil, err
		}
		out = append(out, model.Recipient{ID: uuid.NewString(), Company: r.Company, Email: r.Email})
	}
	return out, nil
}
