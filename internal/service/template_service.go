package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/automail/automail/internal/email"
	"github.com/automail/automail/internal/logger"
	"github.com/automail/automail/internal/model"
	"github.com/automail/automail/internal/repository"
)

// TemplateInput is the user-editable part of a template
type TemplateInput struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

func (in TemplateInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Content) == "" {
		return ErrInvalidTemplate
	}
	return nil
}

// TemplateService manages message templates and their attachments
type TemplateService struct {
	repo *repository.Collection[model.Template]
	log  *logger.Logger
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(repo *repository.Collection[model.Template], log *logger.Logger) *TemplateService {
	return &TemplateService{
		repo: repo,
		log:  log.WithComponent("template_service"),
	}
}

// List returns every stored template
func (s *TemplateService) List(ctx context.Context) ([]model.Template, error) {
	return s.repo.GetAll(ctx)
}

// Get returns one template
func (s *TemplateService) Get(ctx context.Context, id string) (*model.Template, error) {
	tpl, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// Create stores a new template under a fresh id
func (s *TemplateService) Create(ctx context.Context, in TemplateInput) (*model.Template, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tpl := model.Template{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Subject:     in.Subject,
		Content:     in.Content,
		Attachments: []model.Attachment{},
	}
	if err := s.repo.Put(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	s.log.RecordChange("create", "template", tpl.ID)
	return &tpl, nil
}

// Update replaces the editable fields of an existing template. The id and
// attachments are kept.
func (s *TemplateService) Update(ctx context.Context, id string, in TemplateInput) (*model.Template, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl.Name = in.Name
	tpl.Subject = in.Subject
	tpl.Content = in.Content

	if err := s.repo.Put(ctx, *tpl); err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}

	s.log.RecordChange("update", "template", id)
	return tpl, nil
}

// Delete removes a template. Deleting a missing template is not an error.
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	s.log.RecordChange("delete", "template", id)
	return nil
}

// AddAttachment appends a file to the template. Anything that is not a PDF,
// or whose name could not be written into a message, is rejected and the
// template is left unchanged.
func (s *TemplateService) AddAttachment(ctx context.Context, id, name, mimeType string, data []byte) (*model.Template, error) {
	att := model.Attachment{Name: name, MimeType: mimeType}
	if !att.IsPDF() {
		s.log.Warn().
			Str("template_id", id).
			Str("name", name).
			Str("mime_type", mimeType).
			Msg("rejected non-PDF attachment")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAttachment, mimeType)
	}
	if err := email.CheckAttachmentName(name); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAttachment, name)
	}

	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	att.Data = base64.StdEncoding.EncodeToString(data)
	tpl.Attachments = append(tpl.Attachments, att)

	if err := s.repo.Put(ctx, *tpl); err != nil {
		return nil, fmt.Errorf("failed to add attachment: %w", err)
	}

	s.log.RecordChange("attach", "template", id)
	return tpl, nil
}

// RemoveAttachment drops the attachment at index
func (s *TemplateService) RemoveAttachment(ctx context.Context, id string, index int) (*model.Template, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(tpl.Attachments) {
		return nil, ErrAttachmentNotFound
	}
	tpl.Attachments = append(tpl.Attachments[:index], tpl.Attachments[index+1:]...)

	if err := s.repo.Put(ctx, *tpl); err != nil {
		return nil, fmt.Errorf("failed to remove attachment: %w", err)
	}

	s.log.RecordChange("detach", "template", id)
	return tpl, nil
}
