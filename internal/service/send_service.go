package service

import (
	"context"
	"strings"

	"github.com/automail/automail/internal/dispatch"
	"github.com/automail/automail/internal/logger"
)

// SendService resolves stored ids into a dispatch request and hands it to
// the controller
type SendService struct {
	templates  *TemplateService
	batches    *BatchService
	settings   *SettingsService
	controller *dispatch.Controller
	log        *logger.Logger
}

// NewSendService creates a new SendService
func NewSendService(
	templates *TemplateService,
	batches *BatchService,
	settings *SettingsService,
	controller *dispatch.Controller,
	log *logger.Logger,
) *SendService {
	return &SendService{
		templates:  templates,
		batches:    batches,
		settings:   settings,
		controller: controller,
		log:        log.WithComponent("send_service"),
	}
}

// Run sends a template to a batch and waits for the summary
func (s *SendService) Run(ctx context.Context, templateID, batchID string) (dispatch.Summary, error) {
	req, err := s.request(ctx, templateID, batchID)
	if err != nil {
		return dispatch.Summary{}, err
	}
	return s.controller.Run(ctx, req)
}

// Start begins a run in the background and returns its id. The run is
// detached from ctx cancellation so it outlives the request that started it.
func (s *SendService) Start(ctx context.Context, templateID, batchID string) (string, error) {
	req, err := s.request(ctx, templateID, batchID)
	if err != nil {
		return "", err
	}

	runID, _, err := s.controller.Start(context.WithoutCancel(ctx), req)
	if err != nil {
		return "", err
	}

	s.log.Info().
		Str("run_id", runID).
		Str("template_id", templateID).
		Str("batch_id", batchID).
		Msg("dispatch started")
	return runID, nil
}

// Progress returns the current or most recent run's state
func (s *SendService) Progress() dispatch.Progress {
	return s.controller.Progress()
}

func (s *SendService) request(ctx context.Context, templateID, batchID string) (dispatch.Request, error) {
	if strings.TrimSpace(templateID) == "" || strings.TrimSpace(batchID) == "" {
		return dispatch.Request{}, dispatch.ErrSelectionIncomplete
	}

	tpl, err := s.templates.Get(ctx, templateID)
	if err != nil {
		return dispatch.Request{}, err
	}
	batch, err := s.batches.Get(ctx, batchID)
	if err != nil {
		return dispatch.Request{}, err
	}
	st, err := s.settings.Get(ctx)
	if err != nil {
		return dispatch.Request{}, err
	}

	return dispatch.Request{Template: tpl, Batch: batch, Settings: st}, nil
}
