// Package dispatch sends one template to every recipient of a batch, one
// recipient at a time, and tracks each recipient's outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/automail/automail/internal/email"
	"github.com/automail/automail/internal/logger"
	"github.com/automail/automail/internal/model"
	"github.com/automail/automail/internal/render"
)

// Pre-flight errors. None of them create any run state.
var (
	ErrSelectionIncomplete = errors.New("a template and a non-empty batch must be selected")
	ErrAuthExpired         = errors.New("access token is missing or expired")
	ErrDuplicateRecipient  = errors.New("batch contains duplicate recipient ids")
	ErrRunInProgress       = errors.New("a dispatch run is already in progress")
)

// DefaultInterval is the pause after each recipient resolves
const DefaultInterval = 800 * time.Millisecond

// Request is everything one run needs
type Request struct {
	Template *model.Template
	Batch    *model.Batch
	Settings model.AppSettings
}

// Summary is the aggregate reported once every recipient is terminal
type Summary struct {
	RunID        string             `json:"runId"`
	TemplateID   string             `json:"templateId"`
	BatchID      string             `json:"batchId"`
	SuccessCount int                `json:"successCount"`
	TotalCount   int                `json:"totalCount"`
	Statuses     []model.SendStatus `json:"statuses"`
	StartedAt    time.Time          `json:"startedAt"`
	FinishedAt   time.Time          `json:"finishedAt"`
}

// Progress is a read-only view of the current or most recent run
type Progress struct {
	RunID        string             `json:"runId,omitempty"`
	Running      bool               `json:"running"`
	SuccessCount int                `json:"successCount"`
	TotalCount   int                `json:"totalCount"`
	Statuses     []model.SendStatus `json:"statuses"`
}

// Observer is notified of every status transition and of run completion.
// Calls happen on the run's goroutine, in order.
type Observer interface {
	OnStatus(runID string, status model.SendStatus)
	OnComplete(summary Summary)
}

// Controller owns the sequential send loop and the per-recipient status map.
// Only the active run writes the map; Snapshot and Progress hand out copies.
type Controller struct {
	transport email.Transport
	interval  time.Duration
	now       func() time.Time
	sleep     func(time.Duration)
	boundary  email.BoundaryFunc
	newRunID  func() string
	observers []Observer
	log       *logger.Logger

	mu       sync.RWMutex
	running  bool
	runID    string
	order    []string
	statuses map[string]model.SendStatus
}

// Option configures a Controller
type Option func(*Controller)

// WithInterval sets the pause after each recipient resolves
func WithInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithClock sets the time source used for the token check
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithSleeper replaces the delay primitive
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *Controller) { c.sleep = sleep }
}

// WithBoundary replaces the multipart boundary source
func WithBoundary(fn email.BoundaryFunc) Option {
	return func(c *Controller) { c.boundary = fn }
}

// WithObserver adds an observer
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(c *Controller) { c.log = log.WithComponent("dispatch") }
}

// WithRunIDs replaces the run id generator
func WithRunIDs(fn func() string) Option {
	return func(c *Controller) { c.newRunID = fn }
}

// New creates a Controller sending through transport
func New(transport email.Transport, opts ...Option) *Controller {
	c := &Controller{
		transport: transport,
		interval:  DefaultInterval,
		now:       time.Now,
		sleep:     time.Sleep,
		boundary:  email.TimeBoundary,
		newRunID:  uuid.NewString,
		log:       logger.Nop(),
		statuses:  make(map[string]model.SendStatus),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Preflight checks the run preconditions without creating any state
func (c *Controller) Preflight(req Request) error {
	if req.Template == nil || req.Batch == nil || len(req.Batch.Recipients) == 0 {
		return ErrSelectionIncomplete
	}
	if !req.Settings.IsTokenValid(c.now()) {
		return ErrAuthExpired
	}

	seen := make(map[string]struct{}, len(req.Batch.Recipients))
	for _, r := range req.Batch.Recipients {
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateRecipient, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// Run sends req.Template to every recipient of req.Batch in stored order and
// blocks until each one is Success or Error. A failed recipient never stops
// the run. The token is checked once here; a token that lapses mid-run
// surfaces as per-recipient errors.
func (c *Controller) Run(ctx context.Context, req Request) (Summary, error) {
	if err := c.Preflight(req); err != nil {
		return Summary{}, err
	}

	runID, err := c.begin(req.Batch.Recipients)
	if err != nil {
		return Summary{}, err
	}
	defer c.recoverRun(runID, true)
	return c.complete(c.execute(ctx, runID, req)), nil
}

// Start performs the same checks as Run and claims the controller before
// returning, then sends in the background. The summary is delivered on the
// returned channel once every recipient is terminal.
func (c *Controller) Start(ctx context.Context, req Request) (string, <-chan Summary, error) {
	if err := c.Preflight(req); err != nil {
		return "", nil, err
	}

	runID, err := c.begin(req.Batch.Recipients)
	if err != nil {
		return "", nil, err
	}

	done := make(chan Summary, 1)
	go func() {
		defer close(done)
		defer c.recoverRun(runID, false)
		done <- c.complete(c.execute(ctx, runID, req))
	}()
	return runID, done, nil
}

func (c *Controller) execute(ctx context.Context, runID string, req Request) Summary {
	log := c.log.WithRun(runID, req.Template.ID, req.Batch.ID)
	started := c.now()
	log.Info().Int("recipients", len(req.Batch.Recipients)).Msg("dispatch run started")

	for i, r := range req.Batch.Recipients {
		c.update(runID, model.SendStatus{RecipientID: r.ID, Status: model.StatusSending})

		result := c.deliver(ctx, *req.Template, r, req.Settings.AccessToken)
		if result.Status == model.StatusError {
			log.Warn().Str("recipient_id", r.ID).Str("error", result.Error).Msg("recipient failed")
		}
		c.update(runID, result)

		if i < len(req.Batch.Recipients)-1 && c.interval > 0 {
			c.sleep(c.interval)
		}
	}

	summary := c.summarize(runID, req)
	summary.StartedAt = started
	summary.FinishedAt = c.now()

	log.Info().
		Int("success", summary.SuccessCount).
		Int("total", summary.TotalCount).
		Msg("dispatch run complete")
	return summary
}

// complete releases the controller and then notifies observers, so an
// observer may start the next run.
func (c *Controller) complete(summary Summary) Summary {
	c.finish()
	for _, o := range c.observers {
		o.OnComplete(summary)
	}
	return summary
}

// deliver renders, builds and sends one message, returning the terminal status
func (c *Controller) deliver(ctx context.Context, tpl model.Template, r model.Recipient, token string) model.SendStatus {
	raw, err := email.Build(email.Envelope{
		To:          r.Email,
		Subject:     render.Render(tpl.Subject, r),
		Body:        render.Render(tpl.Content, r),
		Attachments: tpl.Attachments,
	}, c.boundary())
	if err != nil {
		return model.SendStatus{
			RecipientID: r.ID,
			Status:      model.StatusError,
			Error:       fmt.Sprintf("failed to build message: %v", err),
		}
	}

	if err := c.transport.Send(ctx, raw, token); err != nil {
		return model.SendStatus{
			RecipientID: r.ID,
			Status:      model.StatusError,
			Error:       email.FailureMessage(err),
		}
	}
	return model.SendStatus{RecipientID: r.ID, Status: model.StatusSuccess}
}

func (c *Controller) begin(recipients []model.Recipient) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return "", ErrRunInProgress
	}

	c.running = true
	c.runID = c.newRunID()
	c.order = make([]string, 0, len(recipients))
	c.statuses = make(map[string]model.SendStatus, len(recipients))
	for _, r := range recipients {
		c.order = append(c.order, r.ID)
		c.statuses[r.ID] = model.SendStatus{RecipientID: r.ID, Status: model.StatusPending}
	}
	return c.runID, nil
}

// recoverRun releases the controller after a panic in the transport or an
// observer. Recipients that never resolved are marked Error. The panic is
// re-raised when rethrow is set; otherwise the summary channel is closed
// without a value.
func (c *Controller) recoverRun(runID string, rethrow bool) {
	rec := recover()
	if rec == nil {
		return
	}

	c.log.Error().
		Interface("error", rec).
		Str("stack", string(debug.Stack())).
		Str("run_id", runID).
		Msg("dispatch run panicked")

	c.mu.Lock()
	if c.runID == runID {
		for id, s := range c.statuses {
			if !s.Status.IsTerminal() {
				c.statuses[id] = model.SendStatus{RecipientID: id, Status: model.StatusError, Error: "dispatch aborted by an internal error"}
			}
		}
		c.running = false
	}
	c.mu.Unlock()

	if rethrow {
		panic(rec)
	}
}

func (c *Controller) finish() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

func (c *Controller) update(runID string, s model.SendStatus) {
	c.mu.Lock()
	c.statuses[s.RecipientID] = s
	c.mu.Unlock()

	c.log.Debug().
		Str("run_id", runID).
		Str("recipient_id", s.RecipientID).
		Str("status", string(s.Status)).
		Msg("status changed")

	for _, o := range c.observers {
		o.OnStatus(runID, s)
	}
}

func (c *Controller) summarize(runID string, req Request) Summary {
	statuses := c.Snapshot()
	success := 0
	for _, s := range statuses {
		if s.Status == model.StatusSuccess {
			success++
		}
	}
	return Summary{
		RunID:        runID,
		TemplateID:   req.Template.ID,
		BatchID:      req.Batch.ID,
		SuccessCount: success,
		TotalCount:   len(statuses),
		Statuses:     statuses,
	}
}

// Snapshot returns a copy of the current statuses in recipient order
func (c *Controller) Snapshot() []model.SendStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// snapshotLocked requires c.mu to be held
func (c *Controller) snapshotLocked() []model.SendStatus {
	out := make([]model.SendStatus, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.statuses[id])
	}
	return out
}

// Progress returns the current or most recent run's state
func (c *Controller) Progress() Progress {
	c.mu.RLock()
	running, runID := c.running, c.runID
	statuses := c.snapshotLocked()
	c.mu.RUnlock()

	success := 0
	for _, s := range statuses {
		if s.Status == model.StatusSuccess {
			success++
		}
	}
	return Progress{
		RunID:        runID,
		Running:      running,
		SuccessCount: success,
		TotalCount:   len(statuses),
		Statuses:     statuses,
	}
}

// Running reports whether a run is active
func (c *Controller) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}
