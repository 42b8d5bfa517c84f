package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/automail/automail/internal/logger"
	"github.com/automail/automail/internal/model"
)

// Publisher is the pub/sub primitive progress events are sent through.
// *database.Redis satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Event is one message on the progress channel
type Event struct {
	Type    string            `json:"type"`
	RunID   string            `json:"runId"`
	Status  *model.SendStatus `json:"status,omitempty"`
	Summary *Summary          `json:"summary,omitempty"`
}

const (
	EventStatus   = "status"
	EventComplete = "complete"
)

// PublishObserver forwards run progress to a pub/sub channel. Publish
// failures are logged and never affect the run.
type PublishObserver struct {
	pub     Publisher
	channel string
	timeout time.Duration
	log     *logger.Logger
}

// NewPublishObserver creates a new PublishObserver
func NewPublishObserver(pub Publisher, channel string, log *logger.Logger) *PublishObserver {
	return &PublishObserver{
		pub:     pub,
		channel: channel,
		timeout: 2 * time.Second,
		log:     log.WithComponent("dispatch_publisher"),
	}
}

// OnStatus implements Observer
func (p *PublishObserver) OnStatus(runID string, status model.SendStatus) {
	p.publish(Event{Type: EventStatus, RunID: runID, Status: &status})
}

// OnComplete implements Observer
func (p *PublishObserver) OnComplete(summary Summary) {
	p.publish(Event{Type: EventComplete, RunID: summary.RunID, Summary: &summary})
}

func (p *PublishObserver) publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to encode progress event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.pub.Publish(ctx, p.channel, payload); err != nil {
		p.log.Warn().Err(err).Str("run_id", ev.RunID).Msg("failed to publish progress event")
	}
}
