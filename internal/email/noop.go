package email

import (
	"context"

	"github.com/automail/automail/internal/logger"
)

// NoopTransport logs envelopes instead of delivering them.
// Used for dry runs.
type NoopTransport struct {
	log *logger.Logger
}

// NewNoopTransport creates a new NoopTransport.
func NewNoopTransport(log *logger.Logger) *NoopTransport {
	return &NoopTransport{log: log.WithComponent("noop_transport")}
}

// Send logs the envelope size and reports success.
func (n *NoopTransport) Send(_ context.Context, raw string, _ string) error {
	n.log.Info().Int("raw_bytes", len(raw)).Msg("dry run: envelope not sent")
	return nil
}
