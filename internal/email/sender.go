package email

import (
	"context"
	"errors"
)

// genericFailure is used when the remote side gives no usable error message
const genericFailure = "mail transport failure"

// Transport performs one authenticated send of an already-encoded envelope.
// A nil error means the remote call succeeded. Implementations never retry.
type Transport interface {
	Send(ctx context.Context, raw string, accessToken string) error
}

// TransportError describes a failed send. Message is suitable for showing
// to the user as the recipient's error.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	return e.Message
}

// FailureMessage extracts the user-facing message from a send error
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	var te *TransportError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	return err.Error()
}
