package model

// Status is the state of one recipient within a dispatch run.
type Status string

const (
	StatusPending Status = "pending"
	StatusSending Status = "sending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// IsTerminal reports whether no further transition can happen in this run.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

// SendStatus is the transient outcome for one recipient of a dispatch run.
type SendStatus struct {
	RecipientID string `json:"recipientId"`
	Status      Status `json:"status"`
	Error       string `json:"error,omitempty"`
}
