package model

// Recipient is one destination inside a batch.
type Recipient struct {
	ID      string `json:"id"`
	Company string `json:"company"`
	Email   string `json:"email"`
}

// Batch is a named group of recipients targeted by a single dispatch run.
type Batch struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Recipients []Recipient `json:"recipients"`
}

// RecordID implements repository.Record.
func (b Batch) RecordID() string {
	return b.ID
}

// HasRecipient checks whether a recipient with the given id is in the batch.
func (b Batch) HasRecipient(id string) bool {
	for _, r := range b.Recipients {
		if r.ID == id {
			return true
		}
	}
	return false
}
