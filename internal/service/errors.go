package service

import "errors"

// Common service errors
var (
	ErrTemplateNotFound      = errors.New("template not found")
	ErrBatchNotFound         = errors.New("batch not found")
	ErrInvalidTemplate       = errors.New("template name and content are required")
	ErrInvalidBatch          = errors.New("batch needs a name and at least one recipient")
	ErrInvalidRecipient      = errors.New("recipient company and email are required")
	ErrRecipientNotFound     = errors.New("recipient not found")
	ErrUnsupportedAttachment = errors.New("only PDF attachments are supported")
	ErrAttachmentNotFound    = errors.New("attachment not found")
	ErrInvalidAttachment     = errors.New("attachment name cannot be used in a message")
)
