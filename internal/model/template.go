package model

// PDFMimeType is the only media type accepted for template attachments.
const PDFMimeType = "application/pdf"

// Attachment is a file carried by every message built from a template.
// Data holds the file contents already base64-encoded.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// IsPDF reports whether the attachment carries the PDF media type.
func (a Attachment) IsPDF() bool {
	return a.MimeType == PDFMimeType
}

// Template is a reusable subject/body/attachment unit.
type Template struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Subject     string       `json:"subject"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
}

// RecordID implements repository.Record.
func (t Template) RecordID() string {
	return t.ID
}
