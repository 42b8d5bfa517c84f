package email

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/automail/automail/internal/model"
)

var (
	ErrMissingRecipient = errors.New("envelope: recipient address is required")
	ErrInvalidHeader    = errors.New("envelope: header value contains a line break")
	ErrInvalidBoundary  = errors.New("envelope: boundary is required")
	// ErrInvalidFilename means an attachment name cannot be written into a
	// quoted header parameter.
	ErrInvalidFilename  = errors.New("envelope: attachment name is empty or contains a quote or line break")
)

// CheckAttachmentName reports whether name can be used as an attachment
// filename in the envelope.
func CheckAttachmentName(name string) error {
	if strings.TrimSpace(name) == "" || hasLineBreak(name) || strings.ContainsRune(name, '"') {
		return ErrInvalidFilename
	}
	return nil
}

// Envelope is the personalized content of one outgoing message
type Envelope struct {
	To          string
	Subject     string
	Body        string
	Attachments []model.Attachment
}

// BoundaryFunc returns the multipart boundary for one build
type BoundaryFunc func() string

// TimeBoundary derives a boundary from the current time. Each envelope is
// built and sent before the next one, so nanosecond resolution is enough.
func TimeBoundary() string {
	return "automail_boundary_" + strconv.FormatInt(time.Now().UnixNano(), 10)
}

// Compose assembles the multipart/mixed MIME message for env.
// The plain-text body comes first, followed by one part per attachment in
// the given order. Attachment data is already base64 and is copied as is.
func Compose(env Envelope, boundary string) (string, error) {
	if strings.TrimSpace(env.To) == "" {
		return "", ErrMissingRecipient
	}
	if boundary == "" {
		return "", ErrInvalidBoundary
	}
	if hasLineBreak(env.To) || hasLineBreak(env.Subject) {
		return "", ErrInvalidHeader
	}

	lines := []string{
		"To: " + env.To,
		"Subject: " + mime.BEncoding.Encode("UTF-8", env.Subject),
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="` + boundary + `"`,
		"",
		"--" + boundary,
		`Content-Type: text/plain; charset="UTF-8"`,
		"Content-Transfer-Encoding: 8bit",
		"",
		normalizeNewlines(env.Body),
		"",
	}

	for i, att := range env.Attachments {
		if err := CheckAttachmentName(att.Name); err != nil {
			return "", fmt.Errorf("%w: attachment %d", err, i)
		}
		if hasLineBreak(att.MimeType) {
			return "", fmt.Errorf("%w: attachment %d", ErrInvalidHeader, i)
		}
		lines = append(lines,
			"--"+boundary,
			fmt.Sprintf(`Content-Type: %s; name="%s"`, att.MimeType, att.Name),
			fmt.Sprintf(`Content-Disposition: attachment; filename="%s"`, att.Name),
			"Content-Transfer-Encoding: base64",
			"",
			att.Data,
			"",
		)
	}

	lines = append(lines, "--"+boundary+"--")
	return strings.Join(lines, "\r\n"), nil
}

// EncodeRaw encodes a composed message the way the Gmail API expects it:
// URL-safe base64 without padding.
func EncodeRaw(message string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(message))
}

// Build composes env and encodes it for the transport
func Build(env Envelope, boundary string) (string, error) {
	msg, err := Compose(env, boundary)
	if err != nil {
		return "", err
	}
	return EncodeRaw(msg), nil
}

func hasLineBreak(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
