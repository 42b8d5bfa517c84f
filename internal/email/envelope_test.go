package email

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automail/automail/internal/model"
)

func pdf(name string) model.Attachment {
	return model.Attachment{
		Name:     name,
		MimeType: model.PDFMimeType,
		Data:     base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 " + name)),
	}
}

func decodeRaw(t *testing.T, raw string) string {
	t.Helper()
	assert.NotContains(t, raw, "=")
	assert.NotContains(t, raw, "+")
	assert.NotContains(t, raw, "/")
	b, err := base64.RawURLEncoding.DecodeString(raw)
	require.NoError(t, err)
	return string(b)
}

func countLines(msg, line string) int {
	n := 0
	for _, l := range strings.Split(msg, "\r\n") {
		if l == line {
			n++
		}
	}
	return n
}

func TestBuildBoundaryCounts(t *testing.T) {
	const boundary = "automail_boundary_42"

	for _, n := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("%d attachments", n), func(t *testing.T) {
			var atts []model.Attachment
			for i := 0; i < n; i++ {
				atts = append(atts, pdf(fmt.Sprintf("cv-%d.pdf", i)))
			}

			raw, err := Build(Envelope{
				To:          "hr@acme.example",
				Subject:     "Application",
				Body:        "Hello",
				Attachments: atts,
			}, boundary)
			require.NoError(t, err)

			msg := decodeRaw(t, raw)
			assert.Equal(t, n+1, countLines(msg, "--"+boundary))
			assert.Equal(t, 1, countLines(msg, "--"+boundary+"--"))
			assert.True(t, strings.HasSuffix(msg, "--"+boundary+"--"))
		})
	}
}

func TestComposeHeadersAndParts(t *testing.T) {
	att := pdf("resume.pdf")
	msg, err := Compose(Envelope{
		To:          "hr@acme.example",
		Subject:     "Application for Acme",
		Body:        "line one\nline two",
		Attachments: []model.Attachment{att},
	}, "b1")
	require.NoError(t, err)

	cases := []struct {
		name string
		want string
	}{
		{"to header", "To: hr@acme.example\r\n"},
		{"subject header", "Subject: Application for Acme\r\n"},
		{"mime header", "MIME-Version: 1.0\r\n"},
		{"content type header", "Content-Type: multipart/mixed; boundary=\"b1\"\r\n"},
		{"text part", "Content-Type: text/plain; charset=\"UTF-8\"\r\n"},
		{"body with crlf", "\r\nline one\r\nline two\r\n"},
		{"attachment type", "Content-Type: application/pdf; name=\"resume.pdf\"\r\n"},
		{"attachment disposition", "Content-Disposition: attachment; filename=\"resume.pdf\"\r\n"},
		{"attachment encoding", "Content-Transfer-Encoding: base64\r\n"},
		{"attachment data unchanged", "\r\n" + att.Data + "\r\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !strings.Contains(msg, tc.want) {
				t.Errorf("expected %q in message, got:\n%s", tc.want, msg)
			}
		})
	}
}

func TestComposeKeepsAttachmentOrder(t *testing.T) {
	msg, err := Compose(Envelope{
		To:          "a@example.org",
		Attachments: []model.Attachment{pdf("first.pdf"), pdf("second.pdf"), pdf("third.pdf")},
	}, "b")
	require.NoError(t, err)

	first := strings.Index(msg, `filename="first.pdf"`)
	second := strings.Index(msg, `filename="second.pdf"`)
	third := strings.Index(msg, `filename="third.pdf"`)
	assert.True(t, first < second && second < third, "attachments out of order:\n%s", msg)
	assert.Less(t, strings.Index(msg, "text/plain"), first)
}

func TestComposeEncodesNonASCIISubject(t *testing.T) {
	msg, err := Compose(Envelope{To: "a@example.jp", Subject: "【応募】宿泊職種"}, "b")
	require.NoError(t, err)
	assert.Contains(t, msg, "Subject: =?UTF-8?b?")
	assert.NotContains(t, msg, "【応募】")
}

func TestComposeRejectsBadInput(t *testing.T) {
	_, err := Compose(Envelope{To: ""}, "b")
	assert.ErrorIs(t, err, ErrMissingRecipient)

	_, err = Compose(Envelope{To: "a@example.org\r\nBcc: x@example.org"}, "b")
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = Compose(Envelope{To: "a@example.org", Attachments: []model.Attachment{{Name: "x\".pdf", MimeType: model.PDFMimeType}}}, "b")
	assert.ErrorIs(t, err, ErrInvalidFilename)
	assert.NotErrorIs(t, err, ErrInvalidHeader)

	_, err = Compose(Envelope{To: "a@example.org", Attachments: []model.Attachment{{Name: "x.pdf", MimeType: "application/pdf\r\nX-Evil: 1"}}}, "b")
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = Compose(Envelope{To: "a@example.org"}, "")
	assert.ErrorIs(t, err, ErrInvalidBoundary)
}

func TestTimeBoundaryPrefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(TimeBoundary(), "automail_boundary_"))
}

func TestCheckAttachmentName(t *testing.T) {
	assert.NoError(t, CheckAttachmentName("履歴書 2026.pdf"))

	for _, name := range []string{"", "  ", `my "cv".pdf`, "cv\r\n.pdf", "cv\n.pdf"} {
		assert.ErrorIs(t, CheckAttachmentName(name), ErrInvalidFilename, name)
	}
}
