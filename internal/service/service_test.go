package service

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automail/automail/internal/auth"
	"github.com/automail/automail/internal/config"
	"github.com/automail/automail/internal/database"
	"github.com/automail/automail/internal/dispatch"
	"github.com/automail/automail/internal/email"
	"github.com/automail/automail/internal/logger"
	"github.com/automail/automail/internal/model"
	"github.com/automail/automail/internal/repository"
)

type services struct {
	templates *TemplateService
	batches   *BatchService
	settings  *SettingsService
}

func newServices(t *testing.T) services {
	t.Helper()
	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "svc.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := repository.NewStore(db)
	log := logger.Nop()
	return services{
		templates: NewTemplateService(repository.NewTemplateRepository(store), log),
		batches:   NewBatchService(repository.NewBatchRepository(store), log),
		settings:  NewSettingsService(repository.NewSettingsRepository(store, nil), log),
	}
}

func TestTemplateCreateRequiresNameAndContent(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	_, err := s.templates.Create(ctx, TemplateInput{Name: "", Content: "body"})
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	_, err = s.templates.Create(ctx, TemplateInput{Name: "name", Content: "  "})
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	tpl, err := s.templates.Create(ctx, TemplateInput{Name: "Hotel", Subject: "Hi {{company}}", Content: "Body"})
	require.NoError(t, err)
	assert.NotEmpty(t, tpl.ID)
	assert.Empty(t, tpl.Attachments)
}

func TestTemplateUpdateKeepsIDAndAttachments(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	tpl, err := s.templates.Create(ctx, TemplateInput{Name: "a", Content: "b"})
	require.NoError(t, err)
	_, err = s.templates.AddAttachment(ctx, tpl.ID, "cv.pdf", model.PDFMimeType, []byte("%PDF-1.4"))
	require.NoError(t, err)

	updated, err := s.templates.Update(ctx, tpl.ID, TemplateInput{Name: "renamed", Subject: "s", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, tpl.ID, updated.ID)
	assert.Equal(t, "renamed", updated.Name)
	assert.Len(t, updated.Attachments, 1)
}

func TestTemplateUpdateMissing(t *testing.T) {
	s := newServices(t)
	_, err := s.templates.Update(context.Background(), "missing", TemplateInput{Name: "a", Content: "b"})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestTemplateRejectsNonPDFAttachment(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	tpl, err := s.templates.Create(ctx, TemplateInput{Name: "a", Content: "b"})
	require.NoError(t, err)

	_, err = s.templates.AddAttachment(ctx, tpl.ID, "photo.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	assert.ErrorIs(t, err, ErrUnsupportedAttachment)

	stored, err := s.templates.Get(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Attachments)
}

func TestTemplateRejectsUnsendableAttachmentName(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	tpl, err := s.templates.Create(ctx, TemplateInput{Name: "a", Subject: "s", Content: "b"})
	require.NoError(t, err)

	for _, name := range []string{`my "cv".pdf`, "cv\r\n.pdf", ""} {
		_, err = s.templates.AddAttachment(ctx, tpl.ID, name, model.PDFMimeType, []byte("%PDF-1.4"))
		assert.ErrorIs(t, err, ErrInvalidAttachment, name)
	}

	_, err = s.templates.AddAttachment(ctx, tpl.ID, "my cv.pdf", model.PDFMimeType, []byte("%PDF-1.4"))
	require.NoError(t, err)

	stored, err := s.templates.Get(ctx, tpl.ID)
	require.NoError(t, err)
	require.Len(t, stored.Attachments, 1)

	_, err = email.Build(email.Envelope{To: "hr@acme.example", Subject: stored.Subject, Body: stored.Content, Attachments: stored.Attachments}, "b")
	assert.NoError(t, err)
}

func TestTemplateAttachmentsKeepOrder(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	tpl, err := s.templates.Create(ctx, TemplateInput{Name: "a", Content: "b"})
	require.NoError(t, err)

	for _, name := range []string{"cv.pdf", "letter.pdf", "refs.pdf"} {
		_, err = s.templates.AddAttachment(ctx, tpl.ID, name, model.PDFMimeType, []byte(name))
		require.NoError(t, err)
	}

	got, err := s.templates.RemoveAttachment(ctx, tpl.ID, 1)
	require.NoError(t, err)
	require.Len(t, got.Attachments, 2)
	assert.Equal(t, "cv.pdf", got.Attachments[0].Name)
	assert.Equal(t, "refs.pdf", got.Attachments[1].Name)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("cv.pdf")), got.Attachments[0].Data)

	_, err = s.templates.RemoveAttachment(ctx, tpl.ID, 5)
	assert.ErrorIs(t, err, ErrAttachmentNotFound)
}

func TestTemplateDelete(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	tpl, err := s.templates.Create(ctx, TemplateInput{Name: "a", Content: "b"})
	require.NoError(t, err)
	require.NoError(t, s.templates.Delete(ctx, tpl.ID))

	_, err = s.templates.Get(ctx, tpl.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.NoError(t, s.templates.Delete(ctx, tpl.ID))
}

func TestBatchCreateValidation(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	_, err := s.batches.Create(ctx, BatchInput{Name: "empty"})
	assert.ErrorIs(t, err, ErrInvalidBatch)

	_, err = s.batches.Create(ctx, BatchInput{Recipients: []RecipientInput{{Company: "Acme", Email: "a@acme.example"}}})
	assert.ErrorIs(t, err, ErrInvalidBatch)

	_, err = s.batches.Create(ctx, BatchInput{Name: "n", Recipients: []RecipientInput{{Company: "Acme"}}})
	assert.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestBatchRecipientsGetUniqueIDs(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	b, err := s.batches.Create(ctx, BatchInput{
		Name: "Kyoto",
		Recipients: []RecipientInput{
			{Company: "Acme", Email: "hr@acme.example"},
			{Company: "Acme", Email: "hr@acme.example"},
		},
	})
	require.NoError(t, err)
	require.Len(t, b.Recipients, 2)
	assert.NotEqual(t, b.Recipients[0].ID, b.Recipients[1].ID)

	b, r, err := s.batches.AddRecipient(ctx, b.ID, RecipientInput{Company: "Globex", Email: "jobs@globex.example"})
	require.NoError(t, err)
	require.Len(t, b.Recipients, 3)
	assert.Equal(t, *r, b.Recipients[2])
}

func TestBatchRemoveRecipient(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	b, err := s.batches.Create(ctx, BatchInput{
		Name: "n",
		Recipients: []RecipientInput{
			{Company: "Acme", Email: "a@acme.example"},
			{Company: "Globex", Email: "g@globex.example"},
		},
	})
	require.NoError(t, err)

	b, err = s.batches.RemoveRecipient(ctx, b.ID, b.Recipients[0].ID)
	require.NoError(t, err)
	require.Len(t, b.Recipients, 1)
	assert.Equal(t, "Globex", b.Recipients[0].Company)

	_, err = s.batches.RemoveRecipient(ctx, b.ID, "nope")
	assert.ErrorIs(t, err, ErrRecipientNotFound)

	_, err = s.batches.RemoveRecipient(ctx, b.ID, b.Recipients[0].ID)
	assert.ErrorIs(t, err, ErrInvalidBatch)
}

func TestBatchGetMissing(t *testing.T) {
	s := newServices(t)
	_, err := s.batches.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestSettingsLifecycle(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	s.settings.now = func() time.Time { return now }

	_, err := s.settings.SetClientID(ctx, "client-1")
	require.NoError(t, err)

	st, err := s.settings.Login(ctx, auth.TokenResult{AccessToken: "ya29.tok", ExpiresIn: 3600})
	require.NoError(t, err)
	assert.Equal(t, "client-1", st.ClientID)
	assert.Equal(t, now.UnixMilli()+3_600_000, st.TokenExpiry)

	v, err := s.settings.View(ctx)
	require.NoError(t, err)
	assert.True(t, v.LoggedIn)
	require.NotNil(t, v.TokenExpiry)

	require.NoError(t, s.settings.Logout(ctx))
	st, err = s.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AppSettings{ClientID: "client-1"}, st)

	ok, err := s.settings.IsLoggedIn(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettingsClientIDChangeDropsToken(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	_, err := s.settings.Login(ctx, auth.TokenResult{AccessToken: "tok", ExpiresIn: 60})
	require.NoError(t, err)
	_, err = s.settings.SetClientID(ctx, "client-2")
	require.NoError(t, err)

	st, err := s.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AppSettings{ClientID: "client-2"}, st)
}

type countingTransport struct{ sent int }

func (c *countingTransport) Send(context.Context, string, string) error {
	c.sent++
	return nil
}

func TestSendServiceResolvesIDs(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	tpl, err := s.templates.Create(ctx, TemplateInput{Name: "a", Subject: "Hi {{company}}", Content: "b"})
	require.NoError(t, err)
	b, err := s.batches.Create(ctx, BatchInput{Name: "n", Recipients: []RecipientInput{
		{Company: "Acme", Email: "a@acme.example"},
		{Company: "Globex", Email: "g@globex.example"},
	}})
	require.NoError(t, err)

	tr := &countingTransport{}
	ctrl := dispatch.New(tr, dispatch.WithInterval(0))
	send := NewSendService(s.templates, s.batches, s.settings, ctrl, logger.Nop())

	_, err = send.Run(ctx, tpl.ID, b.ID)
	assert.ErrorIs(t, err, dispatch.ErrAuthExpired)

	_, err = s.settings.Login(ctx, auth.TokenResult{AccessToken: "tok", ExpiresIn: 3600})
	require.NoError(t, err)

	summary, err := send.Run(ctx, tpl.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.SuccessCount)
	assert.Equal(t, 2, tr.sent)

	_, err = send.Run(ctx, "", b.ID)
	assert.ErrorIs(t, err, dispatch.ErrSelectionIncomplete)

	_, err = send.Run(ctx, "missing", b.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	_, err = send.Run(ctx, tpl.ID, "missing")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}
