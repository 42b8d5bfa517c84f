package repository

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automail/automail/internal/config"
	"github.com/automail/automail/internal/crypto"
	"github.com/automail/automail/internal/database"
	"github.com/automail/automail/internal/model"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	db, err := database.Open(context.Background(), config.DatabaseConfig{Driver: database.DriverSQLite, Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), path
}

func TestCollectionPutThenDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	templates := NewTemplateRepository(store)

	tpl := model.Template{ID: "t-1", Name: "Front desk", Subject: "Hi", Content: "Body"}
	require.NoError(t, templates.Put(ctx, tpl))

	all, err := templates.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, tpl.ID, all[0].ID)

	require.NoError(t, templates.Delete(ctx, tpl.ID))

	all, err = templates.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCollectionPutSameIDLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	batches := NewBatchRepository(store)

	require.NoError(t, batches.Put(ctx, model.Batch{ID: "b-1", Name: "first"}))
	require.NoError(t, batches.Put(ctx, model.Batch{ID: "b-1", Name: "second"}))

	all, err := batches.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "second", all[0].Name)
}

func TestCollectionDeleteMissingIsNoop(t *testing.T) {
	store, _ := openTestStore(t)
	assert.NoError(t, NewBatchRepository(store).Delete(context.Background(), "nope"))
}

func TestCollectionGetMissing(t *testing.T) {
	store, _ := openTestStore(t)
	_, err := NewTemplateRepository(store).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollectionPutRequiresID(t *testing.T) {
	store, _ := openTestStore(t)
	err := NewTemplateRepository(store).Put(context.Background(), model.Template{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCollectionsAreSeparate(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	require.NoError(t, NewTemplateRepository(store).Put(ctx, model.Template{ID: "same"}))
	require.NoError(t, NewBatchRepository(store).Put(ctx, model.Batch{ID: "same"}))
	require.NoError(t, NewBatchRepository(store).Delete(ctx, "same"))

	got, err := NewTemplateRepository(store).Get(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, "same", got.ID)
}

func TestRecordsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "durable.db")
	cfg := config.DatabaseConfig{Driver: database.DriverSQLite, Path: path}

	db, err := database.Open(ctx, cfg)
	require.NoError(t, err)
	batch := model.Batch{
		ID:   "b-1",
		Name: "Kyoto hotels",
		Recipients: []model.Recipient{
			{ID: "r-1", Company: "Acme", Email: "hr@acme.example"},
			{ID: "r-2", Company: "Globex", Email: "jobs@globex.example"},
		},
	}
	require.NoError(t, NewBatchRepository(NewStore(db)).Put(ctx, batch))
	require.NoError(t, db.Close())

	db, err = database.Open(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	got, err := NewBatchRepository(NewStore(db)).Get(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, batch, got)
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "closed.db")
	db, err := database.Open(ctx, config.DatabaseConfig{Driver: database.DriverSQLite, Path: path})
	require.NoError(t, err)
	store := NewStore(db)
	require.NoError(t, db.Close())

	err = NewTemplateRepository(store).Put(ctx, model.Template{ID: "t-1"})
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = NewTemplateRepository(store).GetAll(ctx)
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	err = NewTemplateRepository(store).Delete(ctx, "t-1")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestSettingsDefaultsWhenEmpty(t *testing.T) {
	store, _ := openTestStore(t)
	s, err := NewSettingsRepository(store, nil).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.AppSettings{}, s)
}

func TestSettingsOverwrittenWholesale(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	repo := NewSettingsRepository(store, nil)

	require.NoError(t, repo.Save(ctx, model.AppSettings{ClientID: "cid", AccessToken: "tok", TokenExpiry: 42}))
	require.NoError(t, repo.Save(ctx, model.AppSettings{ClientID: "cid"}))

	s, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AppSettings{ClientID: "cid"}, s)
}

func TestSettingsTokenSealedAtRest(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	sealer, err := crypto.NewSealer(key)
	require.NoError(t, err)
	repo := NewSettingsRepository(store, sealer)

	want := model.AppSettings{ClientID: "cid", AccessToken: "ya29.secret", TokenExpiry: 99}
	require.NoError(t, repo.Save(ctx, want))

	var raw model.AppSettings
	require.NoError(t, store.GetSingleton(ctx, SettingsKey, &raw))
	assert.NotEqual(t, want.AccessToken, raw.AccessToken)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
