package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/pbilens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), ":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store, err := OpenSQLite(context.Background(), path, nil)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "sqlite", store.Dialect())
	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestSQLiteStore_ReopenKeepsDocuments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := OpenSQLite(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, &Document{Name: "model.bim", Kind: KindModel, Content: []byte("{}")}))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(ctx, path, nil)
	require.NoError(t, err)
	defer store.Close()

	doc, err := store.Latest(ctx, KindModel)
	require.NoError(t, err)
	assert.Equal(t, "model.bim", doc.Name)
}

func TestSQLiteStore_SaveAndLatest(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	doc := &Document{Name: "report.json", Kind: KindReport, Content: []byte(`{"sections":[]}`), Fingerprint: "abc"}
	require.NoError(t, store.Save(ctx, doc))

	assert.NotEmpty(t, doc.ID)
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := store.Latest(ctx, KindReport)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "report.json", got.Name)
	assert.Equal(t, KindReport, got.Kind)
	assert.Equal(t, []byte(`{"sections":[]}`), got.Content)
	assert.Equal(t, "abc", got.Fingerprint)
	assert.WithinDuration(t, doc.CreatedAt, got.CreatedAt, time.Second)
}

func TestSQLiteStore_LastUploadWinsPerKind(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	uploads := []*Document{
		{Name: "first.json", Kind: KindReport, Content: []byte("1"), CreatedAt: base},
		{Name: "model.bim", Kind: KindModel, Content: []byte("m"), CreatedAt: base.Add(time.Minute)},
		{Name: "second.json", Kind: KindReport, Content: []byte("2"), CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, doc := range uploads {
		require.NoError(t, store.Save(ctx, doc))
	}

	report, err := store.Latest(ctx, KindReport)
	require.NoError(t, err)
	assert.Equal(t, "second.json", report.Name)

	model, err := store.Latest(ctx, KindModel)
	require.NoError(t, err)
	assert.Equal(t, "model.bim", model.Name)

	latest, err := store.LatestAny(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second.json", latest.Name)

	docs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "second.json", docs[0].Name)
	assert.Equal(t, "model.bim", docs[1].Name)
	assert.Nil(t, docs[0].Content)
}

func TestSQLiteStore_NoDocument(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.Latest(ctx, KindDependencies)
	require.ErrorIs(t, err, ErrNoDocument)

	_, err = store.LatestAny(ctx)
	require.ErrorIs(t, err, ErrNoDocument)

	docs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSQLiteStore_RejectsUnknownKind(t *testing.T) {
	store := setupTestStore(t)

	err := store.Save(context.Background(), &Document{Name: "x", Kind: "spreadsheet"})
	assert.ErrorContains(t, err, "invalid document kind")
}

func TestOpen_SelectsBackend(t *testing.T) {
	store, err := Open(context.Background(), Options{Path: ":memory:"}, nil)
	require.NoError(t, err)
	defer store.Close()

	sqlStore, ok := store.(*SQLStore)
	require.True(t, ok)
	assert.Equal(t, "sqlite", sqlStore.Dialect())
}
