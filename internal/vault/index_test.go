package vault

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/photovault/internal/common"
	"github.com/dmitrijs2005/photovault/internal/cryptox"
	"github.com/dmitrijs2005/photovault/internal/keystore"
	"github.com/dmitrijs2005/photovault/internal/logging"
)

func newTestEngine() *cryptox.Engine {
	return cryptox.NewEngine(keystore.NewMemoryStore())
}

func newTestIndex(t *testing.T) (*Index, string) {
	t.Helper()
	dir := t.TempDir()
	return NewIndex(dir, newTestEngine(), logging.NopLogger{}), dir
}

func sampleItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		id := string(rune('a' + i))
		items[i] = Item{
			ID:                id,
			OriginalTimestamp: time.Date(2024, 6, 1+i, 12, 0, 0, 0, time.UTC),
			AddedTimestamp:    time.Date(2024, 7, 1+i, 12, 0, 0, 0, time.UTC),
			ContentRef:        id + contentExt,
			ThumbnailRef:      id + thumbnailExt,
		}
	}
	return items
}

func TestIndex_LoadMissingFileMeansEmptyVault(t *testing.T) {
	ix, dir := newTestIndex(t)
	ctx := context.Background()

	items, err := ix.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	// First load initializes the metadata file.
	raw, err := os.ReadFile(filepath.Join(dir, metadataFileName))
	require.NoError(t, err)

	var meta CatalogMetadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, SchemaVersion, meta.SchemaVersion)
	assert.Equal(t, WriterVersion, meta.WriterVersion)
	assert.False(t, meta.CreatedAt.IsZero())
}

func TestIndex_SaveLoadRoundTrip(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()

	want := sampleItems(3)
	want[1].SourceRef = "photos://album/42"
	require.NoError(t, ix.Save(ctx, want))

	got, err := ix.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIndex_FileIsCiphertext(t *testing.T) {
	ix, dir := newTestIndex(t)
	ctx := context.Background()

	items := sampleItems(2)
	require.NoError(t, ix.Save(ctx, items))

	raw, err := os.ReadFile(filepath.Join(dir, indexFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), items[0].ID)
	assert.NotContains(t, string(raw), "original_ts")
}

func TestIndex_CorruptFileIsNeverAnEmptyVault(t *testing.T) {
	ix, dir := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Save(ctx, sampleItems(2)))

	path := filepath.Join(dir, indexFileName)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)/2] ^= 0x01
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = ix.Load(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrIndexCorrupted)
}

func TestIndex_SchemaNewerThanSupportedIsRejected(t *testing.T) {
	ix, dir := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Save(ctx, sampleItems(1)))

	meta := CatalogMetadata{SchemaVersion: SchemaVersion + 1, WriterVersion: "photovault/9.9.9"}
	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, metadataFileName), raw, 0o600))

	_, err = ix.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

// writeV1Catalog persists a schema-1 catalog the way a v1 writer would have.
func writeV1Catalog(t *testing.T, ix *Index, dir string, old []itemV1) {
	t.Helper()
	ctx := context.Background()

	plaintext, err := json.Marshal(old)
	require.NoError(t, err)
	sealed, err := ix.engine.Seal(ctx, plaintext)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexFileName), sealed, 0o600))

	meta := CatalogMetadata{
		SchemaVersion: 1,
		CreatedAt:     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		WriterVersion: "photovault/0.9.0",
	}
	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, metadataFileName), raw, 0o600))
}

func TestIndex_MigratesV1OnLoad(t *testing.T) {
	ix, dir := newTestIndex(t)
	ctx := context.Background()

	old := []itemV1{
		{ID: "p1", OriginalTimestamp: time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC), AddedTimestamp: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)},
		{ID: "p2", OriginalTimestamp: time.Date(2022, 8, 9, 10, 11, 12, 0, time.UTC), AddedTimestamp: time.Date(2023, 2, 3, 4, 5, 6, 0, time.UTC)},
	}
	writeV1Catalog(t, ix, dir, old)

	items, err := ix.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ID)
	assert.Equal(t, "p1"+contentExt, items[0].ContentRef)
	assert.Equal(t, "p2"+thumbnailExt, items[1].ThumbnailRef)
	assert.Empty(t, items[0].SourceRef)
	assert.Equal(t, old[0].OriginalTimestamp, items[0].OriginalTimestamp)

	// Migration persists: the metadata is now current and a second load
	// yields the identical catalog without re-migrating.
	raw, err := os.ReadFile(filepath.Join(dir, metadataFileName))
	require.NoError(t, err)
	var meta CatalogMetadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, SchemaVersion, meta.SchemaVersion)

	again, err := ix.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, items, again)
}

func TestIndex_LoadRefreshesLastAccessed(t *testing.T) {
	ix, dir := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Save(ctx, nil))

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	ix.now = func() time.Time { return base }
	_, err := ix.Load(ctx)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, metadataFileName))
	require.NoError(t, err)
	var meta CatalogMetadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, base, meta.LastAccessedAt)
}

func TestIndex_DestroyRemovesFilesAndIsIdempotent(t *testing.T) {
	ix, dir := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Save(ctx, sampleItems(1)))

	require.NoError(t, ix.Destroy())
	_, err := os.Stat(filepath.Join(dir, indexFileName))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, metadataFileName))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, ix.Destroy())
}
