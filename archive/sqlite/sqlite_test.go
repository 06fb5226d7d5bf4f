package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/textflow/archive"
	"github.com/smallnest/textflow/archive/sqlite"
)

func newStore(t *testing.T) *sqlite.SqliteStore {
	t.Helper()

	store, err := sqlite.NewSqliteStore(sqlite.SqliteOptions{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSqliteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	record := &archive.Record{
		ID:             "r1",
		Text:           "A new study shows a breakthrough in solar cells.",
		Category:       "research",
		Classification: "Research",
		Entities:       []string{"Dr. Eva Rostova", "Zurich Institute of Technology"},
		Summary:        "Record solar cell efficiency.",
		Report:         "## Text Analysis Report",
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save(ctx, record))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.Entities, got.Entities)
	assert.Equal(t, record.Summary, got.Summary)
	assert.Empty(t, got.Sentiment)
	assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
}

func TestSqliteStoreGetMissing(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, archive.ErrNotFound)
}

func TestSqliteStoreSaveOverwrites(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	record := &archive.Record{
		ID: "r1", Text: "t", Category: "news", Classification: "News",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Save(ctx, record))

	record.Summary = "updated"
	require.NoError(t, store.Save(ctx, record))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Summary)
}

func TestSqliteStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for _, rec := range []struct {
		id  string
		age time.Duration
	}{
		{"old", 2 * time.Hour},
		{"new", 0},
		{"mid", time.Hour},
	} {
		require.NoError(t, store.Save(ctx, &archive.Record{
			ID: rec.id, Text: "t", Category: "news", Classification: "News",
			CreatedAt: base.Add(-rec.age),
		}))
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "old", all[2].ID)

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new", limited[0].ID)
}

func TestSqliteStoreDelete(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &archive.Record{
		ID: "r1", Text: "t", Category: "news", Classification: "News",
		CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.Delete(ctx, "r1"))
	assert.ErrorIs(t, store.Delete(ctx, "r1"), archive.ErrNotFound)
}
