package drafts

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "storage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	draft := skills.Draft{
		Category:   "demo",
		Language:   "en",
		Name:       "Hello Bot",
		BuildCode:  "hi|hello\nHello!",
		DesignCode: "::theme dark",
		ConfigCode: "::image images/hello.png",
		Image:      "images/hello.png",
	}

	id, err := store.Save(ctx, "alice", draft)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	loaded, err := store.Load(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, draft, loaded)

	_, err = store.Load(ctx, "bob", id)
	assert.True(t, errors.Is(err, ErrNotFound), "drafts are scoped to their owner")
}

func TestSQLiteStore_SaveRequiresOwner(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Save(context.Background(), "  ", skills.Draft{Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner cannot be empty")
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := store.Save(ctx, "alice", skills.Draft{Name: "first", Category: "a", Language: "en"})
	require.NoError(t, err)
	second, err := store.Save(ctx, "alice", skills.Draft{Name: "second", Category: "b", Language: "fr"})
	require.NoError(t, err)
	_, err = store.Save(ctx, "bob", skills.Draft{Name: "other"})
	require.NoError(t, err)

	list, err := store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, "second", list[0].Name)
	assert.Equal(t, "b", list[0].Category)
	assert.Equal(t, "fr", list[0].Language)
	assert.Equal(t, first, list[1].ID)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))

	empty, err := store.List(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Save(ctx, "alice", skills.Draft{Name: "gone"})
	require.NoError(t, err)

	assert.True(t, errors.Is(store.Delete(ctx, "bob", id), ErrNotFound))
	require.NoError(t, store.Delete(ctx, "alice", id))
	assert.True(t, errors.Is(store.Delete(ctx, "alice", id), ErrNotFound))

	_, err = store.Load(ctx, "alice", id)
	assert.True(t, errors.Is(err, ErrNotFound))
}
