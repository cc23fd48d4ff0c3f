package messages

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/cryptool/internal/common"
	"github.com/dmitrijs2005/cryptool/internal/models"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE messages (
  id TEXT PRIMARY KEY,
  channel_id TEXT NOT NULL,
  text TEXT NOT NULL,
  envelope TEXT NOT NULL,
  timestamp_millis INTEGER NOT NULL,
  favorite INTEGER NOT NULL DEFAULT 0,
  ownership TEXT NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func testMessage(id, channelId string, ts int64) *models.Message {
	return &models.Message{
		Id:              id,
		ChannelId:       channelId,
		Text:            "Lorem ipsum dolor " + id,
		Envelope:        "c2FsdA.aXYxMjM0NTY3OA.128.Y2lwaGVydGV4dA",
		TimestampMillis: ts,
		Ownership:       models.OwnershipOwn,
	}
}

func TestInsertAndGetByID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	m := testMessage("msg-A", "enc-A", 100)
	require.NoError(t, r.Insert(ctx, m))

	got, err := r.GetByID(ctx, "msg-A")
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = r.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetAllByChannelOrdered(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, testMessage("msg-B", "enc-A", 200)))
	require.NoError(t, r.Insert(ctx, testMessage("msg-A", "enc-A", 100)))
	require.NoError(t, r.Insert(ctx, testMessage("msg-C", "enc-B", 50)))

	got, err := r.GetAllByChannel(ctx, "enc-A")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "msg-A", got[0].Id)
	assert.Equal(t, "msg-B", got[1].Id)

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDelete(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, testMessage("msg-A", "enc-A", 100)))
	require.NoError(t, r.Delete(ctx, "msg-A"))
	assert.ErrorIs(t, r.Delete(ctx, "msg-A"), common.ErrNotFound)
}

func TestDeleteByChannel(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, testMessage("msg-A", "enc-A", 100)))
	require.NoError(t, r.Insert(ctx, testMessage("msg-B", "enc-A", 200)))
	require.NoError(t, r.Insert(ctx, testMessage("msg-C", "enc-B", 300)))

	require.NoError(t, r.DeleteByChannel(ctx, "enc-A"))

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "msg-C", all[0].Id)

	// Deleting messages of an unknown channel is a no-op.
	require.NoError(t, r.DeleteByChannel(ctx, "enc-Z"))
}

func TestSetFavoriteIdempotent(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, testMessage("msg-A", "enc-A", 100)))

	require.NoError(t, r.SetFavorite(ctx, "msg-A", true))
	require.NoError(t, r.SetFavorite(ctx, "msg-A", true))

	got, err := r.GetByID(ctx, "msg-A")
	require.NoError(t, err)
	assert.True(t, got.Favorite)

	assert.ErrorIs(t, r.SetFavorite(ctx, "missing", true), common.ErrNotFound)
}

func TestClear(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, testMessage("msg-A", "enc-A", 100)))
	require.NoError(t, r.Clear(ctx))

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
