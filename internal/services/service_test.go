package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/cryptool/internal/logging"
	"github.com/dmitrijs2005/cryptool/internal/models"
	"github.com/dmitrijs2005/cryptool/internal/storage"
)

var testDBSeq atomic.Int64

// setupDB opens a named shared in-memory database so that the pool and
// transactions all see the same data. The sequence number keeps fixtures
// apart when one test opens several stores.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"), testDBSeq.Add(1))
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, storage.RunMigrations(context.Background(), db))
	return db
}

func setupChannelService(t *testing.T) (*sql.DB, *ChannelService) {
	t.Helper()
	db := setupDB(t)
	s := NewChannelService(db, logging.NewNop())
	t.Cleanup(s.Close)
	return db, s
}

func setupMessageService(t *testing.T) (*sql.DB, *ChannelService, *MessageService) {
	t.Helper()
	db, cs := setupChannelService(t)
	ms := NewMessageService(db, cs, logging.NewNop())
	t.Cleanup(ms.Close)
	return db, cs, ms
}

// addChannel inserts a channel with a fixed id, bypassing id generation.
func addChannel(t *testing.T, s *ChannelService, channel models.Channel) {
	t.Helper()
	require.NoError(t, s.AddAll(context.Background(), []models.Channel{channel}))
}
