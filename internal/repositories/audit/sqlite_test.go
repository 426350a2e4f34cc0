package audit

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/moneta/internal/models"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE audit_log (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  cid TEXT NOT NULL,
  kind TEXT NOT NULL,
  decision TEXT NOT NULL,
  ts INTEGER NOT NULL,
  user_id TEXT NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func TestAppendAndList_OrderedOldestFirst(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Append(ctx, Record{CID: "e1", Kind: models.KindEntry, Decision: "local", Timestamp: 1, UserID: "u1"}))
	require.NoError(t, r.Append(ctx, Record{CID: "e2", Kind: models.KindEntry, Decision: "remote", Timestamp: 2, UserID: "u1"}))
	require.NoError(t, r.Append(ctx, Record{CID: "b1", Kind: models.KindBook, Decision: "local", Timestamp: 3, UserID: "u2"}))

	got, err := r.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].CID)
	assert.Equal(t, "local", got[0].Decision)
	assert.Equal(t, models.KindEntry, got[0].Kind)
	assert.Equal(t, "e2", got[1].CID)
}

func TestList_EmptyForUnknownUser(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	got, err := r.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}
