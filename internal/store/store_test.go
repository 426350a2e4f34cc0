package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/moneta/internal/common"
	"github.com/dmitrijs2005/moneta/internal/logging"
	"github.com/dmitrijs2005/moneta/internal/models"
	"github.com/dmitrijs2005/moneta/internal/repositories/audit"
	"github.com/dmitrijs2005/moneta/internal/repositories/books"
	"github.com/dmitrijs2005/moneta/internal/repositories/entries"
)

type capturedEvent struct {
	op   models.OpKind
	kind models.Kind
}

type testNotifier struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (n *testNotifier) RecordMutated(op models.OpKind, kind models.Kind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, capturedEvent{op: op, kind: kind})
}

func (n *testNotifier) last(t *testing.T) capturedEvent {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.events)
	return n.events[len(n.events)-1]
}

func setupStore(t *testing.T) (*Store, *testNotifier) {
	t.Helper()
	n := &testNotifier{}
	log := logging.NewSlogLogger(slog.Default())

	s, err := Open(context.Background(), ":memory:", log, WithNotifier(n))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, n
}

func newBook(userID, name string) *models.Book {
	b := &models.Book{Name: name, Category: "home"}
	b.UserID = userID
	return b
}

func newEntry(userID, bookID, title string) *models.Entry {
	e := &models.Entry{
		BookID:    bookID,
		Title:     title,
		Amount:    decimal.RequireFromString("10"),
		Direction: models.DirectionExpense,
		Status:    models.StatusCompleted,
		Date:      "2025-03-01",
	}
	e.UserID = userID
	return e
}

func TestPutBook_CreateFillsDefaults(t *testing.T) {
	s, n := setupStore(t)
	ctx := context.Background()

	b := newBook("u1", "Household")
	require.NoError(t, s.PutBook(ctx, models.OpCreate, b))

	assert.NotEmpty(t, b.CID, "cid assigned on first write")
	assert.Equal(t, int64(1), b.VKey)
	assert.NotEmpty(t, b.Checksum)
	assert.Greater(t, b.CreatedAt, int64(0))
	assert.Greater(t, b.LocalID, int64(0))

	ev := n.last(t)
	assert.Equal(t, models.OpCreate, ev.op)
	assert.Equal(t, models.KindBook, ev.kind)
}

func TestPutBook_MissingIdentity(t *testing.T) {
	s, _ := setupStore(t)

	b := &models.Book{Name: "orphan"}
	err := s.PutBook(context.Background(), models.OpCreate, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidIdentity))
}

func TestPutBook_DuplicateCID(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	b := newBook("u1", "Household")
	require.NoError(t, s.PutBook(ctx, models.OpCreate, b))

	dup := newBook("u1", "Copy")
	dup.CID = b.CID
	err := s.PutBook(ctx, models.OpCreate, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDuplicateRecord))
}

func TestDeleteEntry_Tombstones(t *testing.T) {
	s, n := setupStore(t)
	ctx := context.Background()

	b := newBook("u1", "Household")
	require.NoError(t, s.PutBook(ctx, models.OpCreate, b))

	e := newEntry("u1", b.CID, "Coffee")
	require.NoError(t, s.PutEntry(ctx, models.OpCreate, e))
	vkeyBefore := e.VKey

	require.NoError(t, s.DeleteEntry(ctx, "u1", e.CID))

	got, err := s.Entry(ctx, "u1", e.CID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
	assert.False(t, got.Synced)
	assert.Equal(t, vkeyBefore+1, got.VKey, "a tombstone is a versioned mutation")

	// excluded from live queries, still visible to sync
	live, err := s.Entries(ctx, "u1", entries.Filter{})
	require.NoError(t, err)
	assert.Empty(t, live)

	unsynced, err := s.UnsyncedEntries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.True(t, unsynced[0].Deleted)

	ev := n.last(t)
	assert.Equal(t, models.OpDelete, ev.op)
}

func TestHydrate_RebuildsBridge(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	b := newBook("u1", "Household")
	b.ServerID = "srv-42"
	require.NoError(t, s.PutBook(ctx, models.OpCreate, b))

	// fresh store over the same handle: bridge starts empty
	s2 := New(s.DB(), logging.NewSlogLogger(slog.Default()))
	_, ok := s2.Bridge().ServerID(models.KindBook, b.CID)
	require.False(t, ok)

	require.NoError(t, s2.Hydrate(ctx))

	serverID, ok := s2.Bridge().ServerID(models.KindBook, b.CID)
	require.True(t, ok)
	assert.Equal(t, "srv-42", serverID)

	cid, ok := s2.Bridge().CID(models.KindBook, "srv-42")
	require.True(t, ok)
	assert.Equal(t, b.CID, cid)
}

func TestIncrementSyncAttempts_RoutedByKind(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	b := newBook("u1", "Household")
	require.NoError(t, s.PutBook(ctx, models.OpCreate, b))

	require.NoError(t, s.IncrementSyncAttempts(ctx, models.KindBook, b.CID))
	got, err := s.Book(ctx, "u1", b.CID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SyncAttempts)

	err = s.IncrementSyncAttempts(ctx, models.Kind("bogus"), b.CID)
	require.Error(t, err)
}

func TestQueries_RejectEmptyIdentity(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	_, err := s.Books(ctx, "", books.Filter{})
	assert.True(t, errors.Is(err, common.ErrInvalidIdentity))

	_, err = s.Entries(ctx, "", entries.Filter{})
	assert.True(t, errors.Is(err, common.ErrInvalidIdentity))

	_, err = s.Book(ctx, "", "cid")
	assert.True(t, errors.Is(err, common.ErrInvalidIdentity))
}

func TestAuditLog_AppendAndList(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendAudit(ctx, audit.Record{
		CID: "e1", Kind: models.KindEntry, Decision: "local", Timestamp: 10, UserID: "u1",
	}))

	got, err := s.AuditLog(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "local", got[0].Decision)
}
