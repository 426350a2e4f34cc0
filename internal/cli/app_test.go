package cli

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/moneta/internal/cache"
	"github.com/dmitrijs2005/moneta/internal/config"
	"github.com/dmitrijs2005/moneta/internal/conflict"
	"github.com/dmitrijs2005/moneta/internal/logging"
	"github.com/dmitrijs2005/moneta/internal/repositories/entries"
	"github.com/dmitrijs2005/moneta/internal/services"
	"github.com/dmitrijs2005/moneta/internal/store"
	"github.com/dmitrijs2005/moneta/internal/syncer"
)

// setupApp wires a full offline client over an in-memory store and scripts
// its stdin with the given lines.
func setupApp(t *testing.T, input ...string) (*App, *store.Store, *bytes.Buffer) {
	t.Helper()
	log := logging.NewSlogLogger(slog.Default())

	st, err := store.Open(context.Background(), ":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.UserID = "u1"

	resolver := conflict.NewResolver(st, log)
	syncSvc := syncer.NewService(st, resolver, syncer.NopOrchestrator{}, log)
	ledger := services.NewLedgerService(st, resolver, syncSvc.TriggerSync, log)
	derived := cache.New(st, cfg.UserID, log)

	a := NewApp(cfg, ledger, resolver, syncSvc, derived, log)
	var out bytes.Buffer
	a.reader = bufio.NewReader(strings.NewReader(strings.Join(input, "\n") + "\n"))
	a.out = &out
	return a, st, &out
}

func TestAddBook_CreatesThroughLedger(t *testing.T) {
	a, st, out := setupApp(t, "Household", "shared costs", "home")
	ctx := context.Background()

	require.NoError(t, a.AddBook(ctx))
	assert.Contains(t, out.String(), "created book Household")

	bks, err := st.UnsyncedBooks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, bks, 1)
	assert.Equal(t, "Household", bks[0].Name)
	assert.Equal(t, int64(1), bks[0].VKey)
}

func TestAddEntry_CreatesThroughLedger(t *testing.T) {
	a, st, out := setupApp(t,
		"Household", "", "", // addbook
	)
	ctx := context.Background()

	require.NoError(t, a.AddBook(ctx))
	bks, err := st.UnsyncedBooks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, bks, 1)

	a.reader = bufio.NewReader(strings.NewReader(strings.Join([]string{
		bks[0].CID, "Coffee", "4.20", "", "2025-06-01",
	}, "\n") + "\n"))

	require.NoError(t, a.AddEntry(ctx))
	assert.Contains(t, out.String(), "created entry Coffee")

	ents, err := st.Entries(ctx, "u1", entries.Filter{})
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Equal(t, "Coffee", ents[0].Title)
	assert.False(t, ents[0].Synced, "a new entry awaits push")
}

func TestAddEntry_RejectsBadAmount(t *testing.T) {
	a, st, _ := setupApp(t, "b1", "Coffee", "four-twenty", "", "2025-06-01")
	ctx := context.Background()

	require.Error(t, a.AddEntry(ctx))

	ents, err := st.Entries(ctx, "u1", entries.Filter{})
	require.NoError(t, err)
	assert.Empty(t, ents)
}

func TestDeleteAndRestore_RoundTrip(t *testing.T) {
	a, st, out := setupApp(t, "Household", "", "")
	ctx := context.Background()

	require.NoError(t, a.AddBook(ctx))
	bks, err := st.UnsyncedBooks(ctx, "u1")
	require.NoError(t, err)

	a.reader = bufio.NewReader(strings.NewReader(strings.Join([]string{
		bks[0].CID, "Coffee", "4.20", "", "2025-06-01",
	}, "\n") + "\n"))
	require.NoError(t, a.AddEntry(ctx))

	ents, err := st.Entries(ctx, "u1", entries.Filter{})
	require.NoError(t, err)
	require.Len(t, ents, 1)
	cid := ents[0].CID

	a.reader = bufio.NewReader(strings.NewReader("entry\n" + cid + "\n"))
	require.NoError(t, a.Delete(ctx))
	assert.Contains(t, out.String(), "deleted entry "+cid)

	a.reader = bufio.NewReader(strings.NewReader(cid + "\n"))
	require.NoError(t, a.Restore(ctx))

	ents, err = st.Entries(ctx, "u1", entries.Filter{})
	require.NoError(t, err)
	require.Len(t, ents, 1, "restored entry is live again")
}

func TestConflictsAndSummary_EmptyState(t *testing.T) {
	a, _, out := setupApp(t, "")
	ctx := context.Background()

	require.NoError(t, a.Conflicts(ctx))
	assert.Contains(t, out.String(), "no conflicts")

	require.NoError(t, a.Summary(ctx))
	assert.Contains(t, out.String(), "entries: 0")
}
