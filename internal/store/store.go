// Package store implements the local record store: durable, queryable
// storage of versioned books and entries backed by SQLite. Every mutation
// commits first and then emits a classified event, so refresh consumers
// always observe a state at least as new as the event that woke them.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/moneta/internal/common"
	"github.com/dmitrijs2005/moneta/internal/logging"
	"github.com/dmitrijs2005/moneta/internal/models"
	"github.com/dmitrijs2005/moneta/internal/repositories/audit"
	"github.com/dmitrijs2005/moneta/internal/repositories/books"
	"github.com/dmitrijs2005/moneta/internal/repositories/entries"
	"github.com/dmitrijs2005/moneta/internal/store/migrations"
	"github.com/dmitrijs2005/moneta/internal/timex"
	"github.com/dmitrijs2005/moneta/internal/version"
)

// Notifier receives one classified signal per committed mutation.
// The event bus implements it; a nil notifier disables signalling.
type Notifier interface {
	RecordMutated(op models.OpKind, kind models.Kind)
}

// Store is the single shared mutable resource of the client: all components
// read and write through it rather than caching independent copies.
type Store struct {
	db      *sql.DB
	books   books.Repository
	entries entries.Repository
	audit   audit.Repository
	bridge  *Bridge
	notify  Notifier
	log     logging.Logger
	now     func() int64
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier attaches the mutation event sink.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notify = n }
}

// WithClock overrides the millisecond clock, for tests.
func WithClock(now func() int64) Option {
	return func(s *Store) { s.now = now }
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (or creates) the local database at dsn, applies migrations and
// returns a ready Store with the id bridge hydrated.
func Open(ctx context.Context, dsn string, log logging.Logger, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := New(db, log, opts...)
	if err := s.Hydrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// New wires a Store over an existing database handle. Migrations are the
// caller's responsibility.
func New(db *sql.DB, log logging.Logger, opts ...Option) *Store {
	s := &Store{
		db:      db,
		books:   books.NewSQLiteRepository(db),
		entries: entries.NewSQLiteRepository(db),
		audit:   audit.NewSQLiteRepository(db),
		bridge:  NewBridge(),
		log:     log,
		now:     timex.NowMillis,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Bridge exposes the cid↔serverID mapping.
func (s *Store) Bridge() *Bridge {
	return s.bridge
}

// DB exposes the raw handle for transactional callers.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) emit(op models.OpKind, kind models.Kind) {
	if s.notify != nil {
		s.notify.RecordMutated(op, kind)
	}
}

// Hydrate rebuilds the in-memory id bridge from storage. Run once on
// startup; emits a background-classified event.
func (s *Store) Hydrate(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT cid, server_id FROM books WHERE server_id != ''`)
	if err != nil {
		return fmt.Errorf("failed to hydrate book ids: %w", err)
	}
	if err := s.hydrateBridge(rows, models.KindBook); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT cid, server_id FROM entries WHERE server_id != ''`)
	if err != nil {
		return fmt.Errorf("failed to hydrate entry ids: %w", err)
	}
	if err := s.hydrateBridge(rows, models.KindEntry); err != nil {
		return err
	}

	s.emit(models.OpHydrate, models.KindBook)
	return nil
}

func (s *Store) hydrateBridge(rows *sql.Rows, kind models.Kind) error {
	defer rows.Close()
	for rows.Next() {
		var cid, serverID string
		if err := rows.Scan(&cid, &serverID); err != nil {
			return err
		}
		s.bridge.Bind(kind, cid, serverID)
	}
	return rows.Err()
}

// prepare validates identity, assigns a cid on first write, stamps
// timestamps and fills version/checksum when the caller left them unset.
func (s *Store) prepare(r *models.LocalRecord, checksum func() string, create bool) error {
	if r.UserID == "" {
		return common.ErrInvalidIdentity
	}
	now := s.now()
	if create {
		if r.CID == "" {
			r.CID = uuid.NewString()
		}
		if r.CreatedAt == 0 {
			r.CreatedAt = now
		}
	}
	r.UpdatedAt = now
	if r.VKey == 0 {
		r.VKey = version.Next(0)
	}
	if r.Checksum == "" {
		r.Checksum = checksum()
	}
	return nil
}

// PutBook persists a book and emits one event classified by op.
func (s *Store) PutBook(ctx context.Context, op models.OpKind, b *models.Book) error {
	create := op == models.OpCreate || op == models.OpServerCreate
	if err := s.prepare(&b.LocalRecord, func() string { return version.BookChecksum(b.Fields()) }, create); err != nil {
		return err
	}

	var err error
	if create {
		err = s.books.Insert(ctx, b)
	} else {
		err = s.books.Update(ctx, b)
	}
	if err != nil {
		return err
	}

	s.bridge.Bind(models.KindBook, b.CID, b.ServerID)
	s.emit(op, models.KindBook)
	return nil
}

// PutEntry persists an entry and emits one event classified by op.
func (s *Store) PutEntry(ctx context.Context, op models.OpKind, e *models.Entry) error {
	create := op == models.OpCreate || op == models.OpServerCreate
	if err := s.prepare(&e.LocalRecord, func() string { return version.EntryChecksum(e.Fields()) }, create); err != nil {
		return err
	}

	var err error
	if create {
		err = s.entries.Insert(ctx, e)
	} else {
		err = s.entries.Update(ctx, e)
	}
	if err != nil {
		return err
	}

	s.bridge.Bind(models.KindEntry, e.CID, e.ServerID)
	s.emit(op, models.KindEntry)
	return nil
}

// DeleteBook tombstones a book. The record stays in storage, re-enters the
// push cycle and keeps participating in conflict detection.
func (s *Store) DeleteBook(ctx context.Context, userID, cid string) error {
	b, err := s.Book(ctx, userID, cid)
	if err != nil {
		return err
	}
	s.tombstone(&b.LocalRecord)
	if err := s.books.Update(ctx, b); err != nil {
		return err
	}
	s.emit(models.OpDelete, models.KindBook)
	return nil
}

// DeleteEntry tombstones an entry.
func (s *Store) DeleteEntry(ctx context.Context, userID, cid string) error {
	e, err := s.Entry(ctx, userID, cid)
	if err != nil {
		return err
	}
	s.tombstone(&e.LocalRecord)
	if err := s.entries.Update(ctx, e); err != nil {
		return err
	}
	s.emit(models.OpDelete, models.KindEntry)
	return nil
}

// A tombstone is an ordinary mutation: version bumps, sync state resets.
// The tombstone also wins over any in-flight conflict resolution, which the
// resolver drops when it observes the deletion.
func (s *Store) tombstone(r *models.LocalRecord) {
	r.Deleted = true
	r.Synced = false
	r.Conflicted = false
	r.ServerData = nil
	r.VKey = version.Next(r.VKey)
	r.UpdatedAt = s.now()
}

// Book returns a single book in the user's scope.
func (s *Store) Book(ctx context.Context, userID, cid string) (*models.Book, error) {
	if userID == "" {
		return nil, common.ErrInvalidIdentity
	}
	return s.books.GetByCID(ctx, userID, cid)
}

// Entry returns a single entry in the user's scope.
func (s *Store) Entry(ctx context.Context, userID, cid string) (*models.Entry, error) {
	if userID == "" {
		return nil, common.ErrInvalidIdentity
	}
	return s.entries.GetByCID(ctx, userID, cid)
}

// Books lists the user's books.
func (s *Store) Books(ctx context.Context, userID string, f books.Filter) ([]models.Book, error) {
	if userID == "" {
		return nil, common.ErrInvalidIdentity
	}
	return s.books.List(ctx, userID, f)
}

// Entries lists the user's entries.
func (s *Store) Entries(ctx context.Context, userID string, f entries.Filter) ([]models.Entry, error) {
	if userID == "" {
		return nil, common.ErrInvalidIdentity
	}
	return s.entries.List(ctx, userID, f)
}

// UnsyncedBooks returns books awaiting push, tombstones included.
func (s *Store) UnsyncedBooks(ctx context.Context, userID string) ([]*models.Book, error) {
	return s.books.GetAllUnsynced(ctx, userID)
}

// UnsyncedEntries returns entries awaiting push, tombstones included.
func (s *Store) UnsyncedEntries(ctx context.Context, userID string) ([]*models.Entry, error) {
	return s.entries.GetAllUnsynced(ctx, userID)
}

// IncrementSyncAttempts bumps the failed-push counter for one record.
func (s *Store) IncrementSyncAttempts(ctx context.Context, kind models.Kind, cid string) error {
	switch kind {
	case models.KindBook:
		return s.books.IncrementSyncAttempts(ctx, cid)
	case models.KindEntry:
		return s.entries.IncrementSyncAttempts(ctx, cid)
	default:
		return fmt.Errorf("unknown record kind %q", kind)
	}
}

// AppendAudit writes one immutable audit record.
func (s *Store) AppendAudit(ctx context.Context, rec audit.Record) error {
	return s.audit.Append(ctx, rec)
}

// AuditLog lists the user's audit records, oldest first.
func (s *Store) AuditLog(ctx context.Context, userID string) ([]audit.Record, error) {
	return s.audit.List(ctx, userID)
}
