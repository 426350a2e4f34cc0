// Package services contains the user-facing ledger operations: optimistic
// local writes with version bumps, tombstone deletes and restores. Every
// accepted mutation re-enters the push pipeline through the sync trigger.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/moneta/internal/common"
	"github.com/dmitrijs2005/moneta/internal/conflict"
	"github.com/dmitrijs2005/moneta/internal/logging"
	"github.com/dmitrijs2005/moneta/internal/models"
	"github.com/dmitrijs2005/moneta/internal/repositories/books"
	"github.com/dmitrijs2005/moneta/internal/repositories/entries"
	"github.com/dmitrijs2005/moneta/internal/store"
	"github.com/dmitrijs2005/moneta/internal/version"
)

// LedgerService is the write/read API the UI layer talks to.
type LedgerService interface {
	CreateBook(ctx context.Context, userID string, fields models.BookFields) (*models.Book, error)
	UpdateBook(ctx context.Context, userID, cid string, fields models.BookFields) (*models.Book, error)
	DeleteBook(ctx context.Context, userID, cid string) error
	Books(ctx context.Context, userID string, f books.Filter) ([]models.Book, error)

	CreateEntry(ctx context.Context, userID string, fields models.EntryFields) (*models.Entry, error)
	UpdateEntry(ctx context.Context, userID, cid string, fields models.EntryFields) (*models.Entry, error)
	DeleteEntry(ctx context.Context, userID, cid string) error
	RestoreEntry(ctx context.Context, userID, cid string) (*models.Entry, error)
	Entries(ctx context.Context, userID string, f entries.Filter) ([]models.Entry, error)

	Conflicts(ctx context.Context, userID string) ([]models.Book, []models.Entry, error)
}

type ledgerService struct {
	store    *store.Store
	resolver *conflict.Resolver
	trigger  func(userID string)
	log      logging.Logger
}

// NewLedgerService wires the ledger API. trigger may be nil when running
// without a sync loop.
func NewLedgerService(s *store.Store, r *conflict.Resolver, trigger func(userID string), log logging.Logger) LedgerService {
	return &ledgerService{store: s, resolver: r, trigger: trigger, log: log}
}

func (s *ledgerService) triggerSync(userID string) {
	if s.trigger != nil {
		s.trigger(userID)
	}
}

func validateEntryFields(f models.EntryFields) error {
	if f.BookID == "" {
		return fmt.Errorf("%w: entry requires a book", common.ErrValidation)
	}
	if f.Direction != models.DirectionIncome && f.Direction != models.DirectionExpense {
		return fmt.Errorf("%w: unknown direction %q", common.ErrValidation, f.Direction)
	}
	if f.Status != models.StatusPending && f.Status != models.StatusCompleted {
		return fmt.Errorf("%w: unknown status %q", common.ErrValidation, f.Status)
	}
	if f.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", common.ErrValidation)
	}
	if f.Date == "" {
		return fmt.Errorf("%w: entry requires a date", common.ErrValidation)
	}
	return nil
}

func validateBookFields(f models.BookFields) error {
	if f.Name == "" {
		return fmt.Errorf("%w: book requires a name", common.ErrValidation)
	}
	return nil
}

func (s *ledgerService) CreateBook(ctx context.Context, userID string, fields models.BookFields) (*models.Book, error) {
	if userID == "" {
		return nil, common.ErrInvalidIdentity
	}
	if err := validateBookFields(fields); err != nil {
		return nil, err
	}

	b := &models.Book{}
	b.ApplyFields(fields)
	b.UserID = userID
	b.VKey = version.Next(0)
	b.Checksum = version.BookChecksum(fields)
	b.Synced = false

	if err := s.store.PutBook(ctx, models.OpCreate, b); err != nil {
		return nil, err
	}
	s.triggerSync(userID)
	return b, nil
}

func (s *ledgerService) UpdateBook(ctx context.Context, userID, cid string, fields models.BookFields) (*models.Book, error) {
	if userID == "" {
		return nil, common.ErrInvalidIdentity
	}
	if err := validateBookFields(fields); err != nil {
		return nil, err
	}

	b, err := s.store.Book(ctx, userID, cid)
	if err != nil {
		return nil, err
	}
	b.ApplyFields(fields)
	b.VKey = version.Next(b.VKey)
	b.Checksum = version.BookChecksum(fields)
	b.Synced = false

	if err := s.store.PutBook(ctx, models.OpUpdate, b); err != nil {
		return nil, err
	}
	s.triggerSync(userID)
	return b, nil
}

func (s *ledgerService) DeleteBook(ctx context.Context, userID, cid string) error {
	if userID == "" {
		return common.ErrInvalidIdentity
	}
	// A tombstone outranks any in-flight resolution countdown.
	s.resolver.DiscardPending(models.KindBook, cid)
	if err := s.store.DeleteBook(ctx, userID, cid); err != nil {
		return err
	}
	s.triggerSync(userID)
	return nil
}

func (s *ledgerService) Books(ctx context.Context, userID string, f books.Filter) ([]models.Book, error) {
	return s.store.Books(ctx, userID, f)
}

func (s *ledgerService) CreateEntry(ctx context.Context, userID string, fields models.EntryFields) (*models.Entry, error) {
	if userID == "" {
		return nil, common.ErrInvalidIdentity
	}
	if err := validateEntryFields(fields); err != nil {
		return nil, err
	}
	// The owning book must exist locally, tombstoned or not.
	if _, err := s.store.Book(ctx, userID, fields.BookID); err != nil {
		return nil, err
	}

	e := &models.Entry{}
	e.ApplyFields(fields)
	e.UserID = userID
	e.VKey = version.Next(0)
	e.Checksum = version.EntryChecksum(fields)
	e.Synced = false

	if err := s.store.PutEntry(ctx, models.OpCreate, e); err != nil {
		return nil, err
	}
	s.triggerSync(userID)
	return e, nil
}

func (s *ledgerService) UpdateEntry(ctx context.Context, userID, cid string, fields models.EntryFields) (*models.Entry, error) {
	if userID == "" {
		return nil, common.ErrInvalidIdentity
	}
	if err := validateEntryFields(fields); err != nil {
		return nil, err
	}

	e, err := s.store.Entry(ctx, userID, cid)
	if err != nil {
		return nil, err
	}
	e.ApplyFields(fields)
	e.VKey = version.Next(e.VKey)
	e.Checksum = version.EntryChecksum(fields)
	e.Synced = false

	if err := s.store.PutEntry(ctx, models.OpUpdate, e); err != nil {
		return nil, err
	}
	s.triggerSync(userID)
	return e, nil
}

func (s *ledgerService) DeleteEntry(ctx context.Context, userID, cid string) error {
	if userID == "" {
		return common.ErrInvalidIdentity
	}
	s.resolver.DiscardPending(models.KindEntry, cid)
	if err := s.store.DeleteEntry(ctx, userID, cid); err != nil {
		return err
	}
	s.triggerSync(userID)
	return nil
}

// RestoreEntry undoes a tombstone. The restore is a normal mutation: it
// bumps the version and re-enters the push cycle.
func (s *ledgerService) RestoreEntry(ctx context.Context, userID, cid string) (*models.Entry, error) {
	if userID == "" {
		return nil, common.ErrInvalidIdentity
	}
	e, err := s.store.Entry(ctx, userID, cid)
	if err != nil {
		return nil, err
	}
	if !e.Deleted {
		return e, nil
	}
	e.Deleted = false
	e.Synced = false
	e.VKey = version.Next(e.VKey)

	if err := s.store.PutEntry(ctx, models.OpRestore, e); err != nil {
		return nil, err
	}
	s.triggerSync(userID)
	return e, nil
}

func (s *ledgerService) Entries(ctx context.Context, userID string, f entries.Filter) ([]models.Entry, error) {
	return s.store.Entries(ctx, userID, f)
}

// Conflicts returns every record awaiting resolution. No conflict is ever
// dropped from this list until the user decides.
func (s *ledgerService) Conflicts(ctx context.Context, userID string) ([]models.Book, []models.Entry, error) {
	bks, err := s.store.Books(ctx, userID, books.Filter{ConflictedOnly: true, IncludeDeleted: true})
	if err != nil {
		return nil, nil, err
	}
	ents, err := s.store.Entries(ctx, userID, entries.Filter{ConflictedOnly: true, IncludeDeleted: true})
	if err != nil {
		return nil, nil, err
	}
	return bks, ents, nil
}
