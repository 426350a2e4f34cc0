// Package conflict implements the resolution protocol for records the
// remote authority rejected: flagging, the reversible grace window, the
// durable commit, and the audit trail. Conflicts are never auto-resolved
// by recency or checksum heuristics; financial data requires an explicit
// human choice for every conflicted record.
package conflict

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/moneta/internal/common"
	"github.com/dmitrijs2005/moneta/internal/logging"
	"github.com/dmitrijs2005/moneta/internal/models"
	"github.com/dmitrijs2005/moneta/internal/repositories/audit"
	"github.com/dmitrijs2005/moneta/internal/store"
	"github.com/dmitrijs2005/moneta/internal/timex"
	"github.com/dmitrijs2005/moneta/internal/version"
)

// Choice selects which side of a conflict survives.
type Choice string

const (
	ChoiceLocal  Choice = "local"
	ChoiceRemote Choice = "remote"
)

// DefaultGraceWindow is the countdown between a user's choice and the
// durable commit. A deliberate debounce against mis-taps: undo has no
// storage effect inside this window.
const DefaultGraceWindow = 8 * time.Second

// Key identifies one pending resolution.
type Key struct {
	Kind models.Kind
	CID  string
}

type pending struct {
	choice Choice
	userID string
	timer  *time.Timer
}

// Resolver owns all pending-resolution state. No package globals: multiple
// sessions (and tests) get isolated countdown state.
type Resolver struct {
	store   *store.Store
	grace   time.Duration
	trigger func(userID string)
	log     logging.Logger

	mu      sync.Mutex
	pending map[Key]*pending
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGraceWindow overrides the countdown, for tests.
func WithGraceWindow(d time.Duration) Option {
	return func(r *Resolver) { r.grace = d }
}

// WithSyncTrigger sets the hook re-entering the push pipeline after a
// committed resolution.
func WithSyncTrigger(fn func(userID string)) Option {
	return func(r *Resolver) { r.trigger = fn }
}

// NewResolver returns a Resolver writing through the given store.
func NewResolver(s *store.Store, log logging.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		store:   s,
		grace:   DefaultGraceWindow,
		log:     log,
		pending: make(map[Key]*pending),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Flag marks a record conflicted after a rejected push. The remote snapshot
// is stored verbatim in ServerData and the local business fields stay
// untouched, so the user can compare both sides.
func (r *Resolver) Flag(ctx context.Context, userID string, remote models.RemoteRecord) error {
	snapshot, err := json.Marshal(remote)
	if err != nil {
		return fmt.Errorf("failed to encode remote snapshot: %w", err)
	}

	switch remote.Kind {
	case models.KindBook:
		b, err := r.store.Book(ctx, userID, remote.CID)
		if err != nil {
			return err
		}
		b.Conflicted = true
		b.Synced = false
		b.ServerData = snapshot
		if err := r.store.PutBook(ctx, models.OpUpdate, b); err != nil {
			return err
		}
	case models.KindEntry:
		e, err := r.store.Entry(ctx, userID, remote.CID)
		if err != nil {
			return err
		}
		e.Conflicted = true
		e.Synced = false
		e.ServerData = snapshot
		if err := r.store.PutEntry(ctx, models.OpUpdate, e); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown record kind %q", remote.Kind)
	}

	r.log.Warn(ctx, "push rejected, record flagged for resolution",
		"kind", string(remote.Kind), "cid", remote.CID, "remote_vkey", remote.VKey)
	return nil
}

// BeginResolve registers the user's choice without touching storage. The
// choice becomes durable when the grace window elapses, unless Undo is
// called first. A repeated BeginResolve for the same record restarts the
// countdown with the new choice.
func (r *Resolver) BeginResolve(ctx context.Context, userID string, kind models.Kind, cid string, choice Choice) (Key, error) {
	if choice != ChoiceLocal && choice != ChoiceRemote {
		return Key{}, fmt.Errorf("%w: unknown choice %q", common.ErrValidation, choice)
	}
	if err := r.checkConflicted(ctx, userID, kind, cid); err != nil {
		return Key{}, err
	}

	key := Key{Kind: kind, CID: cid}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pending[key]; ok {
		p.timer.Stop()
	}
	p := &pending{choice: choice, userID: userID}
	p.timer = time.AfterFunc(r.grace, func() {
		if err := r.Flush(context.Background(), key); err != nil {
			r.log.Error(context.Background(), "failed to commit resolution",
				"cid", cid, "error", err)
		}
	})
	r.pending[key] = p

	r.log.Info(ctx, "resolution pending", "kind", string(kind), "cid", cid,
		"choice", string(choice), "grace", r.grace.String())
	return key, nil
}

// Undo cancels a pending resolution inside the grace window. The record's
// conflicted state, server snapshot and version are left exactly as they
// were before BeginResolve.
func (r *Resolver) Undo(key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[key]
	if !ok {
		return common.ErrNoPendingResolution
	}
	p.timer.Stop()
	delete(r.pending, key)
	return nil
}

// DiscardPending silently drops a pending resolution. Called when the
// record is tombstoned while the countdown runs: the deletion mutation
// takes precedence.
func (r *Resolver) DiscardPending(kind models.Kind, cid string) {
	key := Key{Kind: kind, CID: cid}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pending[key]; ok {
		p.timer.Stop()
		delete(r.pending, key)
	}
}

// HasPending reports whether a countdown is running for the record.
func (r *Resolver) HasPending(kind models.Kind, cid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[Key{Kind: kind, CID: cid}]
	return ok
}

// Flush commits a pending resolution immediately, without waiting out the
// grace window.
func (r *Resolver) Flush(ctx context.Context, key Key) error {
	r.mu.Lock()
	p, ok := r.pending[key]
	if ok {
		p.timer.Stop()
		delete(r.pending, key)
	}
	r.mu.Unlock()
	if !ok {
		return common.ErrNoPendingResolution
	}
	return r.CommitResolve(ctx, p.userID, key.Kind, key.CID, p.choice)
}

// CommitResolve makes a resolution durable. Committing a record that is no
// longer conflicted is a no-op, so replays never double-increment vKey.
func (r *Resolver) CommitResolve(ctx context.Context, userID string, kind models.Kind, cid string, choice Choice) error {
	switch kind {
	case models.KindBook:
		return r.commitBook(ctx, userID, cid, choice)
	case models.KindEntry:
		return r.commitEntry(ctx, userID, cid, choice)
	default:
		return fmt.Errorf("unknown record kind %q", kind)
	}
}

func (r *Resolver) commitBook(ctx context.Context, userID, cid string, choice Choice) error {
	b, err := r.store.Book(ctx, userID, cid)
	if err != nil {
		return err
	}
	if !b.Conflicted || b.Deleted {
		return nil
	}

	remote, err := decodeSnapshot(b.ServerData)
	if err != nil {
		return err
	}

	if choice == ChoiceLocal {
		keepLocal(&b.LocalRecord, remote.VKey)
		b.Checksum = version.BookChecksum(b.Fields())
	} else {
		fields, err := remote.BookPayload()
		if err != nil {
			return err
		}
		b.ApplyFields(fields)
		takeRemote(&b.LocalRecord, remote)
	}

	if err := r.store.PutBook(ctx, models.OpUpdate, b); err != nil {
		return err
	}
	return r.finish(ctx, userID, models.KindBook, cid, choice)
}

func (r *Resolver) commitEntry(ctx context.Context, userID, cid string, choice Choice) error {
	e, err := r.store.Entry(ctx, userID, cid)
	if err != nil {
		return err
	}
	if !e.Conflicted || e.Deleted {
		return nil
	}

	remote, err := decodeSnapshot(e.ServerData)
	if err != nil {
		return err
	}

	if choice == ChoiceLocal {
		keepLocal(&e.LocalRecord, remote.VKey)
		e.Checksum = version.EntryChecksum(e.Fields())
	} else {
		fields, err := remote.EntryPayload()
		if err != nil {
			return err
		}
		e.ApplyFields(fields)
		takeRemote(&e.LocalRecord, remote)
	}

	if err := r.store.PutEntry(ctx, models.OpUpdate, e); err != nil {
		return err
	}
	return r.finish(ctx, userID, models.KindEntry, cid, choice)
}

// keepLocal re-arms the record for push. The new version is an integer
// increment past both competing versions, never a wall-clock value: skewed
// device clocks must not be able to mint colliding version tokens.
func keepLocal(rec *models.LocalRecord, remoteVKey int64) {
	base := rec.VKey
	if remoteVKey > base {
		base = remoteVKey
	}
	rec.VKey = version.Next(base)
	rec.Conflicted = false
	rec.Synced = false
	rec.ServerData = nil
	rec.SyncAttempts = 0
}

// takeRemote adopts the remote authority's copy wholesale.
func takeRemote(rec *models.LocalRecord, remote models.RemoteRecord) {
	rec.VKey = remote.VKey
	rec.Checksum = remote.Checksum
	rec.ServerID = remote.ServerID
	rec.Deleted = remote.Deleted
	rec.Conflicted = false
	rec.Synced = true
	rec.ServerData = nil
	rec.SyncAttempts = 0
}

func (r *Resolver) finish(ctx context.Context, userID string, kind models.Kind, cid string, choice Choice) error {
	err := r.store.AppendAudit(ctx, audit.Record{
		CID:       cid,
		Kind:      kind,
		Decision:  string(choice),
		Timestamp: timex.NowMillis(),
		UserID:    userID,
	})
	if err != nil {
		return err
	}

	r.log.Info(ctx, "conflict resolved", "kind", string(kind), "cid", cid,
		"decision", string(choice))

	if r.trigger != nil {
		r.trigger(userID)
	}
	return nil
}

func decodeSnapshot(data []byte) (models.RemoteRecord, error) {
	var remote models.RemoteRecord
	if len(data) == 0 {
		return remote, fmt.Errorf("conflicted record has no server snapshot")
	}
	if err := json.Unmarshal(data, &remote); err != nil {
		return remote, fmt.Errorf("failed to decode server snapshot: %w", err)
	}
	return remote, nil
}

func (r *Resolver) checkConflicted(ctx context.Context, userID string, kind models.Kind, cid string) error {
	switch kind {
	case models.KindBook:
		b, err := r.store.Book(ctx, userID, cid)
		if err != nil {
			return err
		}
		if !b.Conflicted {
			return common.ErrNotConflicted
		}
	case models.KindEntry:
		e, err := r.store.Entry(ctx, userID, cid)
		if err != nil {
			return err
		}
		if !e.Conflicted {
			return common.ErrNotConflicted
		}
	default:
		return fmt.Errorf("unknown record kind %q", kind)
	}
	return nil
}
