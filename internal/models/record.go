// Package models defines client-side data models for the ledger: versioned
// local records (books and entries), remote snapshots received from the
// server, and the operation kinds attached to storage mutations.
package models

// Kind classifies a record entity.
type Kind string

const (
	KindBook  Kind = "book"
	KindEntry Kind = "entry"
)

// LocalRecord is the versioned envelope shared by every locally stored
// entity. It is persisted in SQLite and synced with the remote authority.
type LocalRecord struct {
	// LocalID is the locally assigned row identity, stable for the lifetime
	// of the local copy.
	LocalID int64

	// CID is a client-generated globally unique identifier, assigned once at
	// creation and never reassigned. It correlates local and remote copies
	// before a server identity exists.
	CID string

	// ServerID is the remote authority's identifier, empty until the first
	// accepted push.
	ServerID string

	// UserID is the owning identity; all queries are scoped by it.
	UserID string

	// VKey is the monotonic version counter used as the optimistic-concurrency
	// token. A push is accepted only if VKey is exactly one greater than the
	// remote authority's last accepted version for this CID.
	VKey int64

	// Checksum is a deterministic digest over the record's business fields,
	// independent of bookkeeping fields.
	Checksum string

	// Synced is false while the record carries local changes not yet
	// acknowledged by the remote authority.
	Synced bool

	// Deleted marks the record as a tombstone. Deletions are soft and
	// participate in sync like any other mutation.
	Deleted bool

	// Conflicted is true after the remote authority rejected the last push
	// and a competing version exists in ServerData.
	Conflicted bool

	// ServerData holds the JSON snapshot of the remote record captured when
	// the conflict was detected; nil once resolved.
	ServerData []byte

	// CreatedAt and UpdatedAt are client-clock epoch milliseconds.
	CreatedAt int64
	UpdatedAt int64

	// SyncAttempts counts failed pushes, for the orchestrator's backoff and
	// ceiling policy.
	SyncAttempts int
}

// Clean reports whether the record matches the last known remote state.
func (r *LocalRecord) Clean() bool {
	return r.Synced && !r.Conflicted
}
