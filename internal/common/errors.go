// Package common defines shared sentinel errors used across the ledger
// client. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound        = errors.New("not found")
	ErrDuplicateRecord = errors.New("duplicate record")

	// Identity / validation errors. All mutating operations fail fast with
	// ErrInvalidIdentity instead of silently writing into the wrong scope.
	ErrInvalidIdentity = errors.New("missing or invalid user id")
	ErrValidation      = errors.New("validation error")

	// Sync-level errors. ErrVersionConflict is the normal, expected
	// divergence routed into the resolution protocol, not a failure.
	// ErrChecksumMismatch means vKey agreement with differing checksums:
	// data corruption, surfaced and audited, never auto-resolved.
	ErrVersionConflict  = errors.New("version conflict")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrSyncCeiling      = errors.New("sync attempt ceiling reached")

	// Resolution protocol errors.
	ErrNoPendingResolution = errors.New("no pending resolution")
	ErrNotConflicted       = errors.New("record is not conflicted")
)
