package audit

import (
	"context"

	"github.com/dmitrijs2005/moneta/internal/models"
)

// Record is one immutable line in the resolution audit log. The log is
// written on every committed conflict resolution and on detected corruption;
// business logic never reads it back.
type Record struct {
	ID        int64
	CID       string
	Kind      models.Kind
	Decision  string
	Timestamp int64
	UserID    string
}

// Repository is an append-only audit log.
type Repository interface {
	// Append writes one record. Existing records are never modified.
	Append(ctx context.Context, rec Record) error

	// List returns all records for a user, oldest first. Used for export
	// and debugging only.
	List(ctx context.Context, userID string) ([]Record, error)
}
