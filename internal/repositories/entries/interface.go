package entries

import (
	"context"

	"github.com/dmitrijs2005/moneta/internal/models"
)

// Filter narrows List results. The zero value selects live records only.
type Filter struct {
	// BookID limits results to one book (by the book's cid).
	BookID string
	// IncludeDeleted also returns tombstones.
	IncludeDeleted bool
	// ConflictedOnly returns only records awaiting conflict resolution.
	ConflictedOnly bool
}

// Repository describes CRUD and query operations for Entry records.
// Implementations are typically backed by a local SQLite database.
type Repository interface {
	// Insert creates a new entry. A cid collision is rejected with
	// common.ErrDuplicateRecord.
	Insert(ctx context.Context, e *models.Entry) error

	// Update rewrites an existing entry by cid within the user's scope.
	Update(ctx context.Context, e *models.Entry) error

	// GetByCID returns a single entry, tombstoned or not.
	GetByCID(ctx context.Context, userID, cid string) (*models.Entry, error)

	// List returns the user's entries ordered by business date, newest first.
	List(ctx context.Context, userID string, f Filter) ([]models.Entry, error)

	// GetAllUnsynced returns entries with local changes not yet acknowledged
	// by the remote authority, tombstones included.
	GetAllUnsynced(ctx context.Context, userID string) ([]*models.Entry, error)

	// IncrementSyncAttempts bumps the failed-push counter.
	IncrementSyncAttempts(ctx context.Context, cid string) error
}
