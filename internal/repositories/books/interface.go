package books

import (
	"context"

	"github.com/dmitrijs2005/moneta/internal/models"
)

// Filter narrows List results. The zero value selects live records only.
type Filter struct {
	// IncludeDeleted also returns tombstones.
	IncludeDeleted bool
	// ConflictedOnly returns only records awaiting conflict resolution.
	ConflictedOnly bool
}

// Repository describes CRUD and query operations for Book records.
// Implementations are typically backed by a local SQLite database.
type Repository interface {
	// Insert creates a new book. A cid collision is rejected with
	// common.ErrDuplicateRecord.
	Insert(ctx context.Context, b *models.Book) error

	// Update rewrites an existing book by cid within the user's scope.
	Update(ctx context.Context, b *models.Book) error

	// GetByCID returns a single book, tombstoned or not.
	GetByCID(ctx context.Context, userID, cid string) (*models.Book, error)

	// List returns the user's books ordered by most recently updated.
	List(ctx context.Context, userID string, f Filter) ([]models.Book, error)

	// GetAllUnsynced returns books with local changes not yet acknowledged
	// by the remote authority, tombstones included.
	GetAllUnsynced(ctx context.Context, userID string) ([]*models.Book, error)

	// IncrementSyncAttempts bumps the failed-push counter.
	IncrementSyncAttempts(ctx context.Context, cid string) error
}
