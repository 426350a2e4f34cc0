package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/moneta/internal/common"
	"github.com/dmitrijs2005/moneta/internal/dbx"
	"github.com/dmitrijs2005/moneta/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const bookColumns = `local_id, cid, server_id, user_id, v_key, checksum, synced, deleted,
	conflicted, server_data, created_at, updated_at, sync_attempts,
	name, description, category, image_ref, public, share_token`

func scanBook(row interface{ Scan(...any) error }) (*models.Book, error) {
	b := &models.Book{}
	err := row.Scan(
		&b.LocalID, &b.CID, &b.ServerID, &b.UserID, &b.VKey, &b.Checksum,
		&b.Synced, &b.Deleted, &b.Conflicted, &b.ServerData,
		&b.CreatedAt, &b.UpdatedAt, &b.SyncAttempts,
		&b.Name, &b.Description, &b.Category, &b.ImageRef, &b.Public, &b.ShareToken,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, b *models.Book) error {
	query := `INSERT INTO books (cid, server_id, user_id, v_key, checksum, synced, deleted,
			conflicted, server_data, created_at, updated_at, sync_attempts,
			name, description, category, image_ref, public, share_token)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		b.CID, b.ServerID, b.UserID, b.VKey, b.Checksum, b.Synced, b.Deleted,
		b.Conflicted, b.ServerData, b.CreatedAt, b.UpdatedAt, b.SyncAttempts,
		b.Name, b.Description, b.Category, b.ImageRef, b.Public, b.ShareToken,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("book %s: %w", b.CID, common.ErrDuplicateRecord)
		}
		return fmt.Errorf("failed to insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get book local id: %w", err)
	}
	b.LocalID = id
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, b *models.Book) error {
	query := `UPDATE books SET server_id=?, v_key=?, checksum=?, synced=?, deleted=?,
			conflicted=?, server_data=?, updated_at=?, sync_attempts=?,
			name=?, description=?, category=?, image_ref=?, public=?, share_token=?
		WHERE cid=? AND user_id=?`
	res, err := r.db.ExecContext(ctx, query,
		b.ServerID, b.VKey, b.Checksum, b.Synced, b.Deleted,
		b.Conflicted, b.ServerData, b.UpdatedAt, b.SyncAttempts,
		b.Name, b.Description, b.Category, b.ImageRef, b.Public, b.ShareToken,
		b.CID, b.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("book %s: %w", b.CID, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetByCID(ctx context.Context, userID, cid string) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE user_id=? AND cid=?`
	b, err := scanBook(r.db.QueryRowContext(ctx, query, userID, cid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %s: %w", cid, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select book: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string, f Filter) ([]models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE user_id=?`
	if !f.IncludeDeleted {
		query += ` AND deleted=0`
	}
	if f.ConflictedOnly {
		query += ` AND conflicted=1`
	}
	query += ` ORDER BY updated_at DESC, local_id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select books: %w", err)
	}
	defer rows.Close()

	var result []models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetAllUnsynced(ctx context.Context, userID string) ([]*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE user_id=? AND synced=0 AND conflicted=0
		ORDER BY local_id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced books: %w", err)
	}
	defer rows.Close()

	var result []*models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) IncrementSyncAttempts(ctx context.Context, cid string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE books SET sync_attempts = sync_attempts + 1 WHERE cid=?`, cid)
	if err != nil {
		return fmt.Errorf("failed to increment sync attempts: %w", err)
	}
	return nil
}
