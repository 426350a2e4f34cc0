package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

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

const entryColumns = `local_id, cid, server_id, user_id, v_key, checksum, synced, deleted,
	conflicted, server_data, created_at, updated_at, sync_attempts,
	book_id, title, amount, direction, category, payment_method, note, status,
	date, time, pinned`

// Amounts are persisted as canonical decimal strings, never floats.
func scanEntry(row interface{ Scan(...any) error }) (*models.Entry, error) {
	e := &models.Entry{}
	var amount, direction, status string
	err := row.Scan(
		&e.LocalID, &e.CID, &e.ServerID, &e.UserID, &e.VKey, &e.Checksum,
		&e.Synced, &e.Deleted, &e.Conflicted, &e.ServerData,
		&e.CreatedAt, &e.UpdatedAt, &e.SyncAttempts,
		&e.BookID, &e.Title, &amount, &direction, &e.Category,
		&e.PaymentMethod, &e.Note, &status, &e.Date, &e.Time, &e.Pinned,
	)
	if err != nil {
		return nil, err
	}
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("entry %s has malformed amount %q: %w", e.CID, amount, err)
	}
	e.Direction = models.Direction(direction)
	e.Status = models.Status(status)
	return e, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.Entry) error {
	query := `INSERT INTO entries (cid, server_id, user_id, v_key, checksum, synced, deleted,
			conflicted, server_data, created_at, updated_at, sync_attempts,
			book_id, title, amount, direction, category, payment_method, note, status,
			date, time, pinned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		e.CID, e.ServerID, e.UserID, e.VKey, e.Checksum, e.Synced, e.Deleted,
		e.Conflicted, e.ServerData, e.CreatedAt, e.UpdatedAt, e.SyncAttempts,
		e.BookID, e.Title, e.Amount.String(), string(e.Direction), e.Category,
		e.PaymentMethod, e.Note, string(e.Status), e.Date, e.Time, e.Pinned,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("entry %s: %w", e.CID, common.ErrDuplicateRecord)
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get entry local id: %w", err)
	}
	e.LocalID = id
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, e *models.Entry) error {
	query := `UPDATE entries SET server_id=?, v_key=?, checksum=?, synced=?, deleted=?,
			conflicted=?, server_data=?, updated_at=?, sync_attempts=?,
			book_id=?, title=?, amount=?, direction=?, category=?, payment_method=?,
			note=?, status=?, date=?, time=?, pinned=?
		WHERE cid=? AND user_id=?`
	res, err := r.db.ExecContext(ctx, query,
		e.ServerID, e.VKey, e.Checksum, e.Synced, e.Deleted,
		e.Conflicted, e.ServerData, e.UpdatedAt, e.SyncAttempts,
		e.BookID, e.Title, e.Amount.String(), string(e.Direction), e.Category,
		e.PaymentMethod, e.Note, string(e.Status), e.Date, e.Time, e.Pinned,
		e.CID, e.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("entry %s: %w", e.CID, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetByCID(ctx context.Context, userID, cid string) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id=? AND cid=?`
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, userID, cid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s: %w", cid, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string, f Filter) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id=?`
	args := []any{userID}
	if f.BookID != "" {
		query += ` AND book_id=?`
		args = append(args, f.BookID)
	}
	if !f.IncludeDeleted {
		query += ` AND deleted=0`
	}
	if f.ConflictedOnly {
		query += ` AND conflicted=1`
	}
	query += ` ORDER BY date DESC, time DESC, local_id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetAllUnsynced(ctx context.Context, userID string) ([]*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id=? AND synced=0 AND conflicted=0
		ORDER BY local_id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced entries: %w", err)
	}
	defer rows.Close()

	var result []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) IncrementSyncAttempts(ctx context.Context, cid string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE entries SET sync_attempts = sync_attempts + 1 WHERE cid=?`, cid)
	if err != nil {
		return fmt.Errorf("failed to increment sync attempts: %w", err)
	}
	return nil
}
