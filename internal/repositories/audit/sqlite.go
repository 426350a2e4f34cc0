package audit

import (
	"context"
	"fmt"

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

func (r *SQLiteRepository) Append(ctx context.Context, rec Record) error {
	query := `INSERT INTO audit_log (cid, kind, decision, ts, user_id) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, rec.CID, string(rec.Kind), rec.Decision, rec.Timestamp, rec.UserID)
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]Record, error) {
	query := `SELECT id, cid, kind, decision, ts, user_id FROM audit_log WHERE user_id=? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit records: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var rec Record
		var kind string
		if err := rows.Scan(&rec.ID, &rec.CID, &kind, &rec.Decision, &rec.Timestamp, &rec.UserID); err != nil {
			return nil, err
		}
		rec.Kind = models.Kind(kind)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
