package postgres

import (
	"context"
	"database/sql"
	"time"

	"fincms/internal/model"
	"fincms/internal/repository"
)

// RecentViewPostgres is a PostgreSQL implementation of repository.RecentViewRepository.
// The (user_id, document_id) primary key enforces one row per pair.
type RecentViewPostgres struct {
	db *sql.DB
}

// NewRecentViewPostgres creates a new RecentViewPostgres repository.
func NewRecentViewPostgres(db *sql.DB) *RecentViewPostgres {
	return &RecentViewPostgres{db: db}
}

var _ repository.RecentViewRepository = (*RecentViewPostgres)(nil)

// Touch updates viewed_at for an existing pair.
func (r *RecentViewPostgres) Touch(ctx context.Context, userID, documentID string, at time.Time) (bool, error) {
	const q = `UPDATE recent_views SET viewed_at = $3 WHERE user_id = $1 AND document_id = $2`
	res, err := r.db.ExecContext(ctx, q, userID, documentID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Insert adds a new pair; a concurrent insert of the same pair yields repository.ErrDuplicate.
func (r *RecentViewPostgres) Insert(ctx context.Context, view model.RecentView) error {
	const q = `INSERT INTO recent_views (user_id, document_id, viewed_at) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, q, view.UserID, view.DocumentID, view.ViewedAt)
	return mapError(err)
}

// Trim deletes every row of userID older than the newest keep rows. Running it
// twice concurrently is safe: the second delete matches fewer or no rows.
func (r *RecentViewPostgres) Trim(ctx context.Context, userID string, keep int) (int64, error) {
	const q = `
		DELETE FROM recent_views
		WHERE user_id = $1 AND document_id IN (
			SELECT document_id FROM recent_views
			WHERE user_id = $1
			ORDER BY viewed_at DESC, document_id DESC
			OFFSET $2
		)`
	res, err := r.db.ExecContext(ctx, q, userID, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListRecent returns userID's rows, most recently viewed first.
func (r *RecentViewPostgres) ListRecent(ctx context.Context, userID string, limit int) ([]model.RecentView, error) {
	const q = `
		SELECT user_id, document_id, viewed_at
		FROM recent_views
		WHERE user_id = $1
		ORDER BY viewed_at DESC, document_id DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]model.RecentView, 0, limit)
	for rows.Next() {
		var v model.RecentView
		if err := rows.Scan(&v.UserID, &v.DocumentID, &v.ViewedAt); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}
