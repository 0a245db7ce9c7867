package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/store-reservation/internal/model"
)

const reviewColumns = "id, reservation_id, store_id, member_id, rating, content, created_at, updated_at"

// ReviewRepo stores reviews.  reviews.reservation_id carries a unique
// index, so a racing second insert for the same reservation fails with
// ErrDuplicate even if both writers passed the existence check.
type ReviewRepo struct{ db DBTX }

func NewReviewRepo(db DBTX) *ReviewRepo { return &ReviewRepo{db: db} }

// Create inserts rv and populates its ID.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	const q = `INSERT INTO reviews (reservation_id, store_id, member_id, rating, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rv.ReservationID, rv.StoreID, rv.MemberID, rv.Rating,
		nullString(rv.Content), rv.CreatedAt.UTC(), rv.UpdatedAt.UTC())
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return nil
}

func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	return scanReview(r.db.QueryRowContext(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE id = ?", id))
}

// GetByIDForUpdate locks the review so concurrent edits apply their rating
// deltas one at a time.
func (r *ReviewRepo) GetByIDForUpdate(ctx context.Context, id uint64) (model.Review, error) {
	return scanReview(r.db.QueryRowContext(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE id = ? FOR UPDATE", id))
}

// Update writes rating, content and updated_at.
func (r *ReviewRepo) Update(ctx context.Context, rv *model.Review) error {
	const q = `UPDATE reviews SET rating = ?, content = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, rv.Rating, nullString(rv.Content), rv.UpdatedAt.UTC(), rv.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReviewRepo) ExistsByReservationID(ctx context.Context, reservationID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews WHERE reservation_id = ?", reservationID).Scan(&n)
	return n > 0, err
}

// ListByStore returns one page of a store's reviews, newest first.
func (r *ReviewRepo) ListByStore(ctx context.Context, storeID uint64, page Page) ([]model.Review, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews WHERE store_id = ?", storeID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE store_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		storeID, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Review, 0, page.PageSize)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanReview(row rowScanner) (model.Review, error) {
	var (
		rv      model.Review
		content sql.NullString
	)
	err := row.Scan(&rv.ID, &rv.ReservationID, &rv.StoreID, &rv.MemberID, &rv.Rating, &content,
		&rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return model.Review{}, translate(err)
	}
	rv.Content = content.String
	rv.CreatedAt = rv.CreatedAt.UTC()
	rv.UpdatedAt = rv.UpdatedAt.UTC()
	return rv, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

