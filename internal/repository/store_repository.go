// Package repository contains data access logic separated from services and
// HTTP handlers.  This file holds the store directory: registration, lookup,
// ownership checks and the rating aggregate written by the review service.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/store-reservation/internal/model"
)

const storeColumns = `s.id, s.owner_id, s.name, s.location, s.description, s.latitude, s.longitude,
	s.average_rating, s.review_count, s.created_at, s.updated_at`

// StoreRepo encapsulates all database queries related to stores.
type StoreRepo struct {
	db DBTX
}

// NewStoreRepo constructs a StoreRepo over a pool or a transaction.
func NewStoreRepo(db DBTX) *StoreRepo {
	return &StoreRepo{db: db}
}

// Create inserts a new store.  Rating aggregates always start at zero
// regardless of what the caller set.
func (r *StoreRepo) Create(ctx context.Context, s *model.Store) error {
	now := time.Now().UTC()
	const q = `INSERT INTO stores
		(owner_id, name, location, description, latitude, longitude, average_rating, review_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.OwnerID, s.Name, s.Location, s.Description,
		nullFloat(s.Latitude), nullFloat(s.Longitude), now, now)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.AverageRating, s.ReviewCount = 0, 0
	s.CreatedAt, s.UpdatedAt = now, now
	return nil
}

// GetByID fetches a store by its ID.  It returns ErrNotFound if no row is
// found.
func (r *StoreRepo) GetByID(ctx context.Context, id uint64) (model.Store, error) {
	return scanStore(r.db.QueryRowContext(ctx,
		"SELECT "+storeColumns+" FROM stores s WHERE s.id = ?", id))
}

// GetByIDForUpdate locks the store row for the rest of the transaction.
// Reservation creation takes this lock before counting the capacity window
// so concurrent requests for the same store cannot both pass the check.
// Review writes take it before touching the rating aggregate.
func (r *StoreRepo) GetByIDForUpdate(ctx context.Context, id uint64) (model.Store, error) {
	return scanStore(r.db.QueryRowContext(ctx,
		"SELECT "+storeColumns+" FROM stores s WHERE s.id = ? FOR UPDATE", id))
}

// IsOwnedBy reports whether the store exists and its owner has the given
// email.
func (r *StoreRepo) IsOwnedBy(ctx context.Context, storeID uint64, ownerEmail string) (bool, error) {
	const q = `SELECT COUNT(*) FROM stores s JOIN members m ON m.id = s.owner_id
	           WHERE s.id = ? AND m.email = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, storeID, NormalizeEmail(ownerEmail)).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByOwner returns all stores of one partner ordered by id.
func (r *StoreRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Store, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+storeColumns+" FROM stores s WHERE s.owner_id = ? ORDER BY s.id", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Store{}
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateRating writes the rating aggregate.  Callers hold the row lock from
// GetByIDForUpdate.
func (r *StoreRepo) UpdateRating(ctx context.Context, s *model.Store) error {
	now := time.Now().UTC()
	const q = `UPDATE stores SET average_rating = ?, review_count = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, s.AverageRating, s.ReviewCount, now, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.UpdatedAt = now
	return nil
}

func scanStore(row rowScanner) (model.Store, error) {
	var (
		s        model.Store
		desc     sql.NullString
		lat, lng sql.NullFloat64
	)
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Location, &desc, &lat, &lng,
		&s.AverageRating, &s.ReviewCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.Store{}, translate(err)
	}
	s.Description = desc.String
	if lat.Valid {
		v := lat.Float64
		s.Latitude = &v
	}
	if lng.Valid {
		v := lng.Float64
		s.Longitude = &v
	}
	return s, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
