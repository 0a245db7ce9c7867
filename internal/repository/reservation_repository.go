package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/store-reservation/internal/model"
)

const reservationColumns = `r.id, r.store_id, r.member_id, r.reservation_time, r.status,
    r.verification_code, r.check_in_time, r.created_at, r.updated_at`

// ReservationRepo provides storage for reservations.  Rows are never
// deleted; status changes are the only mutation after insert.  All
// timestamp fields are stored in UTC.
type ReservationRepo struct {
    db DBTX
}

// NewReservationRepo returns a new ReservationRepo bound to a pool or a
// transaction.
func NewReservationRepo(db DBTX) *ReservationRepo { return &ReservationRepo{db: db} }

// Create inserts res and populates its generated ID.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
    const q = `INSERT INTO reservations
        (store_id, member_id, reservation_time, status, verification_code, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q, res.StoreID, res.MemberID, res.ReservationTime.UTC(),
        string(res.Status), res.VerificationCode, res.CreatedAt.UTC(), res.UpdatedAt.UTC())
    if err != nil {
        return translate(err)
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    return nil
}

// GetByID fetches a reservation.  ErrNotFound when missing.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
    return scanReservation(r.db.QueryRowContext(ctx,
        "SELECT "+reservationColumns+" FROM reservations r WHERE r.id = ?", id))
}

// GetByIDForUpdate fetches and locks a reservation row.  Every status
// change reads through this so two concurrent check-ins or approvals on the
// same reservation serialize and the loser observes the new status.
func (r *ReservationRepo) GetByIDForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
    return scanReservation(r.db.QueryRowContext(ctx,
        "SELECT "+reservationColumns+" FROM reservations r WHERE r.id = ? FOR UPDATE", id))
}

// UpdateStatus persists the status, check-in time and updated_at of res.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, res *model.Reservation) error {
    const q = `UPDATE reservations SET status = ?, check_in_time = ?, updated_at = ? WHERE id = ?`
    var checkIn sql.NullTime
    if res.CheckInTime != nil {
        checkIn = sql.NullTime{Time: res.CheckInTime.UTC(), Valid: true}
    }
    out, err := r.db.ExecContext(ctx, q, string(res.Status), checkIn, res.UpdatedAt.UTC(), res.ID)
    if err != nil {
        return err
    }
    if n, _ := out.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}

// ExistsByMemberAndTimeBetween reports whether the member has any
// reservation with reservation_time in [start, end], whatever its status.
func (r *ReservationRepo) ExistsByMemberAndTimeBetween(ctx context.Context, memberID uint64, start, end time.Time) (bool, error) {
    const q = `SELECT COUNT(*) FROM reservations
          WHERE member_id = ? AND reservation_time BETWEEN ? AND ?`
    var n int64
    if err := r.db.QueryRowContext(ctx, q, memberID, start.UTC(), end.UTC()).Scan(&n); err != nil {
        return false, err
    }
    return n > 0, nil
}

// CountByStoreAndTimeBetween counts every reservation of a store with
// reservation_time in [start, end].
func (r *ReservationRepo) CountByStoreAndTimeBetween(ctx context.Context, storeID uint64, start, end time.Time) (int64, error) {
    const q = `SELECT COUNT(*) FROM reservations
          WHERE store_id = ? AND reservation_time BETWEEN ? AND ?`
    var n int64
    err := r.db.QueryRowContext(ctx, q, storeID, start.UTC(), end.UTC()).Scan(&n)
    return n, err
}

// ListTimesByStoreBetween returns the reservation times of a store in
// [start, end], ascending.  It counts the same rows as
// CountByStoreAndTimeBetween so the timetable agrees with admission.
func (r *ReservationRepo) ListTimesByStoreBetween(ctx context.Context, storeID uint64, start, end time.Time) ([]time.Time, error) {
    const q = `SELECT reservation_time FROM reservations
          WHERE store_id = ? AND reservation_time BETWEEN ? AND ?
          ORDER BY reservation_time`
    rows, err := r.db.QueryContext(ctx, q, storeID, start.UTC(), end.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []time.Time
    for rows.Next() {
        var t time.Time
        if err := rows.Scan(&t); err != nil {
            return nil, err
        }
        out = append(out, t.UTC())
    }
    return out, rows.Err()
}

func scanReservation(row rowScanner) (model.Reservation, error) {
    var (
        res     model.Reservation
        status  string
        checkIn sql.NullTime
    )
    err := row.Scan(&res.ID, &res.StoreID, &res.MemberID, &res.ReservationTime, &status,
        &res.VerificationCode, &checkIn, &res.CreatedAt, &res.UpdatedAt)
    if err != nil {
        return model.Reservation{}, translate(err)
    }
    res.Status = model.ReservationStatus(status)
    res.ReservationTime = res.ReservationTime.UTC()
    if checkIn.Valid {
        t := checkIn.Time.UTC()
        res.CheckInTime = &t
    }
    return res, nil
}
