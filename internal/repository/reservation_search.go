package repository

import (
    "context"
    "strings"
    "time"

    "github.com/iliyamo/store-reservation/internal/model"
)

// ReservationCriteria filters reservation listings.  Zero values mean "no
// filter"; From and To are inclusive.
type ReservationCriteria struct {
    MemberEmail string
    StoreID     uint64
    Status      model.ReservationStatus
    From        *time.Time
    To          *time.Time
}

// predicate is one optional WHERE condition with its bind arguments.
type predicate struct {
    clause string
    args   []any
}

// predicates maps each populated criterion to exactly one predicate.  The
// caller ANDs them together.
func (c ReservationCriteria) predicates() []predicate {
    var out []predicate
    if c.MemberEmail != "" {
        out = append(out, predicate{"m.email = ?", []any{NormalizeEmail(c.MemberEmail)}})
    }
    if c.StoreID != 0 {
        out = append(out, predicate{"r.store_id = ?", []any{c.StoreID}})
    }
    if c.Status != "" {
        out = append(out, predicate{"r.status = ?", []any{string(c.Status)}})
    }
    if c.From != nil {
        out = append(out, predicate{"r.reservation_time >= ?", []any{c.From.UTC()}})
    }
    if c.To != nil {
        out = append(out, predicate{"r.reservation_time <= ?", []any{c.To.UTC()}})
    }
    return out
}

// where joins predicates with AND.  An empty list matches everything.
func where(ps []predicate) (string, []any) {
    if len(ps) == 0 {
        return "1=1", nil
    }
    clauses := make([]string, len(ps))
    var args []any
    for i, p := range ps {
        clauses[i] = p.clause
        args = append(args, p.args...)
    }
    return strings.Join(clauses, " AND "), args
}

// Search returns one page of reservations matching c, newest slot first,
// with the total number of matches.
func (r *ReservationRepo) Search(ctx context.Context, c ReservationCriteria, page Page) ([]model.ReservationSummary, int64, error) {
    cond, args := where(c.predicates())
    const from = ` FROM reservations r
        JOIN stores s  ON s.id = r.store_id
        JOIN members m ON m.id = r.member_id
        WHERE `

    var total int64
    if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+from+cond, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    dataSQL := "SELECT " + reservationColumns + ", s.name, m.email" + from + cond +
        " ORDER BY r.reservation_time DESC, r.id DESC LIMIT ? OFFSET ?"
    argsData := append(append([]any{}, args...), page.PageSize, page.Offset())

    rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    out := make([]model.ReservationSummary, 0, page.PageSize)
    for rows.Next() {
        var sum model.ReservationSummary
        res, err := scanReservation(summaryRow{rows, &sum})
        if err != nil {
            return nil, 0, err
        }
        sum.Reservation = res
        out = append(out, sum)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }
    return out, total, nil
}

// summaryRow appends the projection columns to a reservation scan.
type summaryRow struct {
    rows rowScanner
    sum  *model.ReservationSummary
}

func (s summaryRow) Scan(dest ...any) error {
    return s.rows.Scan(append(dest, &s.sum.StoreName, &s.sum.MemberEmail)...)
}
