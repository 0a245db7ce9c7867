package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/store-reservation/internal/model"
)

// Store sort keys accepted by Search.
const (
	SortByName     = "NAME"
	SortByRating   = "RATING"
	SortByDistance = "DISTANCE"
)

// StoreSearchQuery defines filters, ordering and pagination for store
// listings.  Latitude/Longitude are the caller's position and are only used
// for DISTANCE ordering.
type StoreSearchQuery struct {
	Keyword    string
	OwnerEmail string
	Sort       string
	Desc       bool
	Latitude   *float64
	Longitude  *float64
	Page       Page
}

// haversineKM is the great-circle distance in kilometres between the
// caller's position (three placeholders: lat, lng, lat) and the store.
const haversineKM = `(6371 * ACOS(LEAST(1, GREATEST(-1,
	COS(RADIANS(?)) * COS(RADIANS(s.latitude)) * COS(RADIANS(s.longitude) - RADIANS(?))
	+ SIN(RADIANS(?)) * SIN(RADIANS(s.latitude))))))`

// Search returns one page of stores and the total number of matches.
func (r *StoreRepo) Search(ctx context.Context, q StoreSearchQuery) ([]model.Store, int64, error) {
	where := []string{}
	args := []any{}

	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		where = append(where, "(LOWER(s.name) LIKE ? OR LOWER(s.location) LIKE ?)")
		like := "%" + strings.ToLower(kw) + "%"
		args = append(args, like, like)
	}
	if q.OwnerEmail != "" {
		where = append(where, "s.owner_id = (SELECT id FROM members WHERE email = ?)")
		args = append(args, NormalizeEmail(q.OwnerEmail))
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stores s WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, orderArgs := storeOrder(q)
	dataSQL := "SELECT " + storeColumns + " FROM stores s WHERE " + cond + " ORDER BY " + order + " LIMIT ? OFFSET ?"
	argsData := append(append(append([]any{}, args...), orderArgs...), q.Page.PageSize, q.Page.Offset())

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Store, 0, q.Page.PageSize)
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// storeOrder builds the ORDER BY clause.  Ties always break on id so pages
// are stable.  DISTANCE without a caller position falls back to NAME;
// stores without coordinates sort last.
func storeOrder(q StoreSearchQuery) (string, []any) {
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	switch strings.ToUpper(q.Sort) {
	case SortByRating:
		return "s.average_rating " + dir + ", s.id ASC", nil
	case SortByDistance:
		if q.Latitude != nil && q.Longitude != nil {
			return "s.latitude IS NULL, " + haversineKM + " " + dir + ", s.id ASC",
				[]any{*q.Latitude, *q.Longitude, *q.Latitude}
		}
	}
	return "s.name " + dir + ", s.id ASC", nil
}
