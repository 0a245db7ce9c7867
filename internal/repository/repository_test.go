package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/store-reservation/internal/model"
)

func newMock(t *testing.T) (*ReservationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewReservationRepo(db), mock
}

var reservationCols = []string{"id", "store_id", "member_id", "reservation_time", "status",
	"verification_code", "check_in_time", "created_at", "updated_at"}

func TestNewPage(t *testing.T) {
	assert.Equal(t, Page{Page: 1, PageSize: 20}, NewPage(0, 0))
	assert.Equal(t, Page{Page: 3, PageSize: 100}, NewPage(3, 500))
	assert.Equal(t, 40, NewPage(3, 20).Offset())
}

func TestNewPage_HugePageDoesNotOverflow(t *testing.T) {
	const maxInt = int(^uint(0) >> 1)
	p := NewPage(maxInt, 100)
	assert.Equal(t, maxPage, p.Page)
	assert.Equal(t, (maxPage-1)*100, p.Offset())

	raw := Page{Page: maxInt, PageSize: maxInt}
	assert.Equal(t, (maxPage-1)*100, raw.Offset())
	assert.GreaterOrEqual(t, raw.Offset(), 0)
}

func TestReservationCriteria_Predicates(t *testing.T) {
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)
	c := ReservationCriteria{
		MemberEmail: " User@Test.com ",
		StoreID:     7,
		Status:      model.StatusApproved,
		From:        &from,
		To:          &to,
	}

	cond, args := where(c.predicates())
	assert.Equal(t,
		"m.email = ? AND r.store_id = ? AND r.status = ? AND r.reservation_time >= ? AND r.reservation_time <= ?",
		cond)
	assert.Equal(t, []any{"user@test.com", uint64(7), "APPROVED", from, to}, args)
}

func TestReservationCriteria_OnlyUpperBound(t *testing.T) {
	to := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	cond, args := where(ReservationCriteria{To: &to}.predicates())
	assert.Equal(t, "r.reservation_time <= ?", cond)
	assert.Equal(t, []any{to}, args)

	cond, args = where(ReservationCriteria{}.predicates())
	assert.Equal(t, "1=1", cond)
	assert.Empty(t, args)
}

func TestReservationRepo_GetByIDForUpdate_LocksRow(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)
	checkIn := at.Add(-5 * time.Minute)

	mock.ExpectQuery(`FROM reservations r WHERE r.id = \? FOR UPDATE`).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow(9, 3, 4, at, "CHECKED_IN", "123456", checkIn, at, at))

	res, err := repo.GetByIDForUpdate(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), res.ID)
	assert.Equal(t, model.StatusCheckedIn, res.Status)
	require.NotNil(t, res.CheckInTime)
	assert.True(t, checkIn.Equal(*res.CheckInTime))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepo_GetByID_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`FROM reservations r WHERE r.id = \?`).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(reservationCols))

	_, err := repo.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReservationRepo_CountByStoreAndTimeBetween_CountsEveryStatus(t *testing.T) {
	repo, mock := newMock(t)
	start := time.Date(2026, 5, 2, 13, 30, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE store_id = ? AND reservation_time BETWEEN ? AND ?") + "$").
		WithArgs(uint64(3), start, end).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))

	n, err := repo.CountByStoreAndTimeBetween(context.Background(), 3, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepo_ExistsByMemberAndTimeBetween_CountsEveryStatus(t *testing.T) {
	repo, mock := newMock(t)
	start := time.Date(2026, 5, 2, 13, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE member_id = ? AND reservation_time BETWEEN ? AND ?") + "$").
		WithArgs(uint64(9), start, end).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	ok, err := repo.ExistsByMemberAndTimeBetween(context.Background(), 9, start, end)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepo_UpdateStatus(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2026, 5, 2, 13, 55, 0, 0, time.UTC)
	res := &model.Reservation{ID: 5, Status: model.StatusCheckedIn, CheckInTime: &now, UpdatedAt: now}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status = ?, check_in_time = ?, updated_at = ? WHERE id = ?")).
		WithArgs("CHECKED_IN", sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), res))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepo_Create_DuplicateKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewReviewRepo(db)

	mock.ExpectExec("INSERT INTO reviews").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err = repo.Create(context.Background(), &model.Review{ReservationID: 1, Rating: 5})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStoreRepo_Search_DistanceOrdering(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewStoreRepo(db)

	lat, lng := 37.5, 127.0
	q := StoreSearchQuery{Keyword: "Cafe", Sort: "distance", Latitude: &lat, Longitude: &lng, Page: NewPage(2, 10)}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM stores s WHERE (LOWER(s.name) LIKE ? OR LOWER(s.location) LIKE ?)")).
		WithArgs("%cafe%", "%cafe%").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(11))
	mock.ExpectQuery(`ORDER BY s.latitude IS NULL, \(6371 \* ACOS`).
		WithArgs("%cafe%", "%cafe%", lat, lng, lat, 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "name", "location", "description",
			"latitude", "longitude", "average_rating", "review_count", "created_at", "updated_at"}).
			AddRow(12, 2, "Cafe B", "Seoul", nil, 37.51, 127.01, 4.5, 2, time.Now(), time.Now()))

	stores, total, err := repo.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
	require.Len(t, stores, 1)
	assert.Equal(t, "Cafe B", stores[0].Name)
	require.NotNil(t, stores[0].Latitude)
	assert.Equal(t, "", stores[0].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreOrder_DistanceWithoutPositionFallsBackToName(t *testing.T) {
	order, args := storeOrder(StoreSearchQuery{Sort: SortByDistance, Desc: true})
	assert.Equal(t, "s.name DESC, s.id ASC", order)
	assert.Nil(t, args)

	order, _ = storeOrder(StoreSearchQuery{Sort: "rating"})
	assert.Equal(t, "s.average_rating ASC, s.id ASC", order)
}

func TestMemberRepo_Create_NormalizesEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewMemberRepo(db)

	mock.ExpectExec("INSERT INTO members").
		WithArgs("partner@test.com", "hash", "Kim", "PARTNER", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	m := &model.Member{Email: "  Partner@Test.com", PasswordHash: "hash", Name: "Kim", Role: model.RolePartner}
	require.NoError(t, repo.Create(context.Background(), m))
	assert.Equal(t, uint64(42), m.ID)
	assert.Equal(t, "partner@test.com", m.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
