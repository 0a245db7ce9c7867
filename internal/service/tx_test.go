package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/store-reservation/internal/apperr"
	"github.com/iliyamo/store-reservation/internal/config"
)

func TestSQLTxRunner_CreateReservationLocksRowsBeforeCounting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewReservationService(NewSQLTxRunner(db), config.DefaultReservationPolicy(),
		WithClock(func() time.Time { return testNow }))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM members WHERE email=? LIMIT 1 FOR UPDATE")).
		WithArgs("m@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "name", "role", "created_at", "updated_at"}).
			AddRow(uint64(1), "m@example.com", "x", "m", "USER", testNow, testNow))
	mock.ExpectQuery(regexp.QuoteMeta("FROM stores s WHERE s.id = ? FOR UPDATE")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "name", "location", "description", "latitude", "longitude",
			"average_rating", "review_count", "created_at", "updated_at"}).
			AddRow(uint64(7), uint64(2), "Corner Cafe", "Main St", nil, nil, nil, 0.0, 0, testNow, testNow))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE member_id = ? AND reservation_time BETWEEN ? AND ?")).
		WithArgs(uint64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE store_id = ? AND reservation_time BETWEEN ? AND ?")).
		WithArgs(uint64(7), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(5))
	mock.ExpectRollback()

	_, err = svc.CreateReservation(context.Background(), "m@example.com", 7, at(2, 14, 0))
	assertCode(t, err, apperr.CodeStoreFullyBooked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
