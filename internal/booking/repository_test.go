package booking

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"studiopass/internal/api"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() {
		sqlxDB.Close()
	}

	return repo, mock, closer
}

func TestCreateAndGetBooking(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings (member_id, event_id, subscription_id, status) VALUES ($1, $2, $3, 'confirmed') RETURNING id, member_id, event_id, subscription_id, status, created_at")).
		WithArgs(1, 2, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "event_id", "subscription_id", "status", "created_at"}).
			AddRow(10, 1, 2, 3, "confirmed", now))

	b, err := repo.Create(ctx, 1, 2, 3)
	require.NoError(t, err)
	require.Equal(t, 10, b.ID)
	require.Equal(t, StatusConfirmed, b.Status)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, member_id, event_id, subscription_id, status, created_at FROM bookings WHERE id = $1")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "event_id", "subscription_id", "status", "created_at"}).
			AddRow(10, 1, 2, 3, "confirmed", now))

	got, err := repo.GetByID(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 10, got.ID)
}

func TestCancelBooking(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = 'cancelled' WHERE id = $1 AND status = 'confirmed'")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Cancel(ctx, 5))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = 'cancelled' WHERE id = $1 AND status = 'confirmed'")).
		WithArgs(6).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Cancel(ctx, 6)
	require.ErrorIs(t, err, ErrBookingNotFoundOrAlreadyCancelled)
}

func TestMemberHasBookingForEvent(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS( SELECT 1 FROM bookings WHERE member_id = $1 AND event_id = $2 AND status = 'confirmed' )")).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.MemberHasBookingForEvent(ctx, 1, 2)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCreateWithCapacity(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	ctx := context.Background()
	now := time.Now()

	// the event row lock comes first so the count sees every earlier winner
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_events WHERE id = $1 FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings (member_id, event_id, subscription_id, status) SELECT $1, $2, $3, 'confirmed' WHERE (SELECT COUNT(*) FROM bookings WHERE event_id = $2 AND status = 'confirmed') < $4 RETURNING id, member_id, event_id, subscription_id, status, created_at")).
		WithArgs(1, 2, 3, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "event_id", "subscription_id", "status", "created_at"}).
			AddRow(10, 1, 2, 3, "confirmed", now))
	mock.ExpectCommit()

	b, err := repo.CreateWithCapacity(ctx, 1, 2, 3, 5)
	require.NoError(t, err)
	require.Equal(t, 10, b.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithCapacityFull(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_events WHERE id = $1 FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	// a competitor committed while we waited on the lock: the count now
	// shows the event full and the conditional insert returns no row
	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(1, 2, 3, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "event_id", "subscription_id", "status", "created_at"}))
	mock.ExpectRollback()

	_, err := repo.CreateWithCapacity(ctx, 1, 2, 3, 5)
	require.ErrorIs(t, err, api.ErrCapacityFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithCapacityDuplicate(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_events WHERE id = $1 FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(1, 2, 3, 5).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.CreateWithCapacity(ctx, 1, 2, 3, 5)
	require.ErrorIs(t, err, ErrAlreadyBooked)
}

func TestCreateWithCapacityUnknownEvent(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_events WHERE id = $1 FOR UPDATE")).
		WithArgs(2).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.CreateWithCapacity(ctx, 1, 2, 3, 5)
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestGateUnknownPair(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectQuery("SELECT").
		WithArgs(3, 2).
		WillReturnRows(sqlmock.NewRows([]string{"subscription_member_id", "subscription_status", "is_cancelled", "capacity", "has_permission"}))

	_, err := repo.Gate(ctx, 3, 2)
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestGate(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectQuery("SELECT").
		WithArgs(3, 2).
		WillReturnRows(sqlmock.NewRows([]string{"subscription_member_id", "subscription_status", "is_cancelled", "capacity", "has_permission"}).
			AddRow(1, "active", false, 12, true))

	g, err := repo.Gate(ctx, 3, 2)
	require.NoError(t, err)
	require.Equal(t, 1, g.SubscriptionMemberID)
	require.Equal(t, 12, g.Capacity)
	require.True(t, g.HasPermission)
}
