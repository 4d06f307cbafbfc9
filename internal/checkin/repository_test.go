package checkin

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"studiopass/internal/api"
	"studiopass/internal/catalog"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
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

func checkInColumns() []string {
	return []string{"id", "subscription_id", "member_id", "event_id", "booking_id", "verified_by", "checked_in_at"}
}

func TestGetTokenContext(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	mock.ExpectQuery("SELECT q.id AS qr_code_id,").
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{
			"qr_code_id", "qr_active", "subscription_id", "member_id", "member_name",
			"package_id", "package_name", "access_type", "sessions_granted",
			"used_sessions", "attendance_count", "status", "start_date", "end_date",
		}).AddRow(1, true, 12, 7, "Mira", 4, "Pilates 10-pack", "SESSION_BASED", 10, 3, 0, "active", now, now.AddDate(0, 0, 21)))

	tc, err := repo.GetTokenContext(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, 12, tc.SubscriptionID)
	require.Equal(t, catalog.AccessSessionBased, tc.AccessType)
	require.Equal(t, 10, tc.SessionsGranted)
}

func TestCommitSessionBased(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	eventID := 100

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_events WHERE id = $1 FOR UPDATE")).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(eventID))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM bookings WHERE member_id = $1 AND event_id = $2 AND status = 'confirmed'")).
		WithArgs(7, eventID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(200))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO session_checkins (subscription_id, member_id, event_id, booking_id, verified_by) SELECT $1, $2, $3, $4, $5 WHERE (SELECT COUNT(*) FROM session_checkins WHERE event_id = $3) < $6 RETURNING")).
		WithArgs(12, 7, eventID, 200, nil, 12).
		WillReturnRows(sqlmock.NewRows(checkInColumns()).AddRow(55, 12, 7, eventID, 200, nil, now))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE subscriptions SET used_sessions = used_sessions + 1, updated_at = NOW() WHERE id = $1 AND ($2 <= 0 OR used_sessions < $2) RETURNING used_sessions, attendance_count")).
		WithArgs(12, 10).
		WillReturnRows(sqlmock.NewRows([]string{"used_sessions", "attendance_count"}).AddRow(4, 0))
	mock.ExpectCommit()

	result, err := repo.Commit(context.Background(), CommitParams{
		SubscriptionID:  12,
		MemberID:        7,
		EventID:         &eventID,
		Capacity:        12,
		AccessType:      catalog.AccessSessionBased,
		SessionsGranted: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 55, result.CheckIn.ID)
	require.Equal(t, 4, result.UsedSessions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitCapacityFullRollsBack(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	eventID := 100

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_events WHERE id = $1 FOR UPDATE")).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(eventID))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM bookings")).
		WithArgs(7, eventID).
		WillReturnError(sql.ErrNoRows)
	// a competitor committed while we waited on the event lock: the count
	// now shows the event full and the conditional insert returns no row
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO session_checkins")).
		WithArgs(12, 7, eventID, nil, nil, 1).
		WillReturnRows(sqlmock.NewRows(checkInColumns()))
	mock.ExpectRollback()

	_, err := repo.Commit(context.Background(), CommitParams{
		SubscriptionID:  12,
		MemberID:        7,
		EventID:         &eventID,
		Capacity:        1,
		AccessType:      catalog.AccessSessionBased,
		SessionsGranted: 10,
	})
	require.ErrorIs(t, err, api.ErrCapacityFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitDuplicateRollsBack(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	eventID := 100

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_events WHERE id = $1 FOR UPDATE")).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(eventID))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM bookings")).
		WithArgs(7, eventID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO session_checkins")).
		WithArgs(12, 7, eventID, nil, nil, 12).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.Commit(context.Background(), CommitParams{
		SubscriptionID:  12,
		MemberID:        7,
		EventID:         &eventID,
		Capacity:        12,
		AccessType:      catalog.AccessSessionBased,
		SessionsGranted: 10,
	})
	require.ErrorIs(t, err, api.ErrDuplicateCheckIn)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitExhaustedGrantRollsBack(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	eventID := 100

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_events WHERE id = $1 FOR UPDATE")).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(eventID))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM bookings")).
		WithArgs(7, eventID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO session_checkins")).
		WithArgs(12, 7, eventID, nil, nil, 12).
		WillReturnRows(sqlmock.NewRows(checkInColumns()).AddRow(55, 12, 7, eventID, nil, nil, now))
	// a racing check-in already consumed the last session: the guarded
	// update matches no row and the insert rolls back with it
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE subscriptions SET used_sessions = used_sessions + 1")).
		WithArgs(12, 10).
		WillReturnRows(sqlmock.NewRows([]string{"used_sessions", "attendance_count"}))
	mock.ExpectRollback()

	_, err := repo.Commit(context.Background(), CommitParams{
		SubscriptionID:  12,
		MemberID:        7,
		EventID:         &eventID,
		Capacity:        12,
		AccessType:      catalog.AccessSessionBased,
		SessionsGranted: 10,
	})
	require.ErrorIs(t, err, api.ErrNoSessionsRemaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitTimeBased(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO session_checkins (subscription_id, member_id, verified_by) VALUES ($1, $2, $3) RETURNING")).
		WithArgs(12, 7, nil).
		WillReturnRows(sqlmock.NewRows(checkInColumns()).AddRow(56, 12, 7, nil, nil, nil, now))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE subscriptions SET attendance_count = attendance_count + 1, updated_at = NOW() WHERE id = $1 RETURNING used_sessions, attendance_count")).
		WithArgs(12).
		WillReturnRows(sqlmock.NewRows([]string{"used_sessions", "attendance_count"}).AddRow(0, 42))
	mock.ExpectCommit()

	result, err := repo.Commit(context.Background(), CommitParams{
		SubscriptionID: 12,
		MemberID:       7,
		AccessType:     catalog.AccessTimeBased,
	})
	require.NoError(t, err)
	require.Equal(t, 42, result.AttendanceCount)
	require.Nil(t, result.CheckIn.EventID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReverseSessionBased(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT sc.subscription_id, s.access_type FROM session_checkins sc JOIN subscriptions s ON s.id = sc.subscription_id WHERE sc.id = $1 FOR UPDATE OF sc, s")).
		WithArgs(55).
		WillReturnRows(sqlmock.NewRows([]string{"subscription_id", "access_type"}).AddRow(12, "SESSION_BASED"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM session_checkins WHERE id = $1")).
		WithArgs(55).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subscriptions SET used_sessions = GREATEST(used_sessions - 1, 0), updated_at = NOW() WHERE id = $1")).
		WithArgs(12).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Reverse(context.Background(), 55)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReverseTimeBased(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT sc.subscription_id, s.access_type")).
		WithArgs(56).
		WillReturnRows(sqlmock.NewRows([]string{"subscription_id", "access_type"}).AddRow(12, "TIME_BASED"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM session_checkins WHERE id = $1")).
		WithArgs(56).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subscriptions SET attendance_count = GREATEST(attendance_count - 1, 0), updated_at = NOW() WHERE id = $1")).
		WithArgs(12).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Reverse(context.Background(), 56)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReverseUnknownID(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT sc.subscription_id, s.access_type")).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Reverse(context.Background(), 99)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitUnknownEventRollsBack(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	eventID := 404

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_events WHERE id = $1 FOR UPDATE")).
		WithArgs(eventID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Commit(context.Background(), CommitParams{
		SubscriptionID:  12,
		MemberID:        7,
		EventID:         &eventID,
		Capacity:        12,
		AccessType:      catalog.AccessSessionBased,
		SessionsGranted: 10,
	})
	require.ErrorIs(t, err, api.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
