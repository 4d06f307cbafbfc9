package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studiopass/internal/api"
	"studiopass/internal/catalog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// GetTokenContext resolves a QR token into the full gate context in one
// query. sql.ErrNoRows means the token does not exist at all.
func (r *repository) GetTokenContext(ctx context.Context, token string) (*TokenContext, error) {
	query := `
		SELECT
			q.id AS qr_code_id,
			q.is_active AS qr_active,
			s.id AS subscription_id,
			s.member_id,
			m.name AS member_name,
			s.package_id,
			p.name AS package_name,
			s.access_type,
			pl.sessions_granted,
			s.used_sessions,
			s.attendance_count,
			s.status,
			s.start_date,
			s.end_date
		FROM qr_codes q
		JOIN subscriptions s ON s.id = q.subscription_id
		JOIN members m ON m.id = s.member_id
		JOIN packages p ON p.id = s.package_id
		JOIN plans pl ON pl.id = p.plan_id
		WHERE q.token = $1
	`

	var tc TokenContext
	err := r.db.GetContext(ctx, &tc, query, token)
	if err != nil {
		return nil, err
	}

	return &tc, nil
}

func (r *repository) GetEventGate(ctx context.Context, eventID, packageID int) (*EventGate, error) {
	query := `
		SELECT
			ce.id AS event_id,
			ce.template_id,
			ce.capacity,
			ce.is_cancelled,
			EXISTS(
				SELECT 1 FROM booking_permissions bp
				WHERE bp.package_id = $2 AND bp.template_id = ce.template_id
			) AS has_permission
		FROM class_events ce
		WHERE ce.id = $1
	`

	var gate EventGate
	err := r.db.GetContext(ctx, &gate, query, eventID, packageID)
	if err != nil {
		return nil, err
	}

	return &gate, nil
}

// EligibleEvents lists the not-cancelled events starting inside the window
// whose template the package is permitted to book.
func (r *repository) EligibleEvents(ctx context.Context, packageID int, from, to time.Time) ([]EligibleEvent, error) {
	query := `
		SELECT
			ce.id AS event_id,
			ct.name AS template_name,
			i.name AS instructor_name,
			ce.start_time,
			ce.end_time,
			ce.capacity,
			(SELECT COUNT(*) FROM session_checkins sc WHERE sc.event_id = ce.id) AS checked_in
		FROM class_events ce
		JOIN class_templates ct ON ct.id = ce.template_id
		JOIN members i ON i.id = ce.instructor_id
		JOIN booking_permissions bp ON bp.template_id = ce.template_id AND bp.package_id = $1
		WHERE ce.is_cancelled = FALSE
		  AND ce.start_time BETWEEN $2 AND $3
		ORDER BY ce.start_time
	`

	var events []EligibleEvent
	err := r.db.SelectContext(ctx, &events, query, packageID, from, to)
	if err != nil {
		return nil, err
	}

	return events, nil
}

// Commit inserts the check-in and bumps the matching counter in one
// transaction. Competing check-ins serialize on the event row lock, so the
// capacity count always sees every earlier winner; the unique index on
// (subscription_id, event_id) turns a re-scan into ErrDuplicateCheckIn. A
// session-based increment that would exceed the grant fails the whole
// transaction with ErrNoSessionsRemaining.
func (r *repository) Commit(ctx context.Context, params CommitParams) (*CommitResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var checkIn SessionCheckIn
	if params.EventID != nil {
		// Without the lock, two READ COMMITTED transactions racing for the
		// last slot would each count the seats before either commits.
		var lockedID int
		err := tx.QueryRowxContext(ctx,
			`SELECT id FROM class_events WHERE id = $1 FOR UPDATE`,
			*params.EventID,
		).Scan(&lockedID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: event %d", api.ErrNotFound, *params.EventID)
			}
			return nil, err
		}

		bookingID, err := findBooking(ctx, tx, params.MemberID, *params.EventID)
		if err != nil {
			return nil, err
		}

		err = tx.QueryRowxContext(ctx, `
			INSERT INTO session_checkins (subscription_id, member_id, event_id, booking_id, verified_by)
			SELECT $1, $2, $3, $4, $5
			WHERE (SELECT COUNT(*) FROM session_checkins WHERE event_id = $3) < $6
			RETURNING id, subscription_id, member_id, event_id, booking_id, verified_by, checked_in_at
		`, params.SubscriptionID, params.MemberID, *params.EventID, bookingID, params.VerifiedBy, params.Capacity).StructScan(&checkIn)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: event %d", api.ErrCapacityFull, *params.EventID)
			}
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("%w: subscription %d, event %d", api.ErrDuplicateCheckIn, params.SubscriptionID, *params.EventID)
			}
			return nil, err
		}
	} else {
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO session_checkins (subscription_id, member_id, verified_by)
			VALUES ($1, $2, $3)
			RETURNING id, subscription_id, member_id, event_id, booking_id, verified_by, checked_in_at
		`, params.SubscriptionID, params.MemberID, params.VerifiedBy).StructScan(&checkIn)
		if err != nil {
			return nil, err
		}
	}

	result := CommitResult{CheckIn: checkIn}
	if params.AccessType == catalog.AccessSessionBased {
		err = tx.QueryRowxContext(ctx, `
			UPDATE subscriptions
			SET used_sessions = used_sessions + 1, updated_at = NOW()
			WHERE id = $1 AND ($2 <= 0 OR used_sessions < $2)
			RETURNING used_sessions, attendance_count
		`, params.SubscriptionID, params.SessionsGranted).Scan(&result.UsedSessions, &result.AttendanceCount)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: subscription %d", api.ErrNoSessionsRemaining, params.SubscriptionID)
			}
			return nil, err
		}
	} else {
		err = tx.QueryRowxContext(ctx, `
			UPDATE subscriptions
			SET attendance_count = attendance_count + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING used_sessions, attendance_count
		`, params.SubscriptionID).Scan(&result.UsedSessions, &result.AttendanceCount)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &result, nil
}

// findBooking links the check-in to a pre-existing confirmed booking when
// one exists. A check-in never creates a booking.
func findBooking(ctx context.Context, tx *sqlx.Tx, memberID, eventID int) (*int, error) {
	var id int
	err := tx.GetContext(ctx, &id, `
		SELECT id FROM bookings
		WHERE member_id = $1 AND event_id = $2 AND status = 'confirmed'
	`, memberID, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}

// Reverse deletes the check-in and decrements exactly the counter its
// creation incremented, clamped at zero. Both effects share one
// transaction.
func (r *repository) Reverse(ctx context.Context, checkInID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var row struct {
		SubscriptionID int                `db:"subscription_id"`
		AccessType     catalog.AccessType `db:"access_type"`
	}
	err = tx.GetContext(ctx, &row, `
		SELECT sc.subscription_id, s.access_type
		FROM session_checkins sc
		JOIN subscriptions s ON s.id = sc.subscription_id
		WHERE sc.id = $1
		FOR UPDATE OF sc, s
	`, checkInID)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_checkins WHERE id = $1`, checkInID); err != nil {
		return err
	}

	counter := `attendance_count = GREATEST(attendance_count - 1, 0)`
	if row.AccessType == catalog.AccessSessionBased {
		counter = `used_sessions = GREATEST(used_sessions - 1, 0)`
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE subscriptions
		SET `+counter+`, updated_at = NOW()
		WHERE id = $1
	`, row.SubscriptionID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	return false
}
