package booking

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"studiopass/internal/api"
)

var (
	ErrBookingNotFoundOrAlreadyCancelled = errors.New("booking not found or already cancelled")
	ErrAlreadyBooked                     = errors.New("member already booked for this event")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, memberID, eventID, subscriptionID int) (*Booking, error) {
	return InsertBookingTx(ctx, r.db, memberID, eventID, subscriptionID)
}

// CreateWithCapacity inserts a confirmed booking only while the event still
// has a free slot. Competing bookings serialize on the event row lock, so
// the count always sees every earlier winner; zero rows back means the event
// filled up.
func (r *repository) CreateWithCapacity(ctx context.Context, memberID, eventID, subscriptionID, capacity int) (*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var lockedID int
	err = tx.QueryRowxContext(ctx,
		`SELECT id FROM class_events WHERE id = $1 FOR UPDATE`,
		eventID,
	).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		return nil, err
	}

	query := `
		INSERT INTO bookings (member_id, event_id, subscription_id, status)
		SELECT $1, $2, $3, 'confirmed'
		WHERE (SELECT COUNT(*) FROM bookings WHERE event_id = $2 AND status = 'confirmed') < $4
		RETURNING id, member_id, event_id, subscription_id, status, created_at
	`

	var b Booking
	err = tx.GetContext(ctx, &b, query, memberID, eventID, subscriptionID, capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrCapacityFull
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyBooked
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *repository) Gate(ctx context.Context, subscriptionID, eventID int) (*Gate, error) {
	query := `
		SELECT
			s.member_id AS subscription_member_id,
			s.status AS subscription_status,
			e.is_cancelled,
			e.capacity,
			EXISTS(
				SELECT 1 FROM booking_permissions bp
				WHERE bp.package_id = s.package_id AND bp.template_id = e.template_id
			) AS has_permission
		FROM subscriptions s
		CROSS JOIN class_events e
		WHERE s.id = $1 AND e.id = $2
	`

	var g Gate
	err := r.db.GetContext(ctx, &g, query, subscriptionID, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &g, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Booking, error) {
	query := `
		SELECT id, member_id, event_id, subscription_id, status, created_at
		FROM bookings
		WHERE id = $1
	`

	var b Booking
	err := r.db.GetContext(ctx, &b, query, id)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *repository) Cancel(ctx context.Context, id int) error {
	query := `
		UPDATE bookings
		SET status = 'cancelled'
		WHERE id = $1 AND status = 'confirmed'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrBookingNotFoundOrAlreadyCancelled
	}

	return nil
}

func (r *repository) MemberHasBookingForEvent(ctx context.Context, memberID, eventID int) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE member_id = $1 AND event_id = $2 AND status = 'confirmed'
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, memberID, eventID)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *repository) GetMemberBookings(ctx context.Context, memberID int) ([]BookingWithDetails, error) {
	query := `
		SELECT
			b.id,
			b.member_id,
			b.event_id,
			b.subscription_id,
			b.status,
			b.created_at,
			e.start_time AS event_start,
			e.end_time AS event_end,
			t.name AS template_name,
			m.name AS member_name
		FROM bookings b
		JOIN class_events e ON b.event_id = e.id
		JOIN class_templates t ON e.template_id = t.id
		JOIN members m ON b.member_id = m.id
		WHERE b.member_id = $1
		ORDER BY e.start_time DESC
	`

	var bookings []BookingWithDetails
	err := r.db.SelectContext(ctx, &bookings, query, memberID)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *repository) GetBookingsByEvent(ctx context.Context, eventID int) ([]BookingWithDetails, error) {
	query := `
		SELECT
			b.id,
			b.member_id,
			b.event_id,
			b.subscription_id,
			b.status,
			b.created_at,
			e.start_time AS event_start,
			e.end_time AS event_end,
			t.name AS template_name,
			m.name AS member_name
		FROM bookings b
		JOIN class_events e ON b.event_id = e.id
		JOIN class_templates t ON e.template_id = t.id
		JOIN members m ON b.member_id = m.id
		WHERE b.event_id = $1
		ORDER BY b.created_at DESC
	`

	var bookings []BookingWithDetails
	err := r.db.SelectContext(ctx, &bookings, query, eventID)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

// InsertBookingTx creates a confirmed booking, usable inside a sale
// transaction. The (member_id, event_id) unique index stops duplicates.
func InsertBookingTx(ctx context.Context, q sqlx.ExtContext, memberID, eventID, subscriptionID int) (*Booking, error) {
	query := `
		INSERT INTO bookings (member_id, event_id, subscription_id, status)
		VALUES ($1, $2, $3, 'confirmed')
		RETURNING id, member_id, event_id, subscription_id, status, created_at
	`

	var b Booking
	err := sqlx.GetContext(ctx, q, &b, query, memberID, eventID, subscriptionID)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}
