package event

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrEventNotFoundOrAlreadyCancelled = errors.New("event not found or already cancelled")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int) (*ClassEvent, error) {
	query := `
		SELECT id, template_id, instructor_id, subscription_id, start_time, end_time, capacity, is_cancelled, created_at
		FROM class_events
		WHERE id = $1
	`

	var ev ClassEvent
	err := r.db.GetContext(ctx, &ev, query, id)
	if err != nil {
		return nil, err
	}

	return &ev, nil
}

func (r *repository) Create(ctx context.Context, ev ClassEvent) (*ClassEvent, error) {
	return InsertEventTx(ctx, r.db, ev)
}

func (r *repository) Cancel(ctx context.Context, id int) error {
	query := `
		UPDATE class_events
		SET is_cancelled = TRUE
		WHERE id = $1 AND is_cancelled = FALSE
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
		return ErrEventNotFoundOrAlreadyCancelled
	}

	return nil
}

func (r *repository) BookedContacts(ctx context.Context, eventID int) ([]BookedContact, error) {
	query := `
		SELECT m.name, m.email, t.name AS template_name, e.start_time
		FROM bookings b
		JOIN members m ON b.member_id = m.id
		JOIN class_events e ON b.event_id = e.id
		JOIN class_templates t ON e.template_id = t.id
		WHERE b.event_id = $1 AND b.status = 'confirmed'
	`

	var contacts []BookedContact
	err := r.db.SelectContext(ctx, &contacts, query, eventID)
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

func (r *repository) ListUpcoming(ctx context.Context, templateID int) ([]ClassEventWithDetails, error) {
	query := `
		SELECT
			e.id,
			e.template_id,
			e.instructor_id,
			e.subscription_id,
			e.start_time,
			e.end_time,
			e.capacity,
			e.is_cancelled,
			e.created_at,
			t.name AS template_name,
			m.name AS instructor_name
		FROM class_events e
		JOIN class_templates t ON e.template_id = t.id
		JOIN members m ON e.instructor_id = m.id
		WHERE e.template_id = $1 AND e.start_time > NOW() AND e.is_cancelled = FALSE
		ORDER BY e.start_time ASC
	`

	var events []ClassEventWithDetails
	err := r.db.SelectContext(ctx, &events, query, templateID)
	if err != nil {
		return nil, err
	}

	return events, nil
}

// InsertEventTx inserts one class event, usable inside a sale transaction.
func InsertEventTx(ctx context.Context, q sqlx.ExtContext, ev ClassEvent) (*ClassEvent, error) {
	query := `
		INSERT INTO class_events (template_id, instructor_id, subscription_id, start_time, end_time, capacity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, template_id, instructor_id, subscription_id, start_time, end_time, capacity, is_cancelled, created_at
	`

	var inserted ClassEvent
	err := sqlx.GetContext(ctx, q, &inserted, query,
		ev.TemplateID, ev.InstructorID, ev.SubscriptionID, ev.StartTime, ev.EndTime, ev.Capacity)
	if err != nil {
		return nil, err
	}

	return &inserted, nil
}
