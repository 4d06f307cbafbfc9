package subscription

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"studiopass/internal/booking"
	"studiopass/internal/catalog"
	"studiopass/internal/event"
	"studiopass/internal/ledger"
	"studiopass/internal/member"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrTokenCollision reports that the generated QR token already exists;
// the caller retries with a fresh token instead of reusing one.
var ErrTokenCollision = errors.New("qr token collision")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

var subscriptionColumns = `id, member_id, package_id, purchase_price_cents, start_date, end_date, status, access_type, used_sessions, attendance_count, created_at, updated_at`

func (r *repository) GetByID(ctx context.Context, id int) (*Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE id = $1
	`

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, id)
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *repository) GetMemberContact(ctx context.Context, memberID int) (*MemberContact, error) {
	query := `
		SELECT name, email
		FROM members
		WHERE id = $1
	`

	var contact MemberContact
	err := r.db.GetContext(ctx, &contact, query, memberID)
	if err != nil {
		return nil, err
	}

	return &contact, nil
}

func (r *repository) ExpiringBetween(ctx context.Context, from, to time.Time) ([]ExpiringSubscription, error) {
	query := `
		SELECT
			s.id AS subscription_id,
			m.name AS member_name,
			m.email AS member_email,
			p.name AS package_name,
			s.end_date
		FROM subscriptions s
		JOIN members m ON s.member_id = m.id
		JOIN packages p ON s.package_id = p.id
		WHERE s.status = 'active' AND s.end_date >= $1 AND s.end_date < $2
		ORDER BY s.end_date ASC
	`

	var expiring []ExpiringSubscription
	err := r.db.SelectContext(ctx, &expiring, query, from, to)
	if err != nil {
		return nil, err
	}

	return expiring, nil
}

func (r *repository) ListByMember(ctx context.Context, memberID int) ([]Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE member_id = $1
		ORDER BY created_at DESC
	`

	var subs []Subscription
	err := r.db.SelectContext(ctx, &subs, query, memberID)
	if err != nil {
		return nil, err
	}

	return subs, nil
}

// CreateSale persists the whole sale in one transaction: subscription, QR
// code, optional recurring events with bookings, optional initial payment,
// and the member activity touch. Any failure rolls the whole sale back.
func (r *repository) CreateSale(ctx context.Context, sale SaleRecord) (*Subscription, int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	var sub Subscription
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO subscriptions (member_id, package_id, purchase_price_cents, start_date, end_date, status, access_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+subscriptionColumns+`
	`,
		sale.Subscription.MemberID,
		sale.Subscription.PackageID,
		sale.Subscription.PurchasePriceCents,
		sale.Subscription.StartDate,
		sale.Subscription.EndDate,
		sale.Subscription.Status,
		sale.Subscription.AccessType,
	).StructScan(&sub)
	if err != nil {
		return nil, 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO qr_codes (subscription_id, token)
		VALUES ($1, $2)
	`, sub.ID, sale.Token)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, 0, ErrTokenCollision
		}
		return nil, 0, err
	}

	eventsCount := 0
	if sched := sale.Schedule; sched != nil {
		tpl, err := catalog.GetOrCreateTemplateTx(ctx, tx, sched.TemplateName)
		if err != nil {
			return nil, 0, err
		}

		if err := catalog.EnsurePermissionTx(ctx, tx, sub.PackageID, tpl.ID); err != nil {
			return nil, 0, err
		}

		for _, occ := range sched.Occurrences {
			ev, err := event.InsertEventTx(ctx, tx, event.ClassEvent{
				TemplateID:     tpl.ID,
				InstructorID:   sched.InstructorID,
				SubscriptionID: &sub.ID,
				StartTime:      occ.Start,
				EndTime:        occ.End,
				Capacity:       sched.Capacity,
			})
			if err != nil {
				return nil, 0, err
			}

			if _, err := booking.InsertBookingTx(ctx, tx, sub.MemberID, ev.ID, sub.ID); err != nil {
				return nil, 0, err
			}

			eventsCount++
		}
	}

	if p := sale.InitialPayment; p != nil {
		if _, err := ledger.InsertPaymentTx(ctx, tx, sub.ID, p.AmountCents, p.Method, time.Now()); err != nil {
			return nil, 0, err
		}
	}

	if err := member.TouchActivityTx(ctx, tx, sub.MemberID); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}

	return &sub, eventsCount, nil
}

// DeleteCascade removes a subscription and everything hanging off it, in a
// fixed order that respects the foreign keys: check-ins, booking references
// held by other subscriptions' check-ins, bookings, owned class events,
// payments, QR codes, then the subscription itself. One transaction; a
// failure anywhere rolls back every prior delete.
func (r *repository) DeleteCascade(ctx context.Context, id int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	steps := []string{
		`DELETE FROM session_checkins WHERE subscription_id = $1 OR event_id IN (SELECT id FROM class_events WHERE subscription_id = $1)`,
		// a check-in belonging to another subscription can reference one of
		// the doomed bookings; detach it before the bookings go
		`UPDATE session_checkins SET booking_id = NULL WHERE booking_id IN (SELECT id FROM bookings WHERE subscription_id = $1 OR event_id IN (SELECT id FROM class_events WHERE subscription_id = $1))`,
		`DELETE FROM bookings WHERE subscription_id = $1 OR event_id IN (SELECT id FROM class_events WHERE subscription_id = $1)`,
		`DELETE FROM class_events WHERE subscription_id = $1`,
		`DELETE FROM payments WHERE subscription_id = $1`,
		`DELETE FROM qr_codes WHERE subscription_id = $1`,
	}

	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step, id); err != nil {
			return err
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}

func (r *repository) GetQRBySubscriptionID(ctx context.Context, subscriptionID int) (*QRCode, error) {
	query := `
		SELECT id, subscription_id, token, is_active, created_at
		FROM qr_codes
		WHERE subscription_id = $1
	`

	var qr QRCode
	err := r.db.GetContext(ctx, &qr, query, subscriptionID)
	if err != nil {
		return nil, err
	}

	return &qr, nil
}

// RotateQR replaces the subscription's token with a fresh one and
// re-activates it. QR codes are one-to-one with subscriptions, so rotation
// is an update, not an insert.
func (r *repository) RotateQR(ctx context.Context, subscriptionID int, newToken string) (*QRCode, error) {
	query := `
		UPDATE qr_codes
		SET token = $2, is_active = TRUE
		WHERE subscription_id = $1
		RETURNING id, subscription_id, token, is_active, created_at
	`

	var qr QRCode
	err := r.db.GetContext(ctx, &qr, query, subscriptionID, newToken)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrTokenCollision
		}
		return nil, err
	}

	return &qr, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	return false
}
