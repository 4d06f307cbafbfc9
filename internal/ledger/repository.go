package ledger

import (
	"context"
	"fmt"
	"time"

	"studiopass/internal/api"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) RecordPayment(ctx context.Context, subscriptionID int, amountCents int64, method string) (*Payment, error) {
	return InsertPaymentTx(ctx, r.db, subscriptionID, amountCents, method, time.Now())
}

// TotalPaid sums all non-zero payment amounts for the subscription.
func (r *repository) TotalPaid(ctx context.Context, subscriptionID int) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM payments
		WHERE subscription_id = $1 AND amount_cents <> 0
	`

	var total int64
	err := r.db.GetContext(ctx, &total, query, subscriptionID)
	if err != nil {
		return 0, err
	}

	return total, nil
}

// Debt returns purchase price minus total paid, counted only for active and
// pending subscriptions. Negative values are reported as-is; the endpoint
// layer clamps them for display.
func (r *repository) Debt(ctx context.Context, subscriptionID int) (*DebtResponse, error) {
	query := `
		SELECT
			s.id AS subscription_id,
			s.purchase_price_cents,
			COALESCE((
				SELECT SUM(p.amount_cents)
				FROM payments p
				WHERE p.subscription_id = s.id AND p.amount_cents <> 0
			), 0) AS total_paid_cents,
			CASE
				WHEN s.status IN ('active', 'pending') THEN s.purchase_price_cents - COALESCE((
					SELECT SUM(p.amount_cents)
					FROM payments p
					WHERE p.subscription_id = s.id AND p.amount_cents <> 0
				), 0)
				ELSE 0
			END AS debt_cents
		FROM subscriptions s
		WHERE s.id = $1
	`

	var debt DebtResponse
	err := r.db.GetContext(ctx, &debt, query, subscriptionID)
	if err != nil {
		return nil, err
	}

	return &debt, nil
}

func (r *repository) ListBySubscription(ctx context.Context, subscriptionID int) ([]Payment, error) {
	query := `
		SELECT id, subscription_id, amount_cents, method, refunded_cents, refund_reason, payment_date
		FROM payments
		WHERE subscription_id = $1
		ORDER BY payment_date DESC
	`

	var payments []Payment
	err := r.db.SelectContext(ctx, &payments, query, subscriptionID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

// InsertPaymentTx appends one payment row, usable inside a sale transaction.
// The amount bound is checked before touching the database so a would-be
// numeric overflow surfaces as a classified error instead of a bare driver
// failure; a driver-side overflow is classified the same way as a backstop.
func InsertPaymentTx(ctx context.Context, q sqlx.ExtContext, subscriptionID int, amountCents int64, method string, paymentDate time.Time) (*Payment, error) {
	if amountCents >= MaxPaymentCents || amountCents <= -MaxPaymentCents {
		return nil, fmt.Errorf("%w: payment amount out of range", api.ErrDataIntegrity)
	}

	query := `
		INSERT INTO payments (subscription_id, amount_cents, method, payment_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, subscription_id, amount_cents, method, refunded_cents, refund_reason, payment_date
	`

	var p Payment
	err := sqlx.GetContext(ctx, q, &p, query, subscriptionID, amountCents, method, paymentDate)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code.Name() {
			case "numeric_value_out_of_range":
				return nil, fmt.Errorf("%w: payment amount out of range", api.ErrDataIntegrity)
			case "foreign_key_violation":
				return nil, fmt.Errorf("%w: unknown subscription", api.ErrDataIntegrity)
			}
		}
		return nil, err
	}

	return &p, nil
}
