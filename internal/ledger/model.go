package ledger

import "time"

// MaxPaymentCents caps a single payment at one hundred million units. The
// column itself is BIGINT and holds far more; this is a sanity bound to catch
// fat-fingered amounts before they reach the ledger.
const MaxPaymentCents int64 = 100_000_000_00

type Payment struct {
	ID             int       `db:"id" json:"id"`
	SubscriptionID int       `db:"subscription_id" json:"subscription_id"`
	AmountCents    int64     `db:"amount_cents" json:"amount_cents"`
	Method         string    `db:"method" json:"method"`
	RefundedCents  *int64    `db:"refunded_cents" json:"refunded_cents,omitempty"`
	RefundReason   *string   `db:"refund_reason" json:"refund_reason,omitempty"`
	PaymentDate    time.Time `db:"payment_date" json:"payment_date"`
}

type RecordPaymentRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Method      string `json:"method" binding:"required"`
}

type DebtResponse struct {
	SubscriptionID     int   `db:"subscription_id" json:"subscription_id"`
	PurchasePriceCents int64 `db:"purchase_price_cents" json:"purchase_price_cents"`
	TotalPaidCents     int64 `db:"total_paid_cents" json:"total_paid_cents"`
	DebtCents          int64 `db:"debt_cents" json:"debt_cents"`
}
