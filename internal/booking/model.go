package booking

import "time"

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

type Booking struct {
	ID             int       `db:"id" json:"id"`
	MemberID       int       `db:"member_id" json:"member_id"`
	EventID        int       `db:"event_id" json:"event_id"`
	SubscriptionID int       `db:"subscription_id" json:"subscription_id"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Gate carries everything needed to decide whether a subscription may book
// an event, fetched in one query.
type Gate struct {
	SubscriptionMemberID int    `db:"subscription_member_id"`
	SubscriptionStatus   string `db:"subscription_status"`
	EventCancelled       bool   `db:"is_cancelled"`
	Capacity             int    `db:"capacity"`
	HasPermission        bool   `db:"has_permission"`
}

type BookingWithDetails struct {
	Booking
	EventStart   time.Time `db:"event_start" json:"event_start"`
	EventEnd     time.Time `db:"event_end" json:"event_end"`
	TemplateName string    `db:"template_name" json:"template_name"`
	MemberName   string    `db:"member_name" json:"member_name"`
}
