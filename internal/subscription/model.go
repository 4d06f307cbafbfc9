package subscription

import (
	"time"

	"studiopass/internal/catalog"
	"studiopass/internal/event"
)

// Status values are part of the persisted contract.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
)

// UnlimitedSessionsSentinel is reported as "remaining" for SESSION_BASED
// plans that grant zero sessions. Those plans behave as unlimited passes;
// the sentinel keeps the field a bounded integer for clients.
// TODO: product to confirm zero-granted plans are a deliberate unlimited
// tier and not a misconfiguration.
const UnlimitedSessionsSentinel = 999999

// RemainingSessions computes what is left on a session-based entitlement,
// clamped at zero. Zero or negative granted counts mean unlimited.
func RemainingSessions(granted, used int) int {
	if granted <= 0 {
		return UnlimitedSessionsSentinel
	}
	remaining := granted - used
	if remaining < 0 {
		return 0
	}
	return remaining
}

type Subscription struct {
	ID                 int                `db:"id" json:"id"`
	MemberID           int                `db:"member_id" json:"member_id"`
	PackageID          int                `db:"package_id" json:"package_id"`
	PurchasePriceCents int64              `db:"purchase_price_cents" json:"purchase_price_cents"`
	StartDate          time.Time          `db:"start_date" json:"start_date"`
	EndDate            time.Time          `db:"end_date" json:"end_date"`
	Status             Status             `db:"status" json:"status"`
	AccessType         catalog.AccessType `db:"access_type" json:"access_type"`
	UsedSessions       int                `db:"used_sessions" json:"used_sessions"`
	AttendanceCount    int                `db:"attendance_count" json:"attendance_count"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

type QRCode struct {
	ID             int       `db:"id" json:"id"`
	SubscriptionID int       `db:"subscription_id" json:"subscription_id"`
	Token          string    `db:"token" json:"token"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type InitialPayment struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Method      string `json:"method" binding:"required"`
}

// ScheduleSpec describes the recurring class schedule a sale may generate.
// TemplateName is the service offering being sold; the matching class
// template and booking permission are created on first use.
type ScheduleSpec struct {
	TemplateName string          `json:"template_name" binding:"required"`
	InstructorID int             `json:"instructor_id" binding:"required"`
	DaysAndTimes []event.DayTime `json:"days_and_times" binding:"required,min=1,dive"`
	RepeatWeeks  int             `json:"repeat_weeks" binding:"required,min=1"`
	Capacity     int             `json:"capacity" binding:"required,min=1"`
}

type CreateSubscriptionRequest struct {
	MemberID           int             `json:"member_id" binding:"required"`
	PackageID          int             `json:"package_id" binding:"required"`
	StartDate          string          `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate            string          `json:"end_date,omitempty"`            // required for FIXED plans
	PriceOverrideCents *int64          `json:"price_override_cents,omitempty"`
	InitialPayment     *InitialPayment `json:"initial_payment,omitempty"`
	Schedule           *ScheduleSpec   `json:"schedule,omitempty"`
	// Status is accepted for compatibility but ignored: the stored status is
	// always computed from the dates.
	Status string `json:"status,omitempty"`
}

type CreateSubscriptionResponse struct {
	Subscription Subscription `json:"subscription"`
	QRToken      string       `json:"qr_token"`
	EventsCount  int          `json:"events_count"`
	MemberName   string       `json:"member_name"`
	MemberEmail  string       `json:"-"`
	PackageName  string       `json:"package_name"`
}

// MemberContact is the slice of the member row needed for receipts.
type MemberContact struct {
	Name  string `db:"name"`
	Email string `db:"email"`
}

// ExpiringSubscription is one row of the expiry-reminder sweep.
type ExpiringSubscription struct {
	SubscriptionID int       `db:"subscription_id"`
	MemberName     string    `db:"member_name"`
	MemberEmail    string    `db:"member_email"`
	PackageName    string    `db:"package_name"`
	EndDate        time.Time `db:"end_date"`
}

type QRCodeResponse struct {
	SubscriptionID int    `json:"subscription_id"`
	Token          string `json:"token"`
	IsActive       bool   `json:"is_active"`
}

// SaleRecord carries everything the sale transaction persists.
type SaleRecord struct {
	Subscription   Subscription
	Token          string
	InitialPayment *InitialPayment
	Schedule       *PersistSchedule
}

type PersistSchedule struct {
	TemplateName string
	InstructorID int
	Capacity     int
	Occurrences  []event.Occurrence
}
