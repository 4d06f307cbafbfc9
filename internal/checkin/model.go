package checkin

import (
	"time"

	"studiopass/internal/catalog"
)

// Eligible-event discovery window around the scan moment.
const (
	ScanWindowBefore = 30 * time.Minute
	ScanWindowAfter  = 60 * time.Minute
)

// TimestampLayout is how check-in times are rendered for the front desk,
// always in the business timezone.
const TimestampLayout = "02.01.2006 15:04"

type SessionCheckIn struct {
	ID             int       `db:"id" json:"id"`
	SubscriptionID int       `db:"subscription_id" json:"subscription_id"`
	MemberID       int       `db:"member_id" json:"member_id"`
	EventID        *int      `db:"event_id" json:"event_id,omitempty"`
	BookingID      *int      `db:"booking_id" json:"booking_id,omitempty"`
	VerifiedBy     *int      `db:"verified_by" json:"verified_by,omitempty"`
	CheckedInAt    time.Time `db:"checked_in_at" json:"checked_in_at"`
}

// TokenContext is everything the authorization gates need about a scanned
// token, resolved in a single query.
type TokenContext struct {
	QRCodeID        int                `db:"qr_code_id"`
	QRActive        bool               `db:"qr_active"`
	SubscriptionID  int                `db:"subscription_id"`
	MemberID        int                `db:"member_id"`
	MemberName      string             `db:"member_name"`
	PackageID       int                `db:"package_id"`
	PackageName     string             `db:"package_name"`
	AccessType      catalog.AccessType `db:"access_type"`
	SessionsGranted int                `db:"sessions_granted"`
	UsedSessions    int                `db:"used_sessions"`
	AttendanceCount int                `db:"attendance_count"`
	Status          string             `db:"status"`
	StartDate       time.Time          `db:"start_date"`
	EndDate         time.Time          `db:"end_date"`
}

// EventGate is the per-event slice of the gate inputs: existence is the
// query succeeding, the rest feed the cancelled and permission gates.
type EventGate struct {
	EventID       int  `db:"event_id"`
	TemplateID    int  `db:"template_id"`
	Capacity      int  `db:"capacity"`
	IsCancelled   bool `db:"is_cancelled"`
	HasPermission bool `db:"has_permission"`
}

type EligibleEvent struct {
	EventID        int       `db:"event_id" json:"event_id"`
	TemplateName   string    `db:"template_name" json:"template_name"`
	InstructorName string    `db:"instructor_name" json:"instructor_name"`
	StartTime      time.Time `db:"start_time" json:"start_time"`
	EndTime        time.Time `db:"end_time" json:"end_time"`
	Capacity       int       `db:"capacity" json:"capacity"`
	CheckedIn      int       `db:"checked_in" json:"checked_in"`
}

// CommitParams carries the already-gated facts into the commit transaction.
// Capacity and duplicate prevention are still enforced inside the
// transaction itself; the params only tell it what to enforce.
type CommitParams struct {
	SubscriptionID  int
	MemberID        int
	EventID         *int
	Capacity        int
	AccessType      catalog.AccessType
	SessionsGranted int
	VerifiedBy      *int
}

// CommitResult returns the inserted row together with the counter values
// after the increment, read in the same transaction.
type CommitResult struct {
	CheckIn         SessionCheckIn
	UsedSessions    int
	AttendanceCount int
}

type ScanRequest struct {
	Token string `json:"token" binding:"required"`
}

type CheckInRequest struct {
	Token   string `json:"token" binding:"required"`
	EventID *int   `json:"event_id,omitempty"`
}

type ScanResult struct {
	Valid             bool               `json:"valid"`
	Reason            string             `json:"reason,omitempty"`
	Message           string             `json:"message"`
	MemberName        string             `json:"member_name,omitempty"`
	PackageName       string             `json:"package_name,omitempty"`
	AccessType        catalog.AccessType `json:"access_type,omitempty"`
	SessionsRemaining int                `json:"sessions_remaining"`
	AttendanceCount   int                `json:"attendance_count"`
	EndDate           string             `json:"end_date,omitempty"`
	EligibleEvents    []EligibleEvent    `json:"eligible_events,omitempty"`
}

type CheckInResult struct {
	CheckInID         int                `json:"check_in_id"`
	MemberName        string             `json:"member_name"`
	AccessType        catalog.AccessType `json:"access_type"`
	SessionsRemaining int                `json:"sessions_remaining"`
	AttendanceCount   int                `json:"attendance_count"`
	CheckedInAt       string             `json:"checked_in_at"`
	Message           string             `json:"message"`
}
