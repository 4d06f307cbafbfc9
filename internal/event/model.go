package event

import "time"

type ClassEvent struct {
	ID             int       `db:"id" json:"id"`
	TemplateID     int       `db:"template_id" json:"template_id"`
	InstructorID   int       `db:"instructor_id" json:"instructor_id"`
	SubscriptionID *int      `db:"subscription_id" json:"subscription_id,omitempty"`
	StartTime      time.Time `db:"start_time" json:"start_time"`
	EndTime        time.Time `db:"end_time" json:"end_time"`
	Capacity       int       `db:"capacity" json:"capacity"`
	IsCancelled    bool      `db:"is_cancelled" json:"is_cancelled"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type ClassEventWithDetails struct {
	ClassEvent
	TemplateName   string `db:"template_name" json:"template_name"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
}

// BookedContact identifies a member holding a confirmed booking on an event,
// with enough context to word a cancellation notice.
type BookedContact struct {
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	TemplateName string    `db:"template_name"`
	StartTime    time.Time `db:"start_time"`
}

// DayTime is one weekday/time pair of a recurring schedule spec,
// e.g. {"monday", "18:00"}.
type DayTime struct {
	Day  string `json:"day" binding:"required,weekday"`
	Time string `json:"time" binding:"required,clock"`
}

// Occurrence is a concrete dated expansion of a DayTime pair.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

type CreateEventRequest struct {
	TemplateID   int    `json:"template_id" binding:"required"`
	InstructorID int    `json:"instructor_id" binding:"required"`
	StartTime    string `json:"start_time" binding:"required"`
	EndTime      string `json:"end_time" binding:"required"`
	Capacity     int    `json:"capacity" binding:"required,min=1"`
}
