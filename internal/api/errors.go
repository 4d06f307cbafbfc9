package api

import "errors"

// Business-rule failures surfaced by the core. Handlers translate these to
// HTTP statuses with errors.Is; nothing in the core retries them.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidToken         = errors.New("invalid or inactive QR token")
	ErrInactiveSubscription = errors.New("subscription is not active")
	ErrExpired              = errors.New("subscription has expired")
	ErrNoSessionsRemaining  = errors.New("no sessions remaining")
	ErrEventCancelled       = errors.New("class event is cancelled")
	ErrCapacityFull         = errors.New("class event is at full capacity")
	ErrDuplicateCheckIn     = errors.New("already checked in for this event")
	ErrWrongAccessType      = errors.New("operation not allowed for this access type")
	ErrPermissionDenied     = errors.New("package is not authorized for this class")
	ErrInvalidInput         = errors.New("invalid input")
	ErrDataIntegrity        = errors.New("data integrity violation")
)
