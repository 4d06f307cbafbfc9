package booking

import "context"

type Repository interface {
	Create(ctx context.Context, memberID, eventID, subscriptionID int) (*Booking, error)
	CreateWithCapacity(ctx context.Context, memberID, eventID, subscriptionID, capacity int) (*Booking, error)
	GetByID(ctx context.Context, id int) (*Booking, error)
	Gate(ctx context.Context, subscriptionID, eventID int) (*Gate, error)
	Cancel(ctx context.Context, id int) error
	MemberHasBookingForEvent(ctx context.Context, memberID, eventID int) (bool, error)
	GetMemberBookings(ctx context.Context, memberID int) ([]BookingWithDetails, error)
	GetBookingsByEvent(ctx context.Context, eventID int) ([]BookingWithDetails, error)
}
