package booking

import (
	"context"

	"studiopass/internal/api"
	"studiopass/internal/logger"
)

type Service interface {
	Book(ctx context.Context, memberID, subscriptionID, eventID int) (*Booking, error)
	Cancel(ctx context.Context, memberID, bookingID int, isStaff bool) error
	ListMine(ctx context.Context, memberID int) ([]BookingWithDetails, error)
	ListByEvent(ctx context.Context, eventID int) ([]BookingWithDetails, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Book reserves a slot on a class event against one of the member's
// subscriptions. The slot itself is taken by a capacity-guarded insert, so
// the pre-checks here only produce the precise refusal reason.
func (s *service) Book(ctx context.Context, memberID, subscriptionID, eventID int) (*Booking, error) {
	gate, err := s.repo.Gate(ctx, subscriptionID, eventID)
	if err != nil {
		return nil, err
	}

	// A subscription id belonging to someone else is indistinguishable from
	// a missing one.
	if gate.SubscriptionMemberID != memberID {
		return nil, api.ErrNotFound
	}
	if gate.SubscriptionStatus != "active" {
		return nil, api.ErrInactiveSubscription
	}
	if gate.EventCancelled {
		return nil, api.ErrEventCancelled
	}
	if !gate.HasPermission {
		return nil, api.ErrPermissionDenied
	}

	b, err := s.repo.CreateWithCapacity(ctx, memberID, eventID, subscriptionID, gate.Capacity)
	if err != nil {
		return nil, err
	}

	logger.Infof("Booking created: member=%d event=%d booking=%d", memberID, eventID, b.ID)
	return b, nil
}

func (s *service) Cancel(ctx context.Context, memberID, bookingID int, isStaff bool) error {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return api.ErrNotFound
	}
	if !isStaff && b.MemberID != memberID {
		return api.ErrNotFound
	}

	return s.repo.Cancel(ctx, bookingID)
}

func (s *service) ListMine(ctx context.Context, memberID int) ([]BookingWithDetails, error) {
	return s.repo.GetMemberBookings(ctx, memberID)
}

func (s *service) ListByEvent(ctx context.Context, eventID int) ([]BookingWithDetails, error) {
	return s.repo.GetBookingsByEvent(ctx, eventID)
}
