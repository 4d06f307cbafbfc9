package event

import "context"

type Repository interface {
	GetByID(ctx context.Context, id int) (*ClassEvent, error)
	Create(ctx context.Context, ev ClassEvent) (*ClassEvent, error)
	Cancel(ctx context.Context, id int) error
	BookedContacts(ctx context.Context, eventID int) ([]BookedContact, error)
	ListUpcoming(ctx context.Context, templateID int) ([]ClassEventWithDetails, error)
}
