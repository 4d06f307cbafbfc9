package checkin

import (
	"context"
	"time"
)

type Repository interface {
	GetTokenContext(ctx context.Context, token string) (*TokenContext, error)
	GetEventGate(ctx context.Context, eventID, packageID int) (*EventGate, error)
	EligibleEvents(ctx context.Context, packageID int, from, to time.Time) ([]EligibleEvent, error)
	Commit(ctx context.Context, params CommitParams) (*CommitResult, error)
	Reverse(ctx context.Context, checkInID int) error
}
