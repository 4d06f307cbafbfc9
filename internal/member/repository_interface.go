package member

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, name, email, passwordHash, role string) (*Member, error)
	FindByEmail(ctx context.Context, email string) (*Member, error)
	FindByID(ctx context.Context, id int) (*Member, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	TouchActivity(ctx context.Context, memberID int) error
	DeactivateInactiveSince(ctx context.Context, cutoff time.Time) (int64, error)
}
