package subscription

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id int) (*Subscription, error)
	GetMemberContact(ctx context.Context, memberID int) (*MemberContact, error)
	ExpiringBetween(ctx context.Context, from, to time.Time) ([]ExpiringSubscription, error)
	ListByMember(ctx context.Context, memberID int) ([]Subscription, error)
	CreateSale(ctx context.Context, sale SaleRecord) (*Subscription, int, error)
	DeleteCascade(ctx context.Context, id int) error
	GetQRBySubscriptionID(ctx context.Context, subscriptionID int) (*QRCode, error)
	RotateQR(ctx context.Context, subscriptionID int, newToken string) (*QRCode, error)
}
