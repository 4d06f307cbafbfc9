package ledger

import "context"

type Repository interface {
	RecordPayment(ctx context.Context, subscriptionID int, amountCents int64, method string) (*Payment, error)
	TotalPaid(ctx context.Context, subscriptionID int) (int64, error)
	Debt(ctx context.Context, subscriptionID int) (*DebtResponse, error)
	ListBySubscription(ctx context.Context, subscriptionID int) ([]Payment, error)
}
