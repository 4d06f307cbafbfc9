package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"studiopass/internal/api"
	"studiopass/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

type MockBookingRepo struct{ mock.Mock }

func (m *MockBookingRepo) Create(ctx context.Context, memberID, eventID, subscriptionID int) (*Booking, error) {
	args := m.Called(ctx, memberID, eventID, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockBookingRepo) CreateWithCapacity(ctx context.Context, memberID, eventID, subscriptionID, capacity int) (*Booking, error) {
	args := m.Called(ctx, memberID, eventID, subscriptionID, capacity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id int) (*Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockBookingRepo) Gate(ctx context.Context, subscriptionID, eventID int) (*Gate, error) {
	args := m.Called(ctx, subscriptionID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Gate), args.Error(1)
}

func (m *MockBookingRepo) Cancel(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBookingRepo) MemberHasBookingForEvent(ctx context.Context, memberID, eventID int) (bool, error) {
	args := m.Called(ctx, memberID, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) GetMemberBookings(ctx context.Context, memberID int) ([]BookingWithDetails, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BookingWithDetails), args.Error(1)
}

func (m *MockBookingRepo) GetBookingsByEvent(ctx context.Context, eventID int) ([]BookingWithDetails, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BookingWithDetails), args.Error(1)
}

func openGate() *Gate {
	return &Gate{
		SubscriptionMemberID: 1,
		SubscriptionStatus:   "active",
		EventCancelled:       false,
		Capacity:             10,
		HasPermission:        true,
	}
}

func TestBook(t *testing.T) {
	repo := new(MockBookingRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("Gate", ctx, 3, 2).Return(openGate(), nil).Once()
	repo.On("CreateWithCapacity", ctx, 1, 2, 3, 10).
		Return(&Booking{ID: 10, MemberID: 1, EventID: 2, SubscriptionID: 3, Status: StatusConfirmed, CreatedAt: time.Now()}, nil).Once()

	b, err := svc.Book(ctx, 1, 3, 2)
	require.NoError(t, err)
	require.Equal(t, 10, b.ID)
	repo.AssertExpectations(t)
}

func TestBookGates(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Gate)
		wantErr error
	}{
		{
			name:    "foreign subscription looks missing",
			mutate:  func(g *Gate) { g.SubscriptionMemberID = 99 },
			wantErr: api.ErrNotFound,
		},
		{
			name:    "suspended subscription",
			mutate:  func(g *Gate) { g.SubscriptionStatus = "suspended" },
			wantErr: api.ErrInactiveSubscription,
		},
		{
			name:    "cancelled event",
			mutate:  func(g *Gate) { g.EventCancelled = true },
			wantErr: api.ErrEventCancelled,
		},
		{
			name:    "package not authorized for class",
			mutate:  func(g *Gate) { g.HasPermission = false },
			wantErr: api.ErrPermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockBookingRepo)
			svc := NewService(repo)
			ctx := context.Background()

			gate := openGate()
			tt.mutate(gate)
			repo.On("Gate", ctx, 3, 2).Return(gate, nil).Once()

			_, err := svc.Book(ctx, 1, 3, 2)
			require.ErrorIs(t, err, tt.wantErr)
			repo.AssertNotCalled(t, "CreateWithCapacity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestBookCapacitySurfaces(t *testing.T) {
	repo := new(MockBookingRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("Gate", ctx, 3, 2).Return(openGate(), nil).Once()
	repo.On("CreateWithCapacity", ctx, 1, 2, 3, 10).Return(nil, api.ErrCapacityFull).Once()

	_, err := svc.Book(ctx, 1, 3, 2)
	require.ErrorIs(t, err, api.ErrCapacityFull)
}

func TestCancelOwnBooking(t *testing.T) {
	repo := new(MockBookingRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, 10).Return(&Booking{ID: 10, MemberID: 1}, nil).Once()
	repo.On("Cancel", ctx, 10).Return(nil).Once()

	require.NoError(t, svc.Cancel(ctx, 1, 10, false))
	repo.AssertExpectations(t)
}

func TestCancelForeignBooking(t *testing.T) {
	repo := new(MockBookingRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, 10).Return(&Booking{ID: 10, MemberID: 2}, nil).Once()

	// a member cannot cancel someone else's booking, staff can
	require.ErrorIs(t, svc.Cancel(ctx, 1, 10, false), api.ErrNotFound)

	repo.On("GetByID", ctx, 10).Return(&Booking{ID: 10, MemberID: 2}, nil).Once()
	repo.On("Cancel", ctx, 10).Return(nil).Once()
	require.NoError(t, svc.Cancel(ctx, 1, 10, true))
}
