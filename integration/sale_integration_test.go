package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"studiopass/internal/api"
	"studiopass/internal/catalog"
	"studiopass/internal/event"
	"studiopass/internal/ledger"
	"studiopass/internal/subscription"
)

func TestSellSubscription_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()

	cleanDatabase(t, db)

	ctx := context.Background()
	memberID := createTestMember(t, db, "buyer@test.com", "Buyer", "member")
	instructorID := createTestMember(t, db, "coach@test.com", "Coach", "staff")
	planID := createTestPlan(t, db, "Monthly 10", "MONTHLY", "SESSION_BASED", 10)
	packageID := createTestPackage(t, db, planID, "Pilates 10-pack", 100000)

	svc := subscription.NewService(subscription.NewRepository(db), catalog.NewRepository(db), time.UTC)

	override := int64(90000)
	startDate := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	resp, err := svc.Create(ctx, subscription.CreateSubscriptionRequest{
		MemberID:           memberID,
		PackageID:          packageID,
		StartDate:          startDate,
		PriceOverrideCents: &override,
		InitialPayment:     &subscription.InitialPayment{AmountCents: 90000, Method: "card"},
		Schedule: &subscription.ScheduleSpec{
			TemplateName: "Pilates",
			InstructorID: instructorID,
			DaysAndTimes: []event.DayTime{
				{Day: "monday", Time: "18:00"},
				{Day: "wednesday", Time: "10:00"},
			},
			RepeatWeeks: 4,
			Capacity:    12,
		},
	})
	require.NoError(t, err)

	require.Equal(t, int64(90000), resp.Subscription.PurchasePriceCents)
	require.Equal(t, subscription.StatusActive, resp.Subscription.Status)
	require.Equal(t, 0, resp.Subscription.UsedSessions)
	require.Equal(t, 8, resp.EventsCount)
	require.NotEmpty(t, resp.QRToken)

	subID := resp.Subscription.ID
	require.Equal(t, 8, countRows(t, db, "SELECT COUNT(*) FROM class_events WHERE subscription_id = $1", subID))
	require.Equal(t, 8, countRows(t, db, "SELECT COUNT(*) FROM bookings WHERE subscription_id = $1", subID))
	require.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM payments WHERE subscription_id = $1", subID))
	require.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM booking_permissions WHERE package_id = $1", packageID))

	// the payment covers the overridden price, so there is no debt
	debt, err := ledger.NewRepository(db).Debt(ctx, subID)
	require.NoError(t, err)
	require.Equal(t, int64(0), debt.DebtCents)
}

func TestDeleteSubscriptionCascade_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()

	cleanDatabase(t, db)

	ctx := context.Background()
	memberID := createTestMember(t, db, "leaver@test.com", "Leaver", "member")
	instructorID := createTestMember(t, db, "coach2@test.com", "Coach", "staff")
	planID := createTestPlan(t, db, "Monthly 10", "MONTHLY", "SESSION_BASED", 10)
	packageID := createTestPackage(t, db, planID, "Yoga 10-pack", 80000)

	svc := subscription.NewService(subscription.NewRepository(db), catalog.NewRepository(db), time.UTC)

	resp, err := svc.Create(ctx, subscription.CreateSubscriptionRequest{
		MemberID:       memberID,
		PackageID:      packageID,
		StartDate:      time.Now().Format("2006-01-02"),
		InitialPayment: &subscription.InitialPayment{AmountCents: 80000, Method: "cash"},
		Schedule: &subscription.ScheduleSpec{
			TemplateName: "Yoga",
			InstructorID: instructorID,
			DaysAndTimes: []event.DayTime{{Day: "friday", Time: "09:00"}},
			RepeatWeeks:  2,
			Capacity:     8,
		},
	})
	require.NoError(t, err)
	subID := resp.Subscription.ID

	require.NoError(t, svc.Delete(ctx, subID))

	for _, q := range []string{
		"SELECT COUNT(*) FROM session_checkins WHERE subscription_id = $1",
		"SELECT COUNT(*) FROM bookings WHERE subscription_id = $1",
		"SELECT COUNT(*) FROM class_events WHERE subscription_id = $1",
		"SELECT COUNT(*) FROM payments WHERE subscription_id = $1",
		"SELECT COUNT(*) FROM qr_codes WHERE subscription_id = $1",
		"SELECT COUNT(*) FROM subscriptions WHERE id = $1",
	} {
		require.Equal(t, 0, countRows(t, db, q, subID))
	}

	// deleting again reports not found
	err = svc.Delete(ctx, subID)
	require.ErrorIs(t, err, api.ErrNotFound)
}
