package subscription

import (
	"context"
	"time"

	"studiopass/internal/logger"

	"github.com/robfig/cron/v3"
)

// ReminderNotifier queues the expiry-reminder email.
type ReminderNotifier interface {
	SendExpiryReminder(ctx context.Context, email, name, packageName string, endDate time.Time) error
}

// Reminder mails members whose active subscription runs out within the
// configured horizon. Injected from main and never started in tests.
type Reminder struct {
	repo      Repository
	notifier  ReminderNotifier
	cron      *cron.Cron
	daysAhead int
	schedule  string
}

func NewReminder(repo Repository, notifier ReminderNotifier, schedule string, daysAhead int) *Reminder {
	return &Reminder{
		repo:     repo,
		notifier: notifier,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		daysAhead: daysAhead,
		schedule:  schedule,
	}
}

func (r *Reminder) Start() error {
	_, err := r.cron.AddFunc(r.schedule, r.RunOnce)
	if err != nil {
		return err
	}

	r.cron.Start()
	logger.Infof("Expiry reminder scheduled (%s, %d days ahead)", r.schedule, r.daysAhead)
	return nil
}

func (r *Reminder) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// RunOnce executes a single reminder pass. Exposed so it can be triggered
// directly without the cron schedule.
func (r *Reminder) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := time.Now()
	expiring, err := r.repo.ExpiringBetween(ctx, now, now.AddDate(0, 0, r.daysAhead))
	if err != nil {
		logger.Errorf("Expiry reminder sweep failed: %v", err)
		return
	}

	for _, sub := range expiring {
		if err := r.notifier.SendExpiryReminder(ctx, sub.MemberEmail, sub.MemberName, sub.PackageName, sub.EndDate); err != nil {
			logger.Errorf("Failed to queue expiry reminder for subscription %d: %v", sub.SubscriptionID, err)
		}
	}

	if len(expiring) > 0 {
		logger.Infof("Queued %d expiry reminders", len(expiring))
	}
}
