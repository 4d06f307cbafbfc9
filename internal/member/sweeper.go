package member

import (
	"context"
	"time"

	"studiopass/internal/logger"
	"studiopass/internal/metrics"

	"github.com/robfig/cron/v3"
)

// Sweeper deactivates members whose last activity is older than the cutoff.
// It is injected from main and never started in tests.
type Sweeper struct {
	repo         Repository
	cron         *cron.Cron
	inactiveDays int
	schedule     string
}

func NewSweeper(repo Repository, schedule string, inactiveDays int) *Sweeper {
	return &Sweeper{
		repo: repo,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		inactiveDays: inactiveDays,
		schedule:     schedule,
	}
}

func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.RunOnce)
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Infof("Member deactivation sweep scheduled (%s, cutoff %d days)", s.schedule, s.inactiveDays)
	return nil
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RunOnce executes a single sweep pass. Exposed so it can be triggered
// directly without the cron schedule.
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.inactiveDays)
	n, err := s.repo.DeactivateInactiveSince(ctx, cutoff)
	if err != nil {
		logger.Errorf("Member deactivation sweep failed: %v", err)
		return
	}

	if n > 0 {
		metrics.MembersDeactivatedTotal.Add(float64(n))
		logger.Infof("Deactivated %d inactive members", n)
	}
}
