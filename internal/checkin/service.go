package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studiopass/internal/api"
	"studiopass/internal/catalog"
	"studiopass/internal/metrics"
	"studiopass/internal/subscription"
)

// Scan-result reasons. The scan endpoint is advisory, so gate failures come
// back as an invalid result instead of an error.
const (
	ReasonInvalidToken         = "invalid_token"
	ReasonInactiveSubscription = "inactive_subscription"
	ReasonExpired              = "expired"
	ReasonNoSessionsRemaining  = "no_sessions_remaining"
)

type Service interface {
	Scan(ctx context.Context, token string) (*ScanResult, error)
	CheckIn(ctx context.Context, token string, eventID *int, verifiedBy *int) (*CheckInResult, error)
	TimeBasedCheckIn(ctx context.Context, token string, verifiedBy *int) (*CheckInResult, error)
	Reverse(ctx context.Context, checkInID int) error
}

type service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

func NewService(repo Repository, loc *time.Location) Service {
	return &service{
		repo: repo,
		loc:  loc,
		now:  time.Now,
	}
}

// Scan runs the read-only gates against a token and, when they all pass,
// lists the events the holder could check into right now. Nothing is
// mutated either way.
func (s *service) Scan(ctx context.Context, token string) (*ScanResult, error) {
	tc, err := s.repo.GetTokenContext(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.invalidScan(ReasonInvalidToken, "Unknown QR code"), nil
		}
		return nil, err
	}

	now := s.now().In(s.loc)

	if reason, msg := s.gateReason(tc, now); reason != "" {
		return s.invalidScan(reason, msg), nil
	}

	events, err := s.repo.EligibleEvents(ctx, tc.PackageID, now.Add(-ScanWindowBefore), now.Add(ScanWindowAfter))
	if err != nil {
		return nil, err
	}

	metrics.RecordScan("valid")
	return &ScanResult{
		Valid:             true,
		Message:           "Welcome, " + tc.MemberName,
		MemberName:        tc.MemberName,
		PackageName:       tc.PackageName,
		AccessType:        tc.AccessType,
		SessionsRemaining: subscription.RemainingSessions(tc.SessionsGranted, tc.UsedSessions),
		AttendanceCount:   tc.AttendanceCount,
		EndDate:           tc.EndDate.In(s.loc).Format("2006-01-02"),
		EligibleEvents:    events,
	}, nil
}

// gateReason evaluates gates one through three and returns the first
// failure, or empty strings when the token may proceed.
func (s *service) gateReason(tc *TokenContext, now time.Time) (reason, message string) {
	if !tc.QRActive {
		return ReasonInvalidToken, "QR code is no longer active"
	}
	if tc.EndDate.Before(now) {
		return ReasonExpired, "Subscription expired on " + tc.EndDate.In(s.loc).Format("2006-01-02")
	}
	if tc.Status != string(subscription.StatusActive) {
		return ReasonInactiveSubscription, "Subscription is " + tc.Status
	}
	if tc.AccessType == catalog.AccessSessionBased &&
		tc.SessionsGranted > 0 &&
		tc.SessionsGranted-tc.UsedSessions <= 0 {
		return ReasonNoSessionsRemaining, "All sessions have been used"
	}
	return "", ""
}

func (s *service) invalidScan(reason, message string) *ScanResult {
	metrics.RecordScan(reason)
	return &ScanResult{Valid: false, Reason: reason, Message: message}
}

// CheckIn runs the full gate sequence and commits. The first failing gate
// terminates the attempt; capacity and duplicate prevention are enforced
// inside the commit transaction itself so racing requests cannot both pass.
func (s *service) CheckIn(ctx context.Context, token string, eventID *int, verifiedBy *int) (*CheckInResult, error) {
	tc, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	params := CommitParams{
		SubscriptionID:  tc.SubscriptionID,
		MemberID:        tc.MemberID,
		EventID:         eventID,
		AccessType:      tc.AccessType,
		SessionsGranted: tc.SessionsGranted,
		VerifiedBy:      verifiedBy,
	}

	if eventID != nil {
		gate, err := s.repo.GetEventGate(ctx, *eventID, tc.PackageID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.recordFailure(tc, "event_not_found")
				return nil, fmt.Errorf("%w: event %d", api.ErrNotFound, *eventID)
			}
			return nil, err
		}
		if gate.IsCancelled {
			s.recordFailure(tc, "event_cancelled")
			return nil, fmt.Errorf("%w: event %d", api.ErrEventCancelled, *eventID)
		}
		if !gate.HasPermission {
			s.recordFailure(tc, "permission_denied")
			return nil, fmt.Errorf("%w: package %d, event %d", api.ErrPermissionDenied, tc.PackageID, *eventID)
		}
		params.Capacity = gate.Capacity
	}

	return s.commit(ctx, tc, params)
}

// TimeBasedCheckIn is the event-less shortcut for TIME_BASED passes.
func (s *service) TimeBasedCheckIn(ctx context.Context, token string, verifiedBy *int) (*CheckInResult, error) {
	tc, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if tc.AccessType != catalog.AccessTimeBased {
		s.recordFailure(tc, "wrong_access_type")
		return nil, fmt.Errorf("%w: subscription %d is %s", api.ErrWrongAccessType, tc.SubscriptionID, tc.AccessType)
	}

	return s.commit(ctx, tc, CommitParams{
		SubscriptionID: tc.SubscriptionID,
		MemberID:       tc.MemberID,
		AccessType:     tc.AccessType,
		VerifiedBy:     verifiedBy,
	})
}

// resolveToken applies gates one through three as hard errors.
func (s *service) resolveToken(ctx context.Context, token string) (*TokenContext, error) {
	tc, err := s.repo.GetTokenContext(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			metrics.RecordCheckIn("invalid_token", "unknown")
			return nil, api.ErrInvalidToken
		}
		return nil, err
	}

	reason, _ := s.gateReason(tc, s.now().In(s.loc))
	switch reason {
	case "":
		return tc, nil
	case ReasonInvalidToken:
		s.recordFailure(tc, reason)
		return nil, api.ErrInvalidToken
	case ReasonExpired:
		s.recordFailure(tc, reason)
		return nil, fmt.Errorf("%w: on %s", api.ErrExpired, tc.EndDate.In(s.loc).Format("2006-01-02"))
	case ReasonInactiveSubscription:
		s.recordFailure(tc, reason)
		return nil, fmt.Errorf("%w: status %s", api.ErrInactiveSubscription, tc.Status)
	default:
		s.recordFailure(tc, reason)
		return nil, api.ErrNoSessionsRemaining
	}
}

func (s *service) commit(ctx context.Context, tc *TokenContext, params CommitParams) (*CheckInResult, error) {
	result, err := s.repo.Commit(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrCapacityFull):
			s.recordFailure(tc, "capacity_full")
		case errors.Is(err, api.ErrDuplicateCheckIn):
			s.recordFailure(tc, "duplicate")
		case errors.Is(err, api.ErrNoSessionsRemaining):
			s.recordFailure(tc, ReasonNoSessionsRemaining)
		}
		return nil, err
	}

	metrics.RecordCheckIn("success", string(tc.AccessType))
	return &CheckInResult{
		CheckInID:         result.CheckIn.ID,
		MemberName:        tc.MemberName,
		AccessType:        tc.AccessType,
		SessionsRemaining: subscription.RemainingSessions(tc.SessionsGranted, result.UsedSessions),
		AttendanceCount:   result.AttendanceCount,
		CheckedInAt:       result.CheckIn.CheckedInAt.In(s.loc).Format(TimestampLayout),
		Message:           "Checked in: " + tc.MemberName,
	}, nil
}

func (s *service) recordFailure(tc *TokenContext, reason string) {
	metrics.RecordCheckIn(reason, string(tc.AccessType))
}

// Reverse undoes a check-in: the repository deletes the row and restores
// the counter in one transaction.
func (s *service) Reverse(ctx context.Context, checkInID int) error {
	err := s.repo.Reverse(ctx, checkInID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: check-in %d", api.ErrNotFound, checkInID)
		}
		return err
	}

	metrics.RecordCheckInReversal()
	return nil
}
