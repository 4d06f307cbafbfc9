package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studiopass/internal/api"
	"studiopass/internal/catalog"
	"studiopass/internal/event"
	"studiopass/internal/metrics"
)

// tokenRetryLimit bounds how many fresh tokens a sale will try when the
// database reports a collision.
const tokenRetryLimit = 5

const dateLayout = "2006-01-02"

type Service interface {
	Create(ctx context.Context, req CreateSubscriptionRequest) (*CreateSubscriptionResponse, error)
	GetByID(ctx context.Context, id int) (*Subscription, error)
	ListByMember(ctx context.Context, memberID int) ([]Subscription, error)
	Delete(ctx context.Context, id int) error
	GetQR(ctx context.Context, subscriptionID int) (*QRCode, error)
	RotateQR(ctx context.Context, subscriptionID int) (*QRCode, error)
}

type service struct {
	repo        Repository
	catalogRepo catalog.Repository
	loc         *time.Location
	now         func() time.Time
}

func NewService(repo Repository, catalogRepo catalog.Repository, loc *time.Location) Service {
	return &service{
		repo:        repo,
		catalogRepo: catalogRepo,
		loc:         loc,
		now:         time.Now,
	}
}

// Create sells a subscription: resolves the package and plan, computes the
// expiry and the enforced status, validates the price override, generates
// the QR token and (optionally) the recurring schedule, and persists it all
// in one transaction.
func (s *service) Create(ctx context.Context, req CreateSubscriptionRequest) (*CreateSubscriptionResponse, error) {
	pkg, err := s.catalogRepo.GetPackageByID(ctx, req.PackageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: package %d", api.ErrNotFound, req.PackageID)
		}
		return nil, err
	}

	plan, err := s.catalogRepo.GetPlanByID(ctx, pkg.PlanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: plan %d", api.ErrNotFound, pkg.PlanID)
		}
		return nil, err
	}

	contact, err := s.repo.GetMemberContact(ctx, req.MemberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: member %d", api.ErrNotFound, req.MemberID)
		}
		return nil, err
	}

	startDate, err := time.ParseInLocation(dateLayout, req.StartDate, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed start date %q", api.ErrInvalidInput, req.StartDate)
	}

	endDate, err := s.resolveEndDate(plan, startDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	// Enforced status: whatever the caller asked for, a subscription whose
	// computed expiry already passed is stored expired.
	status := StatusActive
	if endDate.Before(s.now().In(s.loc)) {
		status = StatusExpired
	}

	price := pkg.PriceCents
	if req.PriceOverrideCents != nil {
		override := *req.PriceOverrideCents
		if override <= 0 {
			return nil, fmt.Errorf("%w: price override must be positive", api.ErrInvalidInput)
		}
		if override > 2*pkg.PriceCents {
			return nil, fmt.Errorf("%w: price override exceeds twice the package price", api.ErrInvalidInput)
		}
		price = override
	}

	sale := SaleRecord{
		Subscription: Subscription{
			MemberID:           req.MemberID,
			PackageID:          pkg.ID,
			PurchasePriceCents: price,
			StartDate:          startDate,
			EndDate:            endDate,
			Status:             status,
			AccessType:         plan.AccessType,
		},
		InitialPayment: req.InitialPayment,
	}

	if req.Schedule != nil {
		occurrences, err := event.ExpandSchedule(startDate, req.Schedule.DaysAndTimes, req.Schedule.RepeatWeeks, s.loc)
		if err != nil {
			return nil, err
		}

		sale.Schedule = &PersistSchedule{
			TemplateName: req.Schedule.TemplateName,
			InstructorID: req.Schedule.InstructorID,
			Capacity:     req.Schedule.Capacity,
			Occurrences:  occurrences,
		}
	}

	var sub *Subscription
	var eventsCount int
	for attempt := 0; attempt < tokenRetryLimit; attempt++ {
		sale.Token, err = GenerateToken()
		if err != nil {
			return nil, err
		}

		sub, eventsCount, err = s.repo.CreateSale(ctx, sale)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrTokenCollision) {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordSubscription(string(sub.AccessType))
	if eventsCount > 0 {
		metrics.RecordGeneratedEvents(eventsCount)
	}

	return &CreateSubscriptionResponse{
		Subscription: *sub,
		QRToken:      sale.Token,
		EventsCount:  eventsCount,
		MemberName:   contact.Name,
		MemberEmail:  contact.Email,
		PackageName:  pkg.Name,
	}, nil
}

func (s *service) resolveEndDate(plan *catalog.Plan, startDate time.Time, rawEnd string) (time.Time, error) {
	if plan.BillingCycle == catalog.CycleFixed {
		if rawEnd == "" {
			return time.Time{}, fmt.Errorf("%w: fixed-cycle plans require an end date", api.ErrInvalidInput)
		}
		endDate, err := time.ParseInLocation(dateLayout, rawEnd, s.loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: malformed end date %q", api.ErrInvalidInput, rawEnd)
		}
		if !endDate.After(startDate) {
			return time.Time{}, fmt.Errorf("%w: end date must be after start date", api.ErrInvalidInput)
		}
		return endDate, nil
	}

	endDate, err := plan.BillingCycle.PeriodEnd(startDate, plan.RepeatCount)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: cycle %q with repeat count %d", api.ErrInvalidInput, plan.BillingCycle, plan.RepeatCount)
	}
	return endDate, nil
}

func (s *service) GetByID(ctx context.Context, id int) (*Subscription, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: subscription %d", api.ErrNotFound, id)
		}
		return nil, err
	}
	return sub, nil
}

func (s *service) ListByMember(ctx context.Context, memberID int) ([]Subscription, error) {
	return s.repo.ListByMember(ctx, memberID)
}

func (s *service) Delete(ctx context.Context, id int) error {
	err := s.repo.DeleteCascade(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: subscription %d", api.ErrNotFound, id)
		}
		return err
	}
	return nil
}

func (s *service) GetQR(ctx context.Context, subscriptionID int) (*QRCode, error) {
	qr, err := s.repo.GetQRBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: qr code for subscription %d", api.ErrNotFound, subscriptionID)
		}
		return nil, err
	}
	return qr, nil
}

func (s *service) RotateQR(ctx context.Context, subscriptionID int) (*QRCode, error) {
	var qr *QRCode
	var err error
	for attempt := 0; attempt < tokenRetryLimit; attempt++ {
		var token string
		token, err = GenerateToken()
		if err != nil {
			return nil, err
		}

		qr, err = s.repo.RotateQR(ctx, subscriptionID, token)
		if err == nil {
			return qr, nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: qr code for subscription %d", api.ErrNotFound, subscriptionID)
		}
		if !errors.Is(err, ErrTokenCollision) {
			return nil, err
		}
	}
	return nil, err
}
