package catalog

import (
	"time"

	"studiopass/internal/api"
)

// AccessType decides how a subscription's entitlement is consumed.
// The stored strings are part of the persisted contract.
type AccessType string

const (
	AccessSessionBased AccessType = "SESSION_BASED"
	AccessTimeBased    AccessType = "TIME_BASED"
)

func (a AccessType) Valid() bool {
	switch a {
	case AccessSessionBased, AccessTimeBased:
		return true
	}
	return false
}

// BillingCycle maps to a fixed number of days per repeat unit. FIXED plans
// take a caller-supplied end date instead.
type BillingCycle string

const (
	CycleMonthly    BillingCycle = "MONTHLY"
	CycleQuarterly  BillingCycle = "QUARTERLY"
	CycleSemiAnnual BillingCycle = "SEMI_ANNUAL"
	CycleYearly     BillingCycle = "YEARLY"
	CycleWeekly     BillingCycle = "WEEKLY"
	CycleFixed      BillingCycle = "FIXED"
)

func (c BillingCycle) Valid() bool {
	if c == CycleFixed {
		return true
	}
	_, ok := c.Days()
	return ok
}

// Days returns the cycle length in days. ok is false for FIXED.
func (c BillingCycle) Days() (int, bool) {
	switch c {
	case CycleMonthly:
		return 28, true
	case CycleQuarterly:
		return 84, true
	case CycleSemiAnnual:
		return 168, true
	case CycleYearly:
		return 365, true
	case CycleWeekly:
		return 7, true
	}
	return 0, false
}

// PeriodEnd computes the subscription end date for this cycle starting at
// start, repeated repeatCount times. Only fixed-term plans may carry a zero
// repeat count; everything else needs at least one cycle.
func (c BillingCycle) PeriodEnd(start time.Time, repeatCount int) (time.Time, error) {
	days, ok := c.Days()
	if !ok {
		return time.Time{}, api.ErrInvalidInput
	}
	if repeatCount < 1 {
		return time.Time{}, api.ErrInvalidInput
	}
	return start.AddDate(0, 0, days*repeatCount), nil
}

type Plan struct {
	ID              int          `db:"id" json:"id"`
	Name            string       `db:"name" json:"name"`
	BillingCycle    BillingCycle `db:"billing_cycle" json:"billing_cycle"`
	RepeatCount     int          `db:"repeat_count" json:"repeat_count"`
	SessionsGranted int          `db:"sessions_granted" json:"sessions_granted"`
	AccessType      AccessType   `db:"access_type" json:"access_type"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

type Package struct {
	ID         int       `db:"id" json:"id"`
	PlanID     int       `db:"plan_id" json:"plan_id"`
	Name       string    `db:"name" json:"name"`
	PriceCents int64     `db:"price_cents" json:"price_cents"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type ClassTemplate struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BookingPermission is a pure existence fact: the package may book and check
// in against events of the template. Created once, never updated.
type BookingPermission struct {
	PackageID  int       `db:"package_id" json:"package_id"`
	TemplateID int       `db:"template_id" json:"template_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type CreatePlanRequest struct {
	Name            string `json:"name" binding:"required"`
	BillingCycle    string `json:"billing_cycle" binding:"required,billingcycle"`
	RepeatCount     int    `json:"repeat_count" binding:"min=0"`
	SessionsGranted int    `json:"sessions_granted" binding:"min=0"`
	AccessType      string `json:"access_type" binding:"required,accesstype"`
}

type CreatePackageRequest struct {
	PlanID     int    `json:"plan_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	PriceCents int64  `json:"price_cents" binding:"required,min=1"`
}

type CreatePermissionRequest struct {
	PackageID  int `json:"package_id" binding:"required"`
	TemplateID int `json:"template_id" binding:"required"`
}
