package model

import (
	"fmt"
	"time"

	"cityguide-billing/internal/domain"
)

// Subscription binds a listing to a billing plan and tracks its next due date.
type Subscription struct {
	ID                string
	UserID            string
	PlaceID           string
	PlanID            string
	NextBillingDate   time.Time
	IsActive          bool
	CancelAtPeriodEnd bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (s *Subscription) IsZero() bool { return s == nil || s.ID == "" }

// IsDue reports whether the subscription should be billed at now.
func (s *Subscription) IsDue(now time.Time) bool {
	return s.IsActive && !s.NextBillingDate.After(now)
}

// SubscriptionUpdate is a partial update of the billing fields. Nil fields are left untouched.
type SubscriptionUpdate struct {
	NextBillingDate   *time.Time
	IsActive          *bool
	CancelAtPeriodEnd *bool
}

func (u SubscriptionUpdate) IsEmpty() bool {
	return u.NextBillingDate == nil && u.IsActive == nil && u.CancelAtPeriodEnd == nil
}

func (u SubscriptionUpdate) Apply(s Subscription) Subscription {
	if u.NextBillingDate != nil {
		s.NextBillingDate = *u.NextBillingDate
	}
	if u.IsActive != nil {
		s.IsActive = *u.IsActive
	}
	if u.CancelAtPeriodEnd != nil {
		s.CancelAtPeriodEnd = *u.CancelAtPeriodEnd
	}
	return s
}

// DueSubscriptionView is one row of the due-subscription selection: the subscription
// joined with its plan and a snapshot of its listing.
type DueSubscriptionView struct {
	Subscription Subscription
	Plan         BillingPlan
	Listing      Listing
}

// Validate rejects rows whose joined plan or listing is missing.
func (v *DueSubscriptionView) Validate() error {
	if v == nil || v.Subscription.ID == "" {
		return domain.ErrInvalidArgument
	}
	if v.Listing.ID == "" {
		return fmt.Errorf("place %s: %w", v.Subscription.PlaceID, domain.ErrListingNotFound)
	}
	if v.Plan.ID == "" {
		return fmt.Errorf("plan %s: %w", v.Subscription.PlanID, domain.ErrPlanNotFound)
	}
	if v.Plan.Price < 0 {
		return fmt.Errorf("plan %s has negative price: %w", v.Plan.ID, domain.ErrInvalidArgument)
	}
	return nil
}

// SubscriptionStatus is used for reporting only; the store keeps is_active as a boolean.
type SubscriptionStatus string

const (
	SubscriptionStatusActive        SubscriptionStatus = "active"
	SubscriptionStatusPendingCancel SubscriptionStatus = "pending_cancel"
	SubscriptionStatusInactive      SubscriptionStatus = "inactive"
)
