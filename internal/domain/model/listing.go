package model

import "time"

// Listing is a place record owned by a business account.
type Listing struct {
	ID               string
	OwnerID          string
	Name             string
	IsPremium        bool
	PremiumExpiresAt *time.Time
	IsHidden         bool
	UpdatedAt        time.Time
}

func (l *Listing) IsZero() bool { return l == nil || l.ID == "" }

// ListingFlagsUpdate is a partial update of the billing-driven listing flags.
// Nil fields are left untouched. ClearPremiumExpiry writes NULL and wins over PremiumExpiresAt.
type ListingFlagsUpdate struct {
	IsPremium          *bool
	IsHidden           *bool
	PremiumExpiresAt   *time.Time
	ClearPremiumExpiry bool
}

func (u ListingFlagsUpdate) IsEmpty() bool {
	return u.IsPremium == nil && u.IsHidden == nil && u.PremiumExpiresAt == nil && !u.ClearPremiumExpiry
}

// Apply returns a copy of l with the update applied.
func (u ListingFlagsUpdate) Apply(l Listing) Listing {
	if u.IsPremium != nil {
		l.IsPremium = *u.IsPremium
	}
	if u.IsHidden != nil {
		l.IsHidden = *u.IsHidden
	}
	switch {
	case u.ClearPremiumExpiry:
		l.PremiumExpiresAt = nil
	case u.PremiumExpiresAt != nil:
		t := *u.PremiumExpiresAt
		l.PremiumExpiresAt = &t
	}
	return l
}

// SweepExpiredPremium retires a premium flag whose paid period has elapsed.
// It reports false when there is nothing to change, so repeated calls are no-ops.
func SweepExpiredPremium(l Listing, now time.Time) (ListingFlagsUpdate, bool) {
	if !l.IsPremium || l.PremiumExpiresAt == nil || l.PremiumExpiresAt.After(now) {
		return ListingFlagsUpdate{}, false
	}
	return ListingFlagsUpdate{IsPremium: Bool(false), ClearPremiumExpiry: true}, true
}

func Bool(v bool) *bool { return &v }

func Time(t time.Time) *time.Time { return &t }
