package repository

import (
	"context"
	"time"

	"cityguide-billing/internal/domain/model"
)

// -----------------------------
// Listings
// -----------------------------

type ListingRepository interface {
	GetListing(ctx context.Context, tx Tx, placeID string) (*model.Listing, error)
	// UpdateListingFlags writes only the fields set in update and returns the new row.
	UpdateListingFlags(ctx context.Context, tx Tx, placeID string, update model.ListingFlagsUpdate) (*model.Listing, error)
	// FindExpiredPremium lists premium listings whose expiry is at or before now.
	FindExpiredPremium(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Listing, error)
}
