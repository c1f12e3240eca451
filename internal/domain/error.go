package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrOperationFailed      = errors.New("database operation failed")
	ErrReadDatabaseRow      = errors.New("failed to read database row")
	ErrInvalidExecContext   = errors.New("invalid database execution context")
	ErrNoActiveSubscription = errors.New("no active subscription")

	// Ledger
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient credits")
	ErrBalanceChanged    = errors.New("account balance changed concurrently")

	// Listings
	ErrListingNotFound = errors.New("listing not found")
	ErrPlanNotFound    = errors.New("billing plan not found")
	ErrForbidden       = errors.New("caller does not own this listing")

	// Scheduling
	ErrLockHeld = errors.New("lock is held by another worker")
)
