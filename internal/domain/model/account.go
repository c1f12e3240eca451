package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Account is the credit balance attached to a user profile.
type Account struct {
	UserID    string
	Credits   int64
	Language  string
	UpdatedAt time.Time
}

func (a *Account) IsZero() bool { return a == nil || a.UserID == "" }

type TransactionType string

const (
	TransactionSubscriptionRenewed TransactionType = "subscription_renewed"
	TransactionPremiumRenewed      TransactionType = "premium_renewed"
	TransactionPremiumActivated    TransactionType = "premium_activated"
	TransactionSubscriptionPayment TransactionType = "subscription_payment"
	TransactionAdminAdjustment     TransactionType = "admin_adjustment"
)

// Transaction is one immutable row of the credit audit log.
// Amount is signed: negative values are debits.
type Transaction struct {
	ID          string
	UserID      string
	Amount      int64
	Type        TransactionType
	Description string
	CreatedAt   time.Time
}

// NewTransaction builds a ledger entry with a time-ordered id.
func NewTransaction(userID string, amount int64, typ TransactionType, description string, at time.Time) *Transaction {
	return &Transaction{
		ID:          ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		UserID:      userID,
		Amount:      amount,
		Type:        typ,
		Description: description,
		CreatedAt:   at,
	}
}
