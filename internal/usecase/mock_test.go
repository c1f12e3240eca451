//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"cityguide-billing/internal/domain"
	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/domain/ports/adapter"
	"cityguide-billing/internal/domain/ports/repository"
)

// =============================
// In-memory store
// =============================

// memStore backs the ledger, listing, subscription and plan ports with maps.
// Every Func field, when set, replaces the default behaviour of that method.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]model.Account
	entries  []model.Transaction
	listings map[string]model.Listing
	subs     map[string]model.Subscription
	plans    map[string]model.BillingPlan
	calls    []string // row-locking reads, in call order

	SelectDueFunc          func(ctx context.Context, now time.Time) ([]*model.DueSubscriptionView, error)
	LockDueFunc            func(ctx context.Context, id string, now time.Time) (*model.DueSubscriptionView, error)
	UpdateListingFlagsFunc func(ctx context.Context, placeID string, u model.ListingFlagsUpdate) (*model.Listing, error)
	CommitBalanceFunc      func(ctx context.Context, userID string, expected, newBalance int64) error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]model.Account{},
		listings: map[string]model.Listing{},
		subs:     map[string]model.Subscription{},
		plans:    map[string]model.BillingPlan{},
	}
}

var (
	_ repository.LedgerRepository       = (*memStore)(nil)
	_ repository.ListingRepository      = (*memStore)(nil)
	_ repository.SubscriptionRepository = (*memStore)(nil)
	_ repository.BillingPlanRepository  = (*memStore)(nil)
)

// ---- seeding / inspection helpers ----

func (s *memStore) putAccount(userID string, credits int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[userID] = model.Account{UserID: userID, Credits: credits, Language: "en"}
}

func (s *memStore) putListing(l model.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = l
}

func (s *memStore) putSub(sub model.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.ID] = sub
}

func (s *memStore) putPlan(p model.BillingPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
}

func (s *memStore) credits(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[userID].Credits
}

func (s *memStore) listing(id string) model.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listings[id]
}

func (s *memStore) sub(id string) model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[id]
}

func (s *memStore) putAccountLang(userID string, credits int64, lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[userID] = model.Account{UserID: userID, Credits: credits, Language: lang}
}

func (s *memStore) lockOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *memStore) entriesFor(userID string) []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Transaction
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

type memSnapshot struct {
	accounts map[string]model.Account
	entries  []model.Transaction
	listings map[string]model.Listing
	subs     map[string]model.Subscription
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		accounts: map[string]model.Account{},
		entries:  append([]model.Transaction(nil), s.entries...),
		listings: map[string]model.Listing{},
		subs:     map[string]model.Subscription{},
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	for k, v := range s.listings {
		snap.listings[k] = v
	}
	for k, v := range s.subs {
		snap.subs[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts, s.entries, s.listings, s.subs = snap.accounts, snap.entries, snap.listings, snap.subs
}

// ---- LedgerRepository ----

func (s *memStore) GetAccount(ctx context.Context, tx repository.Tx, userID string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "GetAccount")
	a, ok := s.accounts[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

func (s *memStore) ApplyDelta(ctx context.Context, tx repository.Tx, userID string, delta int64, entry *model.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	if a.Credits+delta < 0 {
		return 0, domain.ErrInsufficientFunds
	}
	a.Credits += delta
	s.accounts[userID] = a
	s.entries = append(s.entries, *entry)
	return a.Credits, nil
}

func (s *memStore) CommitBalance(ctx context.Context, tx repository.Tx, userID string, expected, newBalance int64, entries []*model.Transaction) error {
	if s.CommitBalanceFunc != nil {
		if err := s.CommitBalanceFunc(ctx, userID, expected, newBalance); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if newBalance < 0 {
		return domain.ErrInsufficientFunds
	}
	a, ok := s.accounts[userID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if a.Credits != expected {
		return domain.ErrBalanceChanged
	}
	a.Credits = newBalance
	s.accounts[userID] = a
	for _, e := range entries {
		s.entries = append(s.entries, *e)
	}
	return nil
}

func (s *memStore) ListTransactions(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Transaction, error) {
	all := s.entriesFor(userID)
	sort.SliceStable(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]*model.Transaction, len(all))
	for i := range all {
		out[i] = &all[i]
	}
	return out, nil
}

// ---- ListingRepository ----

func (s *memStore) GetListing(ctx context.Context, tx repository.Tx, placeID string) (*model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "GetListing")
	l, ok := s.listings[placeID]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return &l, nil
}

func (s *memStore) UpdateListingFlags(ctx context.Context, tx repository.Tx, placeID string, u model.ListingFlagsUpdate) (*model.Listing, error) {
	if s.UpdateListingFlagsFunc != nil {
		return s.UpdateListingFlagsFunc(ctx, placeID, u)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[placeID]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	l = u.Apply(l)
	s.listings[placeID] = l
	return &l, nil
}

func (s *memStore) FindExpiredPremium(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, l := range s.listings {
		if l.IsPremium && l.PremiumExpiresAt != nil && !l.PremiumExpiresAt.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*model.Listing, 0, len(ids))
	for _, id := range ids {
		l := s.listings[id]
		out = append(out, &l)
	}
	return out, nil
}

// ---- SubscriptionRepository ----

func (s *memStore) view(sub model.Subscription) *model.DueSubscriptionView {
	return &model.DueSubscriptionView{
		Subscription: sub,
		Plan:         s.plans[sub.PlanID],
		Listing:      s.listings[sub.PlaceID],
	}
}

func (s *memStore) SelectDue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.DueSubscriptionView, error) {
	if s.SelectDueFunc != nil {
		return s.SelectDueFunc(ctx, now)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []model.Subscription
	for _, sub := range s.subs {
		if sub.IsDue(now) {
			due = append(due, sub)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextBillingDate.Equal(due[j].NextBillingDate) {
			return due[i].NextBillingDate.Before(due[j].NextBillingDate)
		}
		return due[i].ID < due[j].ID
	})
	out := make([]*model.DueSubscriptionView, 0, len(due))
	for _, sub := range due {
		out = append(out, s.view(sub))
	}
	return out, nil
}

func (s *memStore) LockDue(ctx context.Context, tx repository.Tx, id string, now time.Time) (*model.DueSubscriptionView, error) {
	s.mu.Lock()
	s.calls = append(s.calls, "LockDue")
	s.mu.Unlock()
	if s.LockDueFunc != nil {
		return s.LockDueFunc(ctx, id, now)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok || !sub.IsDue(now) {
		return nil, domain.ErrNotFound
	}
	return s.view(sub), nil
}

func (s *memStore) FindActiveByPlace(ctx context.Context, tx repository.Tx, placeID string) (*model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "FindActiveByPlace")
	for _, sub := range s.subs {
		if sub.PlaceID == placeID && sub.IsActive {
			out := sub
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) UpdateSubscription(ctx context.Context, tx repository.Tx, id string, u model.SubscriptionUpdate) (*model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	sub = u.Apply(sub)
	s.subs[id] = sub
	return &sub, nil
}

func (s *memStore) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[model.SubscriptionStatus]int{}
	for _, sub := range s.subs {
		switch {
		case !sub.IsActive:
			out[model.SubscriptionStatusInactive]++
		case sub.CancelAtPeriodEnd:
			out[model.SubscriptionStatusPendingCancel]++
		default:
			out[model.SubscriptionStatusActive]++
		}
	}
	return out, nil
}

// ---- BillingPlanRepository ----

func (s *memStore) Save(ctx context.Context, tx repository.Tx, p *model.BillingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[p.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.plans[p.ID] = *p
	return nil
}

func (s *memStore) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.BillingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return &p, nil
}

func (s *memStore) ListAll(ctx context.Context, tx repository.Tx) ([]*model.BillingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.BillingPlan, 0, len(s.plans))
	for _, p := range s.plans {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================
// Transactions
// =============================

// MockTxManager runs fn directly. When store is set, a failing fn restores the
// store to its state before the call, which stands in for a rollback.
type MockTxManager struct {
	store      *memStore
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager(store *memStore) *MockTxManager {
	return &MockTxManager{store: store}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	if m.store == nil {
		return fn(ctx, repository.NoTX)
	}
	snap := m.store.snapshot()
	if err := fn(ctx, repository.NoTX); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// =============================
// Adapters
// =============================

type MockDispatcher struct {
	mu     sync.Mutex
	Events []model.BillingEvent
	Drop   bool
}

var _ adapter.EventDispatcher = (*MockDispatcher)(nil)

func (d *MockDispatcher) Dispatch(ev model.BillingEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Drop {
		return false
	}
	d.Events = append(d.Events, ev)
	return true
}

func (d *MockDispatcher) kinds() []model.EventKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.EventKind, len(d.Events))
	for i, ev := range d.Events {
		out[i] = ev.Kind
	}
	return out
}

// =============================
// Helpers
// =============================

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
