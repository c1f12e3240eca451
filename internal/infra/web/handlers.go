package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"cityguide-billing/internal/domain"
	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/infra/logging"
	red "cityguide-billing/internal/infra/redis"
)

type errorResponse struct {
	Error string `json:"error"`
}

type listingResponse struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id"`
	Name             string     `json:"name"`
	IsPremium        bool       `json:"is_premium"`
	PremiumExpiresAt *time.Time `json:"premium_expires_at"`
	IsHidden         bool       `json:"is_hidden"`
}

func toListingResponse(l *model.Listing) listingResponse {
	return listingResponse{
		ID:               l.ID,
		OwnerID:          l.OwnerID,
		Name:             l.Name,
		IsPremium:        l.IsPremium,
		PremiumExpiresAt: l.PremiumExpiresAt,
		IsHidden:         l.IsHidden,
	}
}

type accountResponse struct {
	UserID   string `json:"user_id"`
	Credits  int64  `json:"credits"`
	Language string `json:"language"`
}

type transactionResponse struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type planResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	BillingPeriod string `json:"billing_period"`
}

func toPlanResponse(p *model.BillingPlan) planResponse {
	return planResponse{ID: p.ID, Name: p.Name, Price: p.Price, BillingPeriod: string(p.BillingPeriod)}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrListingNotFound),
		errors.Is(err, domain.ErrPlanNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrNoActiveSubscription),
		errors.Is(err, domain.ErrLockHeld),
		errors.Is(err, domain.ErrBalanceChanged):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrInvalidArgument
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Msg("health check failed")
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{"status": status})
}

type premiumRequest struct {
	Enabled *bool `json:"enabled"`
}

const (
	premiumRateLimit  = 10
	premiumRateWindow = time.Minute
)

func (s *Server) handleSetPremium(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := logging.UserID(ctx)
	placeID := chi.URLParam(r, "placeID")

	var req premiumRequest
	if err := decode(w, r, &req); err != nil || req.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must be {\"enabled\": bool}"})
		return
	}
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, red.UserActionKey(userID, "premium"), premiumRateLimit, premiumRateWindow)
		if err != nil {
			logging.With(ctx, s.log).Warn().Err(err).Msg("rate limiter unavailable")
		} else if !ok {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
			return
		}
	}

	l, err := s.premium.SetPremium(ctx, userID, placeID, *req.Enabled)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(l))
}

func (s *Server) handleRunBilling(w http.ResponseWriter, r *http.Request) {
	// A client that hangs up must not cut the cycle short; the worker's run timeout bounds it.
	report, err := s.cycle.RunOnce(context.WithoutCancel(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	n, err := s.sweeper.Sweep(context.WithoutCancel(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"swept": n})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := s.ledger.Balance(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{UserID: acc.UserID, Credits: acc.Credits, Language: acc.Language})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := s.ledger.History(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionResponse{
			ID:          t.ID,
			Amount:      t.Amount,
			Type:        string(t.Type),
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type adjustRequest struct {
	Delta       int64  `json:"delta"`
	Description string `json:"description"`
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	userID := chi.URLParam(r, "userID")
	balance, err := s.ledger.Adjust(r.Context(), userID, req.Delta, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user_id": userID, "credits": balance})
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type planCreateRequest struct {
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	BillingPeriod string `json:"billing_period"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planCreateRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	plan, err := s.plans.Create(r.Context(), req.Name, req.Price, model.BillingPeriod(req.BillingPeriod))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanResponse(plan))
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.Get(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(plan))
}
