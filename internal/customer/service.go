// Package customer provides onboarding and the aggregated-balance query.
// Identity is a trusted customer id supplied by the caller; credential and
// session handling live outside this service.
package customer

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/coinvex/trade-engine/internal/balance"
	"github.com/coinvex/trade-engine/internal/model"
	"github.com/coinvex/trade-engine/internal/store"
)

// Service handles customer signup and balance queries.
type Service struct {
	store      store.Store
	aggregator *balance.Aggregator
}

// NewService creates the customer service.
func NewService(st store.Store, agg *balance.Aggregator) *Service {
	return &Service{store: st, aggregator: agg}
}

// SignupRequest is the JSON body for POST /api/v1/customer/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Signup handles POST /api/v1/customer/signup.
func (s *Service) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Name == "" || req.Password == "" {
		writeError(w, "missing required fields", http.StatusBadRequest)
		return
	}

	c := &model.Customer{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateCustomer(r.Context(), c); err != nil {
		if errors.Is(err, model.ErrCustomerExists) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeError(w, "failed to create customer", http.StatusInternalServerError)
		return
	}

	slog.Info("customer signed up", "customer_id", c.ID, "email", c.Email)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": c})
}

// Balance handles GET /api/v1/customer/balance?customerId=N. It returns the
// customer's holdings aggregated into the settlement currency — the same
// figure admission gates on.
func (s *Service) Balance(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(r.URL.Query().Get("customerId"), 10, 64)
	if err != nil || customerID <= 0 {
		writeError(w, model.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	total, err := s.aggregator.TotalBalance(r.Context(), customerID)
	if err != nil {
		writeError(w, "failed to aggregate balance", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"balance": total})
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
