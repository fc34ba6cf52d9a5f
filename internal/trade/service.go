package trade

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/coinvex/trade-engine/internal/model"
)

// Service exposes the trade core over HTTP: admission at POST /trade-request
// and resolution + settlement at POST /trade-success.
type Service struct {
	admission  *Admission
	resolver   *Resolver
	settlement *Settlement
	wsHub      *WSHub // optional hub for settlement broadcasts
}

// NewService creates the trade HTTP service. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(admission *Admission, resolver *Resolver, settlement *Settlement, hub *WSHub) *Service {
	return &Service{
		admission:  admission,
		resolver:   resolver,
		settlement: settlement,
		wsHub:      hub,
	}
}

// --- Request/Response types ---

// TradeRequest is the JSON body for POST /api/v1/trade-request.
type TradeRequest struct {
	CustomerID int64  `json:"customerId"`
	TradeType  string `json:"tradeType"`
	Period     int    `json:"period"`
	Quantity   int64  `json:"tradeQuantity"`
	Currency   string `json:"currency"`
}

// SettleRequest is the JSON body for POST /api/v1/trade-success.
type SettleRequest struct {
	CustomerID int64 `json:"customerId"`
	TradeID    int64 `json:"tradeId"`
}

// SettleResponse is returned after a successful settlement.
type SettleResponse struct {
	Success bool            `json:"success"`
	Profit  decimal.Decimal `json:"profit"`
}

// --- HTTP Handlers ---

// RequestTrade handles POST /api/v1/trade-request.
func (s *Service) RequestTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tradeType, err := model.ParseTradeType(req.TradeType)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	trade, err := s.admission.Submit(r.Context(), AdmissionRequest{
		CustomerID: req.CustomerID,
		TradeType:  tradeType,
		Period:     req.Period,
		Quantity:   req.Quantity,
		Currency:   req.Currency,
	})
	if err != nil {
		writeError(w, err.Error(), admissionStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(trade)
}

// SettleTrade handles POST /api/v1/trade-success: resolves the outcome and
// applies it atomically.
func (s *Service) SettleTrade(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CustomerID <= 0 || req.TradeID <= 0 {
		writeError(w, "customerId and tradeId must be positive", http.StatusBadRequest)
		return
	}

	resp, err := s.ResolveAndSettle(r.Context(), req.TradeID, req.CustomerID)
	if err != nil {
		writeError(w, err.Error(), settlementStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ResolveAndSettle runs the resolution-then-settlement sequence for one
// trade and broadcasts the result.
func (s *Service) ResolveAndSettle(ctx context.Context, tradeID, customerID int64) (*SettleResponse, error) {
	trade, outcome, err := s.resolver.Resolve(ctx, tradeID, customerID)
	if err != nil {
		return nil, err
	}

	if err := s.settlement.Apply(ctx, trade, outcome); err != nil {
		return nil, err
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:       "trade_settled",
			TradeID:    trade.ID,
			CustomerID: trade.CustomerID,
			TradeType:  string(trade.TradeType),
			Success:    outcome.Success,
			Profit:     outcome.Profit.String(),
		})
	}

	return &SettleResponse{Success: true, Profit: outcome.Profit}, nil
}

func admissionStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrInsufficientBalance):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAccountInactive):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAccountNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func settlementStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrTradeNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConfigurationMissing):
		return http.StatusNotFound
	case errors.Is(err, model.ErrSettlementFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
