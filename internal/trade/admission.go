// Package trade implements the settlement core: admission of wagers against
// aggregated balance, win/loss resolution against configured odds, and atomic
// settlement of the outcome.
//
// All monetary values use shopspring/decimal — never float64 for money.
package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinvex/trade-engine/internal/balance"
	"github.com/coinvex/trade-engine/internal/currency"
	"github.com/coinvex/trade-engine/internal/metrics"
	"github.com/coinvex/trade-engine/internal/model"
	"github.com/coinvex/trade-engine/internal/store"
)

// AdmissionRequest is one incoming wager. CustomerID comes from the identity
// layer and is trusted here.
type AdmissionRequest struct {
	CustomerID int64
	TradeType  model.TradeType
	Period     int    // duration in seconds
	Quantity   int64  // wager, integer units of settlement currency
	Currency   string // settling account currency
}

// Validate checks field ranges; type parsing happens at the HTTP edge.
func (r AdmissionRequest) Validate() error {
	if r.CustomerID <= 0 {
		return fmt.Errorf("customer id must be positive")
	}
	if r.TradeType != model.TradeLong && r.TradeType != model.TradeShort {
		return fmt.Errorf("trade type must be LONG or SHORT")
	}
	if r.Period <= 0 {
		return fmt.Errorf("period must be positive")
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("trade quantity must be positive")
	}
	return nil
}

// Admission gates wagers on aggregated balance. It never reserves or debits
// funds: the sufficiency check is advisory and settlement applies the only
// balance mutation.
type Admission struct {
	store      store.Store
	aggregator *balance.Aggregator
}

// NewAdmission creates the admission component.
func NewAdmission(st store.Store, agg *balance.Aggregator) *Admission {
	return &Admission{store: st, aggregator: agg}
}

// Submit validates the request, lazily creates the (customer, currency)
// account if absent, and opens a PENDING trade iff the customer's aggregated
// balance covers the quantity.
func (a *Admission) Submit(ctx context.Context, req AdmissionRequest) (*model.Trade, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	code, err := currency.Normalize(req.Currency)
	if err != nil {
		return nil, err
	}

	account, err := a.store.FindAccountByCurrency(ctx, req.CustomerID, code)
	if errors.Is(err, model.ErrAccountNotFound) {
		account = &model.Account{
			CustomerID: req.CustomerID,
			AccountNo:  generateAccountNumber(),
			Currency:   code,
			Balance:    decimal.Zero,
			IsActive:   true,
			CreatedAt:  time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
		}
		if err := a.store.CreateAccount(ctx, account); err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		slog.Info("account created lazily",
			"customer_id", req.CustomerID,
			"currency", code,
			"account_no", account.AccountNo,
		)
	} else if err != nil {
		return nil, err
	}

	if !account.IsActive {
		metrics.AdmissionRejections.WithLabelValues("account_inactive").Inc()
		return nil, model.ErrAccountInactive
	}

	// Sufficiency is checked against ALL of the customer's accounts, not
	// just the settling one: cross-currency subsidization is intentional.
	total, err := a.aggregator.TotalBalance(ctx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("aggregate balance: %w", err)
	}

	if total.LessThan(decimal.NewFromInt(req.Quantity)) {
		metrics.AdmissionRejections.WithLabelValues("insufficient_balance").Inc()
		return nil, model.ErrInsufficientBalance
	}

	trade := &model.Trade{
		CustomerID: req.CustomerID,
		AccountID:  account.ID,
		TradeType:  req.TradeType,
		Period:     req.Period,
		Quantity:   req.Quantity,
		Status:     model.TradePending,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := a.store.CreateTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("create trade: %w", err)
	}

	metrics.TradesAdmitted.WithLabelValues(string(req.TradeType)).Inc()
	slog.Info("trade admitted",
		"trade_id", trade.ID,
		"customer_id", req.CustomerID,
		"type", req.TradeType,
		"period", req.Period,
		"quantity", req.Quantity,
		"aggregated_balance", total.String(),
	)
	return trade, nil
}

// generateAccountNumber builds a unique-enough account number from the
// current millisecond timestamp plus three random digits.
func generateAccountNumber() string {
	return fmt.Sprintf("%d%03d", time.Now().UnixMilli(), rand.Intn(1000))
}
