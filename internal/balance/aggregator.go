// Package balance prices a customer's multi-currency holdings into a single
// settlement-currency total.
package balance

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/coinvex/trade-engine/internal/currency"
	"github.com/coinvex/trade-engine/internal/metrics"
	"github.com/coinvex/trade-engine/internal/model"
	"github.com/coinvex/trade-engine/internal/oracle"
)

// AccountSource is the slice of the store the aggregator reads.
type AccountSource interface {
	FindAccountsByCustomer(ctx context.Context, customerID int64) ([]model.Account, error)
}

// Aggregator sums a customer's accounts into the settlement currency.
// The read is a best-effort snapshot: it is not isolated from concurrent
// balance mutations, which is acceptable because callers use the total only
// as an advisory sufficiency check.
type Aggregator struct {
	accounts   AccountSource
	prices     oracle.PriceSource
	settlement string
	fallback   oracle.FallbackPolicy
}

// NewAggregator creates an aggregator. settlement is the currency totals are
// expressed in (normalized code, e.g. "USD").
func NewAggregator(accounts AccountSource, prices oracle.PriceSource, settlement string, fallback oracle.FallbackPolicy) *Aggregator {
	return &Aggregator{
		accounts:   accounts,
		prices:     prices,
		settlement: settlement,
		fallback:   fallback,
	}
}

// TotalBalance returns the customer's holdings in the settlement currency.
//
// Settlement-currency balances add directly. Convertible currencies add
// balance × spot price; if the price fetch fails the fallback policy's
// substitute price applies, so the same failure always yields the same
// total. Currencies outside the convertible set contribute their raw
// balance — a deliberate simplification, not a correctness guarantee.
func (g *Aggregator) TotalBalance(ctx context.Context, customerID int64) (decimal.Decimal, error) {
	accounts, err := g.accounts.FindAccountsByCustomer(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, a := range accounts {
		code, err := currency.Normalize(a.Currency)
		if err != nil {
			code = a.Currency // stored codes are normalized on write; keep raw if not
		}

		if code == g.settlement || !currency.Convertible(code) {
			total = total.Add(a.Balance)
			continue
		}

		price, err := g.prices.GetSpotPrice(ctx, code, g.settlement)
		if err != nil {
			metrics.OracleFallbacks.WithLabelValues(code).Inc()
			slog.Warn("price fetch failed, applying fallback",
				"currency", code,
				"customer_id", customerID,
				"err", err,
			)
			price = g.fallback.FallbackPrice()
		}
		total = total.Add(a.Balance.Mul(price))
	}

	return total, nil
}
