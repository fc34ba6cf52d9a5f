package trade

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/coinvex/trade-engine/internal/model"
)

// ConfigSource is the slice of the store the resolver reads: the customer's
// win-rate override and the platform odds.
type ConfigSource interface {
	GetTrade(ctx context.Context, tradeID, customerID int64) (*model.Trade, error)
	GetWinRate(ctx context.Context, customerID int64) (float64, bool, error)
	GetTradingSetting(ctx context.Context, period int, tradeType model.TradeType) (*model.TradingSetting, error)
}

// Resolver derives a win/loss outcome and signed profit for one PENDING
// trade. It performs no writes; its only side effect is consuming entropy
// from the draw source.
type Resolver struct {
	config         ConfigSource
	defaultWinRate float64
	draw           func() float64 // uniform on [0,1)
}

// NewResolver creates a resolver. draw may be nil, in which case the shared
// math/rand source is used; tests inject a deterministic draw.
func NewResolver(config ConfigSource, defaultWinRate float64, draw func() float64) *Resolver {
	if draw == nil {
		draw = rand.Float64
	}
	return &Resolver{
		config:         config,
		defaultWinRate: defaultWinRate,
		draw:           draw,
	}
}

// Resolve decides the outcome for the trade. The trade must belong to
// customerID; a mismatch is model.ErrTradeNotFound. A missing
// (period, tradeType) odds row is model.ErrConfigurationMissing — resolution
// cannot proceed without payout terms.
//
// The win decision takes one uniform draw and compares it against the
// product of the customer's win rate (override or default) and the setting's
// win rate: both probabilities must pass, and either rate being 1 leaves the
// other in full effect.
func (r *Resolver) Resolve(ctx context.Context, tradeID, customerID int64) (*model.Trade, model.Outcome, error) {
	trade, err := r.config.GetTrade(ctx, tradeID, customerID)
	if err != nil {
		return nil, model.Outcome{}, err
	}

	customerRate := r.defaultWinRate
	if rate, ok, err := r.config.GetWinRate(ctx, customerID); err != nil {
		return nil, model.Outcome{}, fmt.Errorf("win rate lookup: %w", err)
	} else if ok {
		customerRate = rate
	}

	setting, err := r.config.GetTradingSetting(ctx, trade.Period, trade.TradeType)
	if err != nil {
		return nil, model.Outcome{}, err
	}

	success := r.draw() < customerRate*setting.WinRate

	quantity := decimal.NewFromInt(trade.Quantity)
	var profit decimal.Decimal
	if success {
		// profit = quantity × payout% / 100
		profit = quantity.Mul(setting.Payout).Div(decimal.NewFromInt(100))
	} else {
		profit = quantity.Neg()
	}

	return trade, model.Outcome{Success: success, Profit: profit}, nil
}
