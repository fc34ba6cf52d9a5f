package trade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coinvex/trade-engine/internal/metrics"
	"github.com/coinvex/trade-engine/internal/model"
	"github.com/coinvex/trade-engine/internal/store"
)

// Settlement atomically applies a resolved outcome: the trade's terminal
// status and the account balance increment commit together or not at all.
// It holds no state of its own; everything lives in store records.
type Settlement struct {
	store store.Store
}

// NewSettlement creates the settlement engine.
func NewSettlement(st store.Store) *Settlement {
	return &Settlement{store: st}
}

// Apply settles one resolved trade. The balance delta is applied
// unconditionally: admission already gated on sufficiency, and re-validating
// here would race the advisory check it trusts. Re-settling an
// already-settled trade is a caller error and is not guarded.
//
// On any write failure the transaction rolls back, the trade stays PENDING,
// and model.ErrSettlementFailed is returned; resolution is safe to retry.
func (s *Settlement) Apply(ctx context.Context, trade *model.Trade, outcome model.Outcome) error {
	start := time.Now()

	err := s.store.InTx(ctx, func(tx store.TxStore) error {
		if err := tx.SetTradeOutcome(ctx, trade.ID, trade.CustomerID, model.TradeSettled, outcome.Success); err != nil {
			return fmt.Errorf("set trade outcome: %w", err)
		}
		if err := tx.IncrementBalance(ctx, trade.AccountID, outcome.Profit); err != nil {
			return fmt.Errorf("increment balance: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.SettlementFailures.Inc()
		slog.Error("settlement rolled back",
			"trade_id", trade.ID,
			"customer_id", trade.CustomerID,
			"err", err,
		)
		return fmt.Errorf("%w: %v", model.ErrSettlementFailed, err)
	}

	metrics.SettlementLatency.Observe(time.Since(start).Seconds())
	outcomeLabel := "loss"
	if outcome.Success {
		outcomeLabel = "win"
	}
	metrics.TradesSettled.WithLabelValues(outcomeLabel).Inc()

	slog.Info("trade settled",
		"trade_id", trade.ID,
		"customer_id", trade.CustomerID,
		"success", outcome.Success,
		"profit", outcome.Profit.String(),
	)
	return nil
}
