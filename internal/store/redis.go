package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coinvex/trade-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the odds configuration, which is read on every resolution but
// changes rarely. Account and trade reads always go to the primary: balances
// mutate on every settlement and a stale read would feed the sufficiency
// check bad data.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Cached reads ---

func (s *CachedStore) GetTradingSetting(ctx context.Context, period int, tradeType model.TradeType) (*model.TradingSetting, error) {
	key := tradingSettingKey(period, tradeType)

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var ts model.TradingSetting
		if json.Unmarshal(data, &ts) == nil {
			return &ts, nil
		}
	}

	ts, err := s.primary.GetTradingSetting(ctx, period, tradeType)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(ts); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
	return ts, nil
}

func (s *CachedStore) GetWinRate(ctx context.Context, customerID int64) (float64, bool, error) {
	key := winRateKey(customerID)

	if val, err := s.rdb.Get(ctx, key).Float64(); err == nil {
		return val, true, nil
	}

	rate, ok, err := s.primary.GetWinRate(ctx, customerID)
	if err != nil {
		return 0, false, err
	}
	if ok {
		s.rdb.Set(ctx, key, rate, s.ttl)
	}
	return rate, ok, nil
}

// --- Writes (invalidate, then next read re-populates) ---

func (s *CachedStore) SetWinRate(ctx context.Context, customerID int64, rate float64) error {
	if err := s.primary.SetWinRate(ctx, customerID, rate); err != nil {
		return err
	}
	s.rdb.Del(ctx, winRateKey(customerID))
	return nil
}

func (s *CachedStore) UpsertTradingSetting(ctx context.Context, ts *model.TradingSetting) error {
	if err := s.primary.UpsertTradingSetting(ctx, ts); err != nil {
		return err
	}
	s.rdb.Del(ctx, tradingSettingKey(ts.Period, ts.TradeType))
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) CreateCustomer(ctx context.Context, c *model.Customer) error {
	return s.primary.CreateCustomer(ctx, c)
}

func (s *CachedStore) GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	return s.primary.GetCustomerByEmail(ctx, email)
}

func (s *CachedStore) FindAccountsByCustomer(ctx context.Context, customerID int64) ([]model.Account, error) {
	return s.primary.FindAccountsByCustomer(ctx, customerID)
}

func (s *CachedStore) FindAccountByCurrency(ctx context.Context, customerID int64, currency string) (*model.Account, error) {
	return s.primary.FindAccountByCurrency(ctx, customerID, currency)
}

func (s *CachedStore) FindAccountByNumber(ctx context.Context, customerID int64, accountNo string) (*model.Account, error) {
	return s.primary.FindAccountByNumber(ctx, customerID, accountNo)
}

func (s *CachedStore) CreateAccount(ctx context.Context, a *model.Account) error {
	return s.primary.CreateAccount(ctx, a)
}

func (s *CachedStore) CreateTrade(ctx context.Context, t *model.Trade) error {
	return s.primary.CreateTrade(ctx, t)
}

func (s *CachedStore) GetTrade(ctx context.Context, tradeID, customerID int64) (*model.Trade, error) {
	return s.primary.GetTrade(ctx, tradeID, customerID)
}

func (s *CachedStore) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	return s.primary.CreateTransaction(ctx, t)
}

func (s *CachedStore) GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	return s.primary.GetTransaction(ctx, transactionID)
}

// InTx always runs against the primary; the settlement write pair must not
// involve the cache.
func (s *CachedStore) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	return s.primary.InTx(ctx, fn)
}

func tradingSettingKey(period int, tt model.TradeType) string {
	return fmt.Sprintf("setting:%d:%s", period, tt)
}

func winRateKey(customerID int64) string {
	return fmt.Sprintf("winrate:%d", customerID)
}
