// Package store defines the persistence interface for the trade engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/coinvex/trade-engine/internal/model"
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer for hot reads. The settlement
// write pair always goes through InTx against the primary.
type Store interface {
	// --- Customers ---

	// CreateCustomer persists a new customer and assigns its ID.
	CreateCustomer(ctx context.Context, c *model.Customer) error

	// GetCustomerByEmail retrieves a customer by login email.
	// Returns model.ErrCustomerNotFound if absent.
	GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error)

	// --- Accounts ---

	// FindAccountsByCustomer returns all of a customer's accounts.
	FindAccountsByCustomer(ctx context.Context, customerID int64) ([]model.Account, error)

	// FindAccountByCurrency returns the customer's account in the given
	// currency, or model.ErrAccountNotFound.
	FindAccountByCurrency(ctx context.Context, customerID int64, currency string) (*model.Account, error)

	// FindAccountByNumber returns the account with the given number owned
	// by the customer, or model.ErrAccountNotFound.
	FindAccountByNumber(ctx context.Context, customerID int64, accountNo string) (*model.Account, error)

	// CreateAccount persists a new account and assigns its ID.
	CreateAccount(ctx context.Context, a *model.Account) error

	// --- Trades ---

	// CreateTrade persists a new trade and assigns its ID.
	CreateTrade(ctx context.Context, t *model.Trade) error

	// GetTrade retrieves a trade scoped to its owner. A trade belonging to
	// a different customer is model.ErrTradeNotFound, not a permission error.
	GetTrade(ctx context.Context, tradeID, customerID int64) (*model.Trade, error)

	// --- Odds configuration ---

	// GetWinRate returns the customer's win-rate override and whether one
	// exists.
	GetWinRate(ctx context.Context, customerID int64) (float64, bool, error)

	// SetWinRate creates or replaces the customer's win-rate override.
	SetWinRate(ctx context.Context, customerID int64, rate float64) error

	// GetTradingSetting returns the odds row for (period, tradeType), or
	// model.ErrConfigurationMissing.
	GetTradingSetting(ctx context.Context, period int, tradeType model.TradeType) (*model.TradingSetting, error)

	// UpsertTradingSetting creates or replaces an odds row.
	UpsertTradingSetting(ctx context.Context, s *model.TradingSetting) error

	// --- Funding ---

	// CreateTransaction persists a new funding transaction.
	CreateTransaction(ctx context.Context, t *model.Transaction) error

	// GetTransaction retrieves a funding transaction by its public id.
	GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error)

	// --- Transaction scope ---

	// InTx runs fn against a transactional view of the store. The
	// transaction commits iff fn returns nil; on any other exit path
	// (error, panic) every staged write is rolled back.
	InTx(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the write surface available inside an InTx scope. Settlement
// uses it to update a trade and its account balance as one unit.
type TxStore interface {
	// SetTradeOutcome records the terminal status and success flag for a
	// trade, scoped to its owner.
	SetTradeOutcome(ctx context.Context, tradeID, customerID int64, status model.TradeStatus, success bool) error

	// IncrementBalance atomically adds delta (which may be negative) to the
	// account's balance. Implementations must not read-modify-write in
	// application memory.
	IncrementBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error

	// SetTransactionStatus flips a funding transaction's status.
	SetTransactionStatus(ctx context.Context, transactionID string, status model.TransactionStatus) error
}
