// Package model defines the core domain types shared across the trade engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Domain errors surfaced by the core. Handlers map these to HTTP statuses.
var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrAccountNotFound      = errors.New("account not found or access denied")
	ErrAccountInactive      = errors.New("account is inactive")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrConfigurationMissing = errors.New("no trading setting for period and type")
	ErrTradeNotFound        = errors.New("trade not found or access denied")
	ErrSettlementFailed     = errors.New("settlement transaction failed")
	ErrCustomerExists       = errors.New("customer already exists")
	ErrCustomerNotFound     = errors.New("customer not found")
)

// TradeType is the direction of a wager.
type TradeType string

const (
	TradeLong  TradeType = "LONG"
	TradeShort TradeType = "SHORT"
)

// ParseTradeType validates a trade type string at the edge.
func ParseTradeType(s string) (TradeType, error) {
	switch TradeType(strings.ToUpper(s)) {
	case TradeLong:
		return TradeLong, nil
	case TradeShort:
		return TradeShort, nil
	default:
		return "", fmt.Errorf("trade type must be LONG or SHORT, got %q", s)
	}
}

// TradeStatus is the lifecycle state of one trade. A trade is created
// PENDING and transitions to SETTLED exactly once.
type TradeStatus string

const (
	TradePending TradeStatus = "PENDING"
	TradeSettled TradeStatus = "SETTLED"
)

// TransactionType distinguishes funding flows.
type TransactionType string

const (
	TxDeposit    TransactionType = "DEPOSIT"
	TxWithdrawal TransactionType = "WITHDRAWAL"
)

// ParseTransactionType validates a funding type string at the edge.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToUpper(s)) {
	case TxDeposit:
		return TxDeposit, nil
	case TxWithdrawal:
		return TxWithdrawal, nil
	default:
		return "", fmt.Errorf("transaction type must be DEPOSIT or WITHDRAWAL, got %q", s)
	}
}

// TransactionStatus is the lifecycle state of a funding transaction.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxCompleted TransactionStatus = "COMPLETED"
	TxRejected  TransactionStatus = "REJECTED"
)

// Customer is a platform user. Never hard-deleted; IsActive flips instead.
type Customer struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	Password  string    `json:"-" db:"password"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Account holds one customer's balance in one currency. At most one account
// exists per (customer, currency) pair; admission creates one lazily.
type Account struct {
	ID         int64           `json:"id" db:"id"`
	CustomerID int64           `json:"customer_id" db:"customer_id"`
	AccountNo  string          `json:"account_no" db:"account_no"`
	Currency   string          `json:"currency" db:"currency"`
	Balance    decimal.Decimal `json:"balance" db:"balance"`
	IsActive   bool            `json:"is_active" db:"is_active"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// Trade is one binary-outcome wager. Success is nil until settlement.
type Trade struct {
	ID         int64       `json:"id" db:"id"`
	CustomerID int64       `json:"customer_id" db:"customer_id"`
	AccountID  int64       `json:"account_id" db:"account_id"`
	TradeType  TradeType   `json:"trade_type" db:"trade_type"`
	Period     int         `json:"period" db:"period"` // duration in seconds
	Quantity   int64       `json:"trade_quantity" db:"trade_quantity"`
	Status     TradeStatus `json:"trading_status" db:"trading_status"`
	Success    *bool       `json:"is_success" db:"is_success"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// WinRate is a per-customer override of the default win probability.
type WinRate struct {
	CustomerID int64   `json:"customer_id" db:"customer_id"`
	Rate       float64 `json:"win_rate" db:"win_rate"` // in [0,1]
}

// TradingSetting holds the platform odds for one (period, trade type)
// combination. Resolution cannot proceed without a matching row.
type TradingSetting struct {
	Period    int             `json:"seconds" db:"seconds"`
	TradeType TradeType       `json:"trading_type" db:"trading_type"`
	WinRate   float64         `json:"win_rate" db:"win_rate"`
	Payout    decimal.Decimal `json:"percentage" db:"percentage"` // % of quantity paid on a win
}

// Transaction is a funding record (deposit or withdrawal). Created PENDING;
// an admin completion applies the balance change and flips the status.
type Transaction struct {
	ID            int64             `json:"id" db:"id"`
	TransactionID string            `json:"transaction_id" db:"transaction_id"`
	AccountID     int64             `json:"account_id" db:"account_id"`
	Type          TransactionType   `json:"type" db:"type"`
	Amount        decimal.Decimal   `json:"amount" db:"amount"`
	Description   string            `json:"description,omitempty" db:"description"`
	Status        TransactionStatus `json:"status" db:"status"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}

// Outcome is the result of resolving one trade: whether it won and the
// signed profit to apply to the settling account.
type Outcome struct {
	Success bool            `json:"success"`
	Profit  decimal.Decimal `json:"profit"`
}
