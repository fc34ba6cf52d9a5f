package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinvex/trade-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu           sync.RWMutex
	customers    map[int64]*model.Customer
	accounts     map[int64]*model.Account
	trades       map[int64]*model.Trade
	winRates     map[int64]float64
	settings     map[string]*model.TradingSetting
	transactions map[string]*model.Transaction
	nextID       int64

	// FailIncrementBalance, when set, makes the next IncrementBalance
	// inside InTx return this error. Used by tests to verify rollback.
	FailIncrementBalance error
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:    make(map[int64]*model.Customer),
		accounts:     make(map[int64]*model.Account),
		trades:       make(map[int64]*model.Trade),
		winRates:     make(map[int64]float64),
		settings:     make(map[string]*model.TradingSetting),
		transactions: make(map[string]*model.Transaction),
	}
}

func settingKey(period int, tt model.TradeType) string {
	return fmt.Sprintf("%d:%s", period, tt)
}

func (s *MemoryStore) allocID() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) CreateCustomer(_ context.Context, c *model.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.customers {
		if strings.EqualFold(existing.Email, c.Email) {
			return model.ErrCustomerExists
		}
	}
	c.ID = s.allocID()
	copy := *c
	s.customers[c.ID] = &copy
	return nil
}

func (s *MemoryStore) GetCustomerByEmail(_ context.Context, email string) (*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if strings.EqualFold(c.Email, email) {
			copy := *c
			return &copy, nil
		}
	}
	return nil, model.ErrCustomerNotFound
}

func (s *MemoryStore) FindAccountsByCustomer(_ context.Context, customerID int64) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var accounts []model.Account
	for _, a := range s.accounts {
		if a.CustomerID == customerID {
			accounts = append(accounts, *a)
		}
	}
	return accounts, nil
}

func (s *MemoryStore) FindAccountByCurrency(_ context.Context, customerID int64, currency string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.CustomerID == customerID && strings.EqualFold(a.Currency, currency) {
			copy := *a
			return &copy, nil
		}
	}
	return nil, model.ErrAccountNotFound
}

func (s *MemoryStore) FindAccountByNumber(_ context.Context, customerID int64, accountNo string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.CustomerID == customerID && a.AccountNo == accountNo {
			copy := *a
			return &copy, nil
		}
	}
	return nil, model.ErrAccountNotFound
}

func (s *MemoryStore) CreateAccount(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.CustomerID == a.CustomerID && strings.EqualFold(existing.Currency, a.Currency) {
			return fmt.Errorf("account for customer %d in %s already exists", a.CustomerID, a.Currency)
		}
	}
	a.ID = s.allocID()
	copy := *a
	s.accounts[a.ID] = &copy
	return nil
}

func (s *MemoryStore) CreateTrade(_ context.Context, t *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = s.allocID()
	copy := *t
	s.trades[t.ID] = &copy
	return nil
}

func (s *MemoryStore) GetTrade(_ context.Context, tradeID, customerID int64) (*model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trades[tradeID]
	if !ok || t.CustomerID != customerID {
		return nil, model.ErrTradeNotFound
	}
	copy := *t
	if t.Success != nil {
		v := *t.Success
		copy.Success = &v
	}
	return &copy, nil
}

func (s *MemoryStore) GetWinRate(_ context.Context, customerID int64) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rate, ok := s.winRates[customerID]
	return rate, ok, nil
}

func (s *MemoryStore) SetWinRate(_ context.Context, customerID int64, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.winRates[customerID] = rate
	return nil
}

func (s *MemoryStore) GetTradingSetting(_ context.Context, period int, tradeType model.TradeType) (*model.TradingSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts, ok := s.settings[settingKey(period, tradeType)]
	if !ok {
		return nil, model.ErrConfigurationMissing
	}
	copy := *ts
	return &copy, nil
}

func (s *MemoryStore) UpsertTradingSetting(_ context.Context, ts *model.TradingSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *ts
	s.settings[settingKey(ts.Period, ts.TradeType)] = &copy
	return nil
}

func (s *MemoryStore) CreateTransaction(_ context.Context, t *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[t.TransactionID]; ok {
		return fmt.Errorf("transaction %s already exists", t.TransactionID)
	}
	t.ID = s.allocID()
	copy := *t
	s.transactions[t.TransactionID] = &copy
	return nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, transactionID string) (*model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[transactionID]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", transactionID)
	}
	copy := *t
	return &copy, nil
}

// InTx stages writes against snapshots of the mutated records and restores
// them if fn fails, giving the same commit-or-rollback contract as the
// database implementation.
func (s *MemoryStore) InTx(_ context.Context, fn func(tx TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTxStore{store: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// memTxStore applies writes directly under the store lock while keeping
// undo copies of every record it touches.
type memTxStore struct {
	store      *MemoryStore
	prevTrades map[int64]model.Trade
	prevAccts  map[int64]model.Account
	prevTxns   map[string]model.Transaction
}

func (t *memTxStore) rollback() {
	for id, prev := range t.prevTrades {
		copy := prev
		t.store.trades[id] = &copy
	}
	for id, prev := range t.prevAccts {
		copy := prev
		t.store.accounts[id] = &copy
	}
	for id, prev := range t.prevTxns {
		copy := prev
		t.store.transactions[id] = &copy
	}
}

func (t *memTxStore) SetTradeOutcome(_ context.Context, tradeID, customerID int64, status model.TradeStatus, success bool) error {
	tr, ok := t.store.trades[tradeID]
	if !ok || tr.CustomerID != customerID {
		return model.ErrTradeNotFound
	}
	if t.prevTrades == nil {
		t.prevTrades = make(map[int64]model.Trade)
	}
	if _, saved := t.prevTrades[tradeID]; !saved {
		undo := *tr
		if tr.Success != nil {
			v := *tr.Success
			undo.Success = &v
		}
		t.prevTrades[tradeID] = undo
	}
	tr.Status = status
	tr.Success = &success
	tr.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *memTxStore) IncrementBalance(_ context.Context, accountID int64, delta decimal.Decimal) error {
	if err := t.store.FailIncrementBalance; err != nil {
		t.store.FailIncrementBalance = nil
		return err
	}
	a, ok := t.store.accounts[accountID]
	if !ok {
		return model.ErrAccountNotFound
	}
	if t.prevAccts == nil {
		t.prevAccts = make(map[int64]model.Account)
	}
	if _, saved := t.prevAccts[accountID]; !saved {
		t.prevAccts[accountID] = *a
	}
	a.Balance = a.Balance.Add(delta)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *memTxStore) SetTransactionStatus(_ context.Context, transactionID string, status model.TransactionStatus) error {
	txn, ok := t.store.transactions[transactionID]
	if !ok {
		return fmt.Errorf("transaction %s not found", transactionID)
	}
	if t.prevTxns == nil {
		t.prevTxns = make(map[string]model.Transaction)
	}
	if _, saved := t.prevTxns[transactionID]; !saved {
		t.prevTxns[transactionID] = *txn
	}
	txn.Status = status
	return nil
}
