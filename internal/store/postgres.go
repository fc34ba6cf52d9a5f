package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/coinvex/trade-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateCustomer(ctx context.Context, c *model.Customer) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO customers (name, email, phone, password, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		c.Name, c.Email, c.Phone, c.Password, c.IsActive, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	var c model.Customer
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, password, is_active, created_at
		 FROM customers WHERE email = $1`, email).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Password, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer by email: %w", err)
	}
	return &c, nil
}

const accountColumns = `id, customer_id, account_no, currency, balance::TEXT, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	var balance string
	if err := row.Scan(&a.ID, &a.CustomerID, &a.AccountNo, &a.Currency,
		&balance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Balance, _ = decimal.NewFromString(balance)
	return &a, nil
}

func (s *PostgresStore) FindAccountsByCustomer(ctx context.Context, customerID int64) ([]model.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE customer_id = $1 ORDER BY id`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) FindAccountByCurrency(ctx context.Context, customerID int64, currency string) (*model.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE customer_id = $1 AND currency = $2`,
		customerID, currency))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account by currency %s: %w", currency, err)
	}
	return a, nil
}

func (s *PostgresStore) FindAccountByNumber(ctx context.Context, customerID int64, accountNo string) (*model.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE customer_id = $1 AND account_no = $2`,
		customerID, accountNo))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account %s: %w", accountNo, err)
	}
	return a, nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, a *model.Account) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO accounts (customer_id, account_no, currency, balance, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7)
		 RETURNING id`,
		a.CustomerID, a.AccountNo, a.Currency, a.Balance.String(), a.IsActive, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateTrade(ctx context.Context, t *model.Trade) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO trades (customer_id, account_id, trade_type, period, trade_quantity, trading_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		t.CustomerID, t.AccountID, t.TradeType, t.Period, t.Quantity, t.Status, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("create trade: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTrade(ctx context.Context, tradeID, customerID int64) (*model.Trade, error) {
	var t model.Trade
	err := s.pool.QueryRow(ctx,
		`SELECT id, customer_id, account_id, trade_type, period, trade_quantity, trading_status, is_success, created_at, updated_at
		 FROM trades WHERE id = $1 AND customer_id = $2`, tradeID, customerID).
		Scan(&t.ID, &t.CustomerID, &t.AccountID, &t.TradeType, &t.Period,
			&t.Quantity, &t.Status, &t.Success, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrTradeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trade %d: %w", tradeID, err)
	}
	return &t, nil
}

func (s *PostgresStore) GetWinRate(ctx context.Context, customerID int64) (float64, bool, error) {
	var rate float64
	err := s.pool.QueryRow(ctx,
		`SELECT win_rate FROM win_rates WHERE customer_id = $1`, customerID).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get win rate for customer %d: %w", customerID, err)
	}
	return rate, true, nil
}

func (s *PostgresStore) SetWinRate(ctx context.Context, customerID int64, rate float64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO win_rates (customer_id, win_rate) VALUES ($1, $2)
		 ON CONFLICT (customer_id) DO UPDATE SET win_rate = EXCLUDED.win_rate`,
		customerID, rate)
	return err
}

func (s *PostgresStore) GetTradingSetting(ctx context.Context, period int, tradeType model.TradeType) (*model.TradingSetting, error) {
	var ts model.TradingSetting
	var payout string
	err := s.pool.QueryRow(ctx,
		`SELECT seconds, trading_type, win_rate, percentage::TEXT
		 FROM trading_settings WHERE seconds = $1 AND trading_type = $2`,
		period, tradeType).
		Scan(&ts.Period, &ts.TradeType, &ts.WinRate, &payout)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrConfigurationMissing
	}
	if err != nil {
		return nil, fmt.Errorf("get trading setting (%d, %s): %w", period, tradeType, err)
	}
	ts.Payout, _ = decimal.NewFromString(payout)
	return &ts, nil
}

func (s *PostgresStore) UpsertTradingSetting(ctx context.Context, ts *model.TradingSetting) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trading_settings (seconds, trading_type, win_rate, percentage)
		 VALUES ($1, $2, $3, $4::NUMERIC)
		 ON CONFLICT (seconds, trading_type)
		 DO UPDATE SET win_rate = EXCLUDED.win_rate, percentage = EXCLUDED.percentage`,
		ts.Period, ts.TradeType, ts.WinRate, ts.Payout.String())
	return err
}

func (s *PostgresStore) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO transactions (transaction_id, account_id, type, amount, description, status, created_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7)
		 RETURNING id`,
		t.TransactionID, t.AccountID, t.Type, t.Amount.String(), t.Description, t.Status, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	var t model.Transaction
	var amount string
	err := s.pool.QueryRow(ctx,
		`SELECT id, transaction_id, account_id, type, amount::TEXT, description, status, created_at
		 FROM transactions WHERE transaction_id = $1`, transactionID).
		Scan(&t.ID, &t.TransactionID, &t.AccountID, &t.Type, &amount, &t.Description, &t.Status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s not found", transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", transactionID, err)
	}
	t.Amount, _ = decimal.NewFromString(amount)
	return &t, nil
}

// InTx runs fn inside one database transaction. Commit happens only when fn
// returns nil; every other exit path rolls back.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	dbTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = dbTx.Rollback(ctx)
		}
	}()

	if err := fn(&pgTxStore{tx: dbTx}); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// pgTxStore is the transactional write surface over one pgx.Tx.
type pgTxStore struct {
	tx pgx.Tx
}

func (t *pgTxStore) SetTradeOutcome(ctx context.Context, tradeID, customerID int64, status model.TradeStatus, success bool) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE trades SET trading_status = $3, is_success = $4, updated_at = NOW()
		 WHERE id = $1 AND customer_id = $2`,
		tradeID, customerID, status, success)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTradeNotFound
	}
	return nil
}

func (t *pgTxStore) IncrementBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	// Single-statement increment; the database serializes concurrent updates.
	tag, err := t.tx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $2::NUMERIC, updated_at = NOW() WHERE id = $1`,
		accountID, delta.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

func (t *pgTxStore) SetTransactionStatus(ctx context.Context, transactionID string, status model.TransactionStatus) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE transactions SET status = $2 WHERE transaction_id = $1`,
		transactionID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s not found", transactionID)
	}
	return nil
}
