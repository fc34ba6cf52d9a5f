// Package funding handles deposit and withdrawal requests. A request only
// records a PENDING transaction; the balance change applies when an admin
// completes it, inside the same commit-or-rollback transaction scope that
// settlement uses.
package funding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinvex/trade-engine/internal/model"
	"github.com/coinvex/trade-engine/internal/store"
)

// Service handles funding transactions.
type Service struct {
	store store.Store
}

// NewService creates the funding service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Request is the JSON body for POST /api/v1/transactions/{withdrawal,deposit}.
type Request struct {
	CustomerID  int64           `json:"customerId"`
	AccountNo   string          `json:"accountNo"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// CompleteRequest is the JSON body for POST /api/v1/transactions/complete.
type CompleteRequest struct {
	TransactionID string `json:"transactionId"`
	Approve       bool   `json:"approve"`
}

// Submit records a PENDING transaction against an owned, active account.
// No balance mutation happens here.
func (s *Service) Submit(ctx context.Context, txType model.TransactionType, req Request) (*model.Transaction, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("amount must be positive")
	}

	account, err := s.store.FindAccountByNumber(ctx, req.CustomerID, req.AccountNo)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, model.ErrAccountInactive
	}

	txn := &model.Transaction{
		TransactionID: uuid.New().String(),
		AccountID:     account.ID,
		Type:          txType,
		Amount:        req.Amount,
		Description:   req.Description,
		Status:        model.TxPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	slog.Info("funding transaction requested",
		"transaction_id", txn.TransactionID,
		"type", txType,
		"account_id", account.ID,
		"amount", req.Amount.String(),
	)
	return txn, nil
}

// Complete applies an admin decision. Approval flips the status and applies
// the signed amount (deposits credit, withdrawals debit) in one transaction;
// rejection only flips the status. Completing a non-PENDING transaction is
// an error.
func (s *Service) Complete(ctx context.Context, req CompleteRequest) (*model.Transaction, error) {
	txn, err := s.store.GetTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != model.TxPending {
		return nil, fmt.Errorf("transaction %s is already %s", txn.TransactionID, txn.Status)
	}

	if !req.Approve {
		err := s.store.InTx(ctx, func(tx store.TxStore) error {
			return tx.SetTransactionStatus(ctx, txn.TransactionID, model.TxRejected)
		})
		if err != nil {
			return nil, err
		}
		txn.Status = model.TxRejected
		return txn, nil
	}

	delta := txn.Amount
	if txn.Type == model.TxWithdrawal {
		delta = delta.Neg()
	}

	err = s.store.InTx(ctx, func(tx store.TxStore) error {
		if err := tx.SetTransactionStatus(ctx, txn.TransactionID, model.TxCompleted); err != nil {
			return err
		}
		return tx.IncrementBalance(ctx, txn.AccountID, delta)
	})
	if err != nil {
		return nil, fmt.Errorf("complete transaction: %w", err)
	}

	txn.Status = model.TxCompleted
	slog.Info("funding transaction completed",
		"transaction_id", txn.TransactionID,
		"type", txn.Type,
		"delta", delta.String(),
	)
	return txn, nil
}

// --- HTTP Handlers ---

// RequestWithdrawal handles POST /api/v1/transactions/withdrawal.
func (s *Service) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	s.handleRequest(w, r, model.TxWithdrawal)
}

// RequestDeposit handles POST /api/v1/transactions/deposit.
func (s *Service) RequestDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleRequest(w, r, model.TxDeposit)
}

func (s *Service) handleRequest(w http.ResponseWriter, r *http.Request, txType model.TransactionType) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CustomerID <= 0 {
		writeError(w, model.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	txn, err := s.Submit(r.Context(), txType, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAccountNotFound):
			writeError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, model.ErrAccountInactive):
			writeError(w, err.Error(), http.StatusBadRequest)
		default:
			writeError(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message":     "request accepted",
		"transaction": txn,
	})
}

// CompleteTransaction handles POST /api/v1/transactions/complete.
func (s *Service) CompleteTransaction(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TransactionID == "" {
		writeError(w, "transactionId is required", http.StatusBadRequest)
		return
	}

	txn, err := s.Complete(r.Context(), req)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txn)
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
