package funding_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinvex/trade-engine/internal/funding"
	"github.com/coinvex/trade-engine/internal/model"
	"github.com/coinvex/trade-engine/internal/store"
)

func seedAccount(t *testing.T, ms *store.MemoryStore, customerID int64, accountNo string, bal float64, active bool) *model.Account {
	t.Helper()
	a := &model.Account{
		CustomerID: customerID,
		AccountNo:  accountNo,
		Currency:   "USD",
		Balance:    decimal.NewFromFloat(bal),
		IsActive:   active,
		CreatedAt:  time.Now().UTC(),
	}
	if err := ms.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func TestSubmit_CreatesPendingWithoutBalanceChange(t *testing.T) {
	ms := store.NewMemoryStore()
	seedAccount(t, ms, 1, "10001", 100, true)
	svc := funding.NewService(ms)

	txn, err := svc.Submit(context.Background(), model.TxDeposit, funding.Request{
		CustomerID: 1,
		AccountNo:  "10001",
		Amount:     decimal.NewFromInt(25),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.Status != model.TxPending {
		t.Errorf("expected PENDING, got %s", txn.Status)
	}
	if txn.TransactionID == "" {
		t.Error("transaction id must be assigned")
	}

	acct, _ := ms.FindAccountByCurrency(context.Background(), 1, "USD")
	if !acct.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("submit must not move the balance, got %s", acct.Balance)
	}
}

func TestSubmit_Rejections(t *testing.T) {
	ms := store.NewMemoryStore()
	seedAccount(t, ms, 1, "10001", 100, true)
	seedAccount(t, ms, 2, "20001", 100, false)
	svc := funding.NewService(ms)

	tests := []struct {
		name    string
		req     funding.Request
		wantErr error
	}{
		{
			name:    "foreign account",
			req:     funding.Request{CustomerID: 2, AccountNo: "10001", Amount: decimal.NewFromInt(10)},
			wantErr: model.ErrAccountNotFound,
		},
		{
			name:    "unknown account",
			req:     funding.Request{CustomerID: 1, AccountNo: "99999", Amount: decimal.NewFromInt(10)},
			wantErr: model.ErrAccountNotFound,
		},
		{
			name:    "inactive account",
			req:     funding.Request{CustomerID: 2, AccountNo: "20001", Amount: decimal.NewFromInt(10)},
			wantErr: model.ErrAccountInactive,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), model.TxWithdrawal, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := svc.Submit(context.Background(), model.TxDeposit, funding.Request{
			CustomerID: 1, AccountNo: "10001", Amount: decimal.Zero,
		})
		if err == nil {
			t.Fatal("expected error for zero amount")
		}
	})
}

func TestComplete_ApproveDeposit(t *testing.T) {
	ms := store.NewMemoryStore()
	seedAccount(t, ms, 1, "10001", 100, true)
	svc := funding.NewService(ms)

	txn, err := svc.Submit(context.Background(), model.TxDeposit, funding.Request{
		CustomerID: 1, AccountNo: "10001", Amount: decimal.NewFromInt(25),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	done, err := svc.Complete(context.Background(), funding.CompleteRequest{
		TransactionID: txn.TransactionID,
		Approve:       true,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.TxCompleted {
		t.Errorf("expected COMPLETED, got %s", done.Status)
	}
	acct, _ := ms.FindAccountByCurrency(context.Background(), 1, "USD")
	if !acct.Balance.Equal(decimal.NewFromInt(125)) {
		t.Errorf("expected balance 125, got %s", acct.Balance)
	}
}

func TestComplete_ApproveWithdrawalDebits(t *testing.T) {
	ms := store.NewMemoryStore()
	seedAccount(t, ms, 1, "10001", 100, true)
	svc := funding.NewService(ms)

	txn, _ := svc.Submit(context.Background(), model.TxWithdrawal, funding.Request{
		CustomerID: 1, AccountNo: "10001", Amount: decimal.NewFromInt(30),
	})
	if _, err := svc.Complete(context.Background(), funding.CompleteRequest{
		TransactionID: txn.TransactionID,
		Approve:       true,
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	acct, _ := ms.FindAccountByCurrency(context.Background(), 1, "USD")
	if !acct.Balance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("expected balance 70, got %s", acct.Balance)
	}
}

func TestComplete_RejectLeavesBalance(t *testing.T) {
	ms := store.NewMemoryStore()
	seedAccount(t, ms, 1, "10001", 100, true)
	svc := funding.NewService(ms)

	txn, _ := svc.Submit(context.Background(), model.TxDeposit, funding.Request{
		CustomerID: 1, AccountNo: "10001", Amount: decimal.NewFromInt(25),
	})
	done, err := svc.Complete(context.Background(), funding.CompleteRequest{
		TransactionID: txn.TransactionID,
		Approve:       false,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.TxRejected {
		t.Errorf("expected REJECTED, got %s", done.Status)
	}
	acct, _ := ms.FindAccountByCurrency(context.Background(), 1, "USD")
	if !acct.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("rejection must not move the balance, got %s", acct.Balance)
	}
}

func TestComplete_NotRepeatable(t *testing.T) {
	ms := store.NewMemoryStore()
	seedAccount(t, ms, 1, "10001", 100, true)
	svc := funding.NewService(ms)

	txn, _ := svc.Submit(context.Background(), model.TxDeposit, funding.Request{
		CustomerID: 1, AccountNo: "10001", Amount: decimal.NewFromInt(25),
	})
	if _, err := svc.Complete(context.Background(), funding.CompleteRequest{
		TransactionID: txn.TransactionID, Approve: true,
	}); err != nil {
		t.Fatalf("first complete: %v", err)
	}

	if _, err := svc.Complete(context.Background(), funding.CompleteRequest{
		TransactionID: txn.TransactionID, Approve: true,
	}); err == nil {
		t.Fatal("completing a completed transaction must fail")
	}
	acct, _ := ms.FindAccountByCurrency(context.Background(), 1, "USD")
	if !acct.Balance.Equal(decimal.NewFromInt(125)) {
		t.Errorf("double completion must not apply twice, got %s", acct.Balance)
	}
}

func TestRequestDeposit_HTTP(t *testing.T) {
	ms := store.NewMemoryStore()
	seedAccount(t, ms, 1, "10001", 100, true)
	svc := funding.NewService(ms)

	body, _ := json.Marshal(funding.Request{
		CustomerID: 1, AccountNo: "10001", Amount: decimal.NewFromInt(25),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/deposit", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	svc.RequestDeposit(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Missing customer id is treated as unauthenticated.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/transactions/deposit", bytes.NewBufferString(`{"accountNo":"10001","amount":"5"}`))
	rec = httptest.NewRecorder()
	svc.RequestDeposit(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
