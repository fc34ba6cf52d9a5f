package trade_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/coinvex/trade-engine/internal/model"
	"github.com/coinvex/trade-engine/internal/store"
	"github.com/coinvex/trade-engine/internal/trade"
)

func newService(ms *store.MemoryStore, draw func() float64) *trade.Service {
	admission := newAdmission(ms, &stubPrices{})
	resolver := trade.NewResolver(ms, 0.5, draw)
	settlement := trade.NewSettlement(ms)
	return trade.NewService(admission, resolver, settlement, nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRequestTrade_Created(t *testing.T) {
	ms := store.NewMemoryStore()
	seedAccount(t, ms, 1, "USD", 100)
	svc := newService(ms, fixedDraw(0.1))

	rec := postJSON(t, svc.RequestTrade, "/api/v1/trade-request", trade.TradeRequest{
		CustomerID: 1,
		TradeType:  "LONG",
		Period:     60,
		Quantity:   50,
		Currency:   "usd",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var got model.Trade
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != model.TradePending {
		t.Errorf("expected PENDING, got %s", got.Status)
	}
	if got.Quantity != 50 || got.Period != 60 {
		t.Errorf("request terms altered: quantity=%d period=%d", got.Quantity, got.Period)
	}
}

func TestRequestTrade_InsufficientBalance(t *testing.T) {
	ms := store.NewMemoryStore()
	seedAccount(t, ms, 1, "USD", 100)
	svc := newService(ms, fixedDraw(0.1))

	rec := postJSON(t, svc.RequestTrade, "/api/v1/trade-request", trade.TradeRequest{
		CustomerID: 1,
		TradeType:  "LONG",
		Period:     60,
		Quantity:   150,
		Currency:   "USD",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	acct, _ := ms.FindAccountByCurrency(context.Background(), 1, "USD")
	if !acct.Balance.Equal(d(100)) {
		t.Errorf("rejection must not touch the balance, got %s", acct.Balance)
	}
}

func TestRequestTrade_BadBody(t *testing.T) {
	ms := store.NewMemoryStore()
	svc := newService(ms, fixedDraw(0.1))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/trade-request", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	svc.RequestTrade(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// Full round trip: request at balance 100, settle as a win, balance lands
// at 140; a second fresh trade settled as a loss lands at 90.
func TestTradeRoundTrip(t *testing.T) {
	ms := store.NewMemoryStore()
	seedAccount(t, ms, 1, "USD", 100)
	seedSetting(t, ms, 60, model.TradeLong, 1.0, 80)

	draw := 0.1 // win first, then loss
	svc := newService(ms, func() float64 { return draw })

	settle := func(t *testing.T, tradeID int64, wantProfit decimal.Decimal) {
		t.Helper()
		rec := postJSON(t, svc.SettleTrade, "/api/v1/trade-success", trade.SettleRequest{
			CustomerID: 1,
			TradeID:    tradeID,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp trade.SettleResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !resp.Success {
			t.Error("settlement response must report success")
		}
		if !resp.Profit.Equal(wantProfit) {
			t.Errorf("expected profit %s, got %s", wantProfit, resp.Profit)
		}
	}

	request := func(t *testing.T) int64 {
		t.Helper()
		rec := postJSON(t, svc.RequestTrade, "/api/v1/trade-request", trade.TradeRequest{
			CustomerID: 1,
			TradeType:  "LONG",
			Period:     60,
			Quantity:   50,
			Currency:   "USD",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var tr model.Trade
		if err := json.NewDecoder(rec.Body).Decode(&tr); err != nil {
			t.Fatalf("decode trade: %v", err)
		}
		return tr.ID
	}

	first := request(t)
	settle(t, first, d(40))

	acct, _ := ms.FindAccountByCurrency(context.Background(), 1, "USD")
	if !acct.Balance.Equal(d(140)) {
		t.Fatalf("expected balance 140 after win, got %s", acct.Balance)
	}

	draw = 0.9
	second := request(t)
	settle(t, second, d(-50))

	acct, _ = ms.FindAccountByCurrency(context.Background(), 1, "USD")
	if !acct.Balance.Equal(d(90)) {
		t.Fatalf("expected balance 90 after loss, got %s", acct.Balance)
	}
}

func TestSettleTrade_UnknownTrade(t *testing.T) {
	ms := store.NewMemoryStore()
	seedAccount(t, ms, 1, "USD", 100)
	svc := newService(ms, fixedDraw(0.1))

	rec := postJSON(t, svc.SettleTrade, "/api/v1/trade-success", trade.SettleRequest{
		CustomerID: 1,
		TradeID:    42,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSettleTrade_MissingConfiguration(t *testing.T) {
	ms := store.NewMemoryStore()
	account := seedAccount(t, ms, 1, "USD", 100)
	tr := seedTrade(t, ms, 1, account.ID, 50)
	svc := newService(ms, fixedDraw(0.1))

	rec := postJSON(t, svc.SettleTrade, "/api/v1/trade-success", trade.SettleRequest{
		CustomerID: 1,
		TradeID:    tr.ID,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without odds configuration, got %d", rec.Code)
	}
	stored, _ := ms.GetTrade(context.Background(), tr.ID, 1)
	if stored.Status != model.TradePending {
		t.Errorf("failed settlement must leave the trade PENDING, got %s", stored.Status)
	}
}

func TestSettleTrade_InvalidIDs(t *testing.T) {
	ms := store.NewMemoryStore()
	svc := newService(ms, fixedDraw(0.1))

	for _, req := range []trade.SettleRequest{
		{CustomerID: 0, TradeID: 1},
		{CustomerID: 1, TradeID: 0},
	} {
		rec := postJSON(t, svc.SettleTrade, "/api/v1/trade-success", req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%+v: expected 400, got %d", req, rec.Code)
		}
	}
}

func TestSettleTrade_RollbackKeepsRetryable(t *testing.T) {
	ms := store.NewMemoryStore()
	account := seedAccount(t, ms, 1, "USD", 100)
	tr := seedTrade(t, ms, 1, account.ID, 50)
	seedSetting(t, ms, 60, model.TradeLong, 1.0, 80)
	ms.FailIncrementBalance = fmt.Errorf("transient write failure")
	svc := newService(ms, fixedDraw(0.1))

	rec := postJSON(t, svc.SettleTrade, "/api/v1/trade-success", trade.SettleRequest{
		CustomerID: 1,
		TradeID:    tr.ID,
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on settlement failure, got %d", rec.Code)
	}

	// First attempt rolled back; the injected failure is consumed, so the
	// retry goes through.
	rec = postJSON(t, svc.SettleTrade, "/api/v1/trade-success", trade.SettleRequest{
		CustomerID: 1,
		TradeID:    tr.ID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("retry after rollback must succeed, got %d: %s", rec.Code, rec.Body.String())
	}
	acct, _ := ms.FindAccountByCurrency(context.Background(), 1, "USD")
	if !acct.Balance.Equal(d(140)) {
		t.Errorf("expected balance 140 after retried win, got %s", acct.Balance)
	}
}
