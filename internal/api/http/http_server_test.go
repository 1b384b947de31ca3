package http

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fairdex-labs/engine/internal/adapter/in_memory"
	"github.com/fairdex-labs/engine/internal/api/dto"
	"github.com/fairdex-labs/engine/internal/core"
	"github.com/fairdex-labs/engine/internal/domain"
)

func newTestServer(t *testing.T) (*gin.Engine, *core.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	eng := core.NewEngine(core.Options{
		CommitWindow: time.Hour,
		RevealWindow: time.Hour,
		MinStake:     decimal.NewFromInt(1),
	}, in_memory.NewMemoryRepo(), in_memory.NewCache(), nil, nil, zap.NewNop())
	eng.Start(t.Context(), time.Now())

	s := NewHTTPServer(eng, nil)
	return s.Router(time.Nanosecond), eng
}

func revealPayload(req dto.RevealRequest) domain.OrderPayload {
	return domain.OrderPayload{
		Side:     domain.Side(req.Side),
		Type:     domain.OrderType(req.Type),
		Price:    req.Price,
		Quantity: req.Quantity,
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path, trader string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if trader != "" {
		req.Header.Set("X-Trader-ID", trader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHTTP_TraderHeaderRequired(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/orderbook", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without X-Trader-ID, got %d", w.Code)
	}
}

func TestHTTP_CommitmentLifecycle(t *testing.T) {
	r, _ := newTestServer(t)

	payload := dto.RevealRequest{
		Side: dto.Buy, Type: dto.GTC, Price: 50, Quantity: 10,
		Nonce: hex.EncodeToString([]byte("n")),
	}
	hash := core.CommitmentHash(revealPayload(payload), []byte("n"))

	w := doJSON(t, r, http.MethodPost, "/commitments", "alice", dto.SubmitCommitmentRequest{
		Trader: "alice",
		Hash:   hex.EncodeToString(hash[:]),
		Stake:  decimal.NewFromInt(5),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit commitment: %d %s", w.Code, w.Body.String())
	}
	var resp dto.SubmitCommitmentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CommitmentID == "" || resp.BatchID != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}

	// Duplicate commitment for the same trader and batch.
	w = doJSON(t, r, http.MethodPost, "/commitments", "alice", dto.SubmitCommitmentRequest{
		Trader: "alice",
		Hash:   hex.EncodeToString(hash[:]),
		Stake:  decimal.NewFromInt(5),
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate commitment: expected 409, got %d", w.Code)
	}

	// Revealing now fails: the commit window is still open.
	w = doJSON(t, r, http.MethodPost, "/commitments/"+resp.CommitmentID+"/reveal", "alice", payload)
	if w.Code != http.StatusBadRequest {
		t.Errorf("early reveal: expected 400, got %d %s", w.Code, w.Body.String())
	}
}

func TestHTTP_BadCommitmentHash(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/commitments", "alice", dto.SubmitCommitmentRequest{
		Trader: "alice",
		Hash:   "zz",
		Stake:  decimal.NewFromInt(5),
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed hash, got %d", w.Code)
	}
}

func TestHTTP_OrderSubmitAndQuery(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/orders", "alice", dto.SubmitOrderRequest{
		Trader: "alice", Side: dto.Buy, Type: dto.GTC, Price: 99, Quantity: 10,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit order: %d %s", w.Code, w.Body.String())
	}
	var resp dto.SubmitOrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Remaining != 10 || resp.Status != "OPEN" {
		t.Errorf("unexpected response %+v", resp)
	}

	w = doJSON(t, r, http.MethodGet, "/orders/"+resp.OrderID, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get order: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/orders/unknown-id", "alice", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown order: expected 404, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/orders/cancel", "alice", dto.CancelOrderRequest{
		OrderID: resp.OrderID, Trader: "alice",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", w.Code, w.Body.String())
	}
}

func TestHTTP_InvalidOrderRejected(t *testing.T) {
	r, _ := newTestServer(t)

	cases := []dto.SubmitOrderRequest{
		{Trader: "alice", Side: "SIDEWAYS", Type: dto.GTC, Price: 99, Quantity: 10},
		{Trader: "alice", Side: dto.Buy, Type: "AON", Price: 99, Quantity: 10},
		{Trader: "alice", Side: dto.Buy, Type: dto.GTC, Price: 99, Quantity: 0},
		{Trader: "alice", Side: dto.Buy, Type: dto.GTC, Price: 0, Quantity: 10},
	}
	for i, req := range cases {
		if w := doJSON(t, r, http.MethodPost, "/orders", "alice", req); w.Code != http.StatusBadRequest {
			t.Errorf("case %d: expected 400, got %d", i, w.Code)
		}
	}
}

func TestHTTP_CurrentBatch(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/batches/current", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("current batch: %d", w.Code)
	}
	var resp dto.GetBatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Batch.ID != 1 || resp.Batch.State != "COMMITTING" {
		t.Errorf("unexpected batch %+v", resp.Batch)
	}
	if resp.Batch.ClearingPrice != nil {
		t.Error("uncleared batch must not expose a clearing price")
	}
}

func TestHTTP_TradesCarryProtoTimestamps(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/orders", "bob", dto.SubmitOrderRequest{
		Trader: "bob", Side: dto.Sell, Type: dto.GTC, Price: 50, Quantity: 10,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit sell: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/orders", "alice", dto.SubmitOrderRequest{
		Trader: "alice", Side: dto.Buy, Type: dto.GTC, Price: 50, Quantity: 10,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit buy: %d %s", w.Code, w.Body.String())
	}
	var resp dto.SubmitOrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, r, http.MethodGet, "/orders/"+resp.OrderID+"/trades", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get trades: %d %s", w.Code, w.Body.String())
	}
	var tr dto.GetTradesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode trades: %v", err)
	}
	if len(tr.Trades) != 1 || tr.Trades[0].Price != 50 {
		t.Fatalf("unexpected trades %+v", tr.Trades)
	}
	if ts := tr.Trades[0].Timestamp; ts == nil || ts.GetSeconds() == 0 {
		t.Errorf("expected a populated trade timestamp, got %v", ts)
	}
}
