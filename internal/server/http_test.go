package server_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"RedeemLedger/internal/core"
	"RedeemLedger/internal/ingestion"
	"RedeemLedger/internal/observability"
	"RedeemLedger/internal/server"
)

// fakeCore answers every submission with a fixed verdict, standing in
// for the settlement goroutine.
type fakeCore struct {
	submitChan chan ingestion.Submission
	verdict    error
	done       chan struct{}
}

func newFakeCore(verdict error) *fakeCore {
	fc := &fakeCore{
		submitChan: make(chan ingestion.Submission, 16),
		verdict:    verdict,
		done:       make(chan struct{}),
	}
	go func() {
		for sub := range fc.submitChan {
			sub.Done(fc.verdict, false)
		}
		close(fc.done)
	}()
	return fc
}

func (fc *fakeCore) stop() {
	close(fc.submitChan)
	<-fc.done
}

type fixedSequencer struct {
	next atomic.Int64
}

func (s *fixedSequencer) Next() int64 {
	return s.next.Add(1) - 1
}

func newTestServer(t *testing.T, verdict error) (*server.Server, *fakeCore) {
	t.Helper()

	fc := newFakeCore(verdict)
	t.Cleanup(fc.stop)

	health := observability.NewHealthChecker()
	srv := server.NewServer(fc.submitChan, nil, &fixedSequencer{}, health, nil, zerolog.Nop())
	return srv, fc
}

func doJSON(t *testing.T, srv *server.Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

// ============================================================================
// Test: Command Submission
// ============================================================================

func TestOpenBatch_Applied(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doJSON(t, srv, http.MethodPost, "/v1/batches", map[string]interface{}{
		"operation_id": "550e8400-e29b-41d4-a716-446655440000",
		"operator":     "660e8400-e29b-41d4-a716-446655440001",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body: %s)", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "applied" {
		t.Errorf("status field: got %q, want applied", resp["status"])
	}
	if resp["idempotency_key"] != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("idempotency_key: got %q", resp["idempotency_key"])
	}
}

func TestSubmitRequest_Applied(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doJSON(t, srv, http.MethodPost, "/v1/requests", map[string]interface{}{
		"request_id": "550e8400-e29b-41d4-a716-446655440000",
		"user_id":    "660e8400-e29b-41d4-a716-446655440001",
		"amount":     int64(500),
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body: %s)", w.Code, w.Body.String())
	}
}

func TestSubmitRequest_InvalidUUID_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doJSON(t, srv, http.MethodPost, "/v1/requests", map[string]interface{}{
		"request_id": "not-a-uuid",
		"user_id":    "660e8400-e29b-41d4-a716-446655440001",
		"amount":     int64(500),
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}
}

func TestSubmitRequest_NegativeAmount_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doJSON(t, srv, http.MethodPost, "/v1/requests", map[string]interface{}{
		"request_id": "550e8400-e29b-41d4-a716-446655440000",
		"user_id":    "660e8400-e29b-41d4-a716-446655440001",
		"amount":     int64(-5),
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}
}

func TestCancelRequest_InvalidBatchParam_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doJSON(t, srv, http.MethodPost, "/v1/batches/abc/cancel", map[string]interface{}{
		"cancel_id": "550e8400-e29b-41d4-a716-446655440000",
		"user_id":   "660e8400-e29b-41d4-a716-446655440001",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}
}

func TestFulfillBatch_Applied(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doJSON(t, srv, http.MethodPost, "/v1/batches/0/fulfill", map[string]interface{}{
		"fulfillment_id": "550e8400-e29b-41d4-a716-446655440000",
		"operator":       "660e8400-e29b-41d4-a716-446655440001",
		"fiat_amount":    int64(300),
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
}

// ============================================================================
// Test: Error Mapping
// ============================================================================

func TestCoreErrorMapping(t *testing.T) {
	cases := []struct {
		verdict error
		want    int
	}{
		{core.ErrUnauthorized, http.StatusForbidden},
		{core.ErrInvalidBatchState, http.StatusConflict},
		{core.ErrInsufficientLiquidity, http.StatusPaymentRequired},
		{core.ErrInsufficientTokenBalance, http.StatusUnprocessableEntity},
		{core.ErrInsufficientPending, http.StatusUnprocessableEntity},
		{core.ErrTransferFailure, http.StatusBadGateway},
		{core.ErrSequenceGap, http.StatusConflict},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.verdict.Error(), func(t *testing.T) {
			srv, _ := newTestServer(t, fmt.Errorf("apply: %w", tc.verdict))

			w := doJSON(t, srv, http.MethodPost, "/v1/batches", map[string]interface{}{
				"operation_id": "550e8400-e29b-41d4-a716-446655440000",
				"operator":     "660e8400-e29b-41d4-a716-446655440001",
			})

			if w.Code != tc.want {
				t.Errorf("status: got %d, want %d", w.Code, tc.want)
			}
		})
	}
}

// ============================================================================
// Test: Health Endpoints
// ============================================================================

func TestHealthz_Alive(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
}

func TestReadyz_NotReadyUntilSet(t *testing.T) {
	fc := newFakeCore(nil)
	t.Cleanup(fc.stop)

	health := observability.NewHealthChecker()
	srv := server.NewServer(fc.submitChan, nil, &fixedSequencer{}, health, nil, zerolog.Nop())

	w := doJSON(t, srv, http.MethodGet, "/readyz", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status before ready: got %d, want 503", w.Code)
	}

	health.SetReady(true)
	w = doJSON(t, srv, http.MethodGet, "/readyz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status after ready: got %d, want 200", w.Code)
	}
}
