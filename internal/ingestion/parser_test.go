package ingestion_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"RedeemLedger/internal/event"
	"RedeemLedger/internal/ingestion"
)

func rawFromJSON(t *testing.T, v interface{}) ingestion.RawEvent {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawEvent{
		Subject:   "test",
		Data:      data,
		Timestamp: time.Now(),
		AckFunc:   func() {},
		NakFunc:   func() {},
	}
}

func TestParseBatchOpened(t *testing.T) {
	payload := map[string]interface{}{
		"operation_id": "550e8400-e29b-41d4-a716-446655440000",
		"operator":     "660e8400-e29b-41d4-a716-446655440001",
		"sequence":     int64(7),
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "BatchOpened")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	bo, ok := evt.(*event.BatchOpened)
	if !ok {
		t.Fatalf("expected *event.BatchOpened, got %T", evt)
	}

	if bo.Operator.String() != "660e8400-e29b-41d4-a716-446655440001" {
		t.Errorf("operator: got %s", bo.Operator)
	}
	if bo.Sequence != 7 {
		t.Errorf("sequence: got %d, want 7", bo.Sequence)
	}
	if bo.Timestamp.UnixMicro() != 1700000000000000 {
		t.Errorf("timestamp: got %d", bo.Timestamp.UnixMicro())
	}
	if bo.EventType() != event.EventTypeBatchOpened {
		t.Errorf("event type: got %v, want BatchOpened", bo.EventType())
	}
	if bo.BatchIndex() != nil {
		t.Error("BatchOpened allocates a batch, its target index must be nil")
	}
}

func TestParseRedemptionRequested(t *testing.T) {
	payload := map[string]interface{}{
		"request_id":   "550e8400-e29b-41d4-a716-446655440000",
		"user_id":      "660e8400-e29b-41d4-a716-446655440001",
		"amount":       int64(2_500_000),
		"sequence":     int64(3),
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "RedemptionRequested")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	rr, ok := evt.(*event.RedemptionRequested)
	if !ok {
		t.Fatalf("expected *event.RedemptionRequested, got %T", evt)
	}

	if rr.Amount != 2_500_000 {
		t.Errorf("amount: got %d, want 2_500_000", rr.Amount)
	}
	if rr.Caller() != rr.UserID {
		t.Error("caller must be the requesting user")
	}
	if rr.SourceSequence() != 3 {
		t.Errorf("source sequence: got %d, want 3", rr.SourceSequence())
	}
}

func TestParseRedemptionRequested_NonPositiveAmount_Fails(t *testing.T) {
	for _, amount := range []int64{0, -100} {
		payload := map[string]interface{}{
			"request_id":   "550e8400-e29b-41d4-a716-446655440000",
			"user_id":      "660e8400-e29b-41d4-a716-446655440001",
			"amount":       amount,
			"sequence":     int64(0),
			"timestamp_us": int64(0),
		}

		raw := rawFromJSON(t, payload)
		if _, err := ingestion.ParseRawEvent(raw, "RedemptionRequested"); err == nil {
			t.Errorf("amount %d should be rejected", amount)
		}
	}
}

func TestParseRedemptionCancelled(t *testing.T) {
	payload := map[string]interface{}{
		"cancel_id":    "550e8400-e29b-41d4-a716-446655440000",
		"user_id":      "660e8400-e29b-41d4-a716-446655440001",
		"batch":        int64(4),
		"sequence":     int64(9),
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "RedemptionCancelled")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	rc, ok := evt.(*event.RedemptionCancelled)
	if !ok {
		t.Fatalf("expected *event.RedemptionCancelled, got %T", evt)
	}

	if rc.Batch != 4 {
		t.Errorf("batch: got %d, want 4", rc.Batch)
	}
	if idx := rc.BatchIndex(); idx == nil || *idx != 4 {
		t.Error("batch index must point at the targeted batch")
	}
}

func TestParseFulfillBatch(t *testing.T) {
	payload := map[string]interface{}{
		"fulfillment_id": "550e8400-e29b-41d4-a716-446655440000",
		"operator":       "660e8400-e29b-41d4-a716-446655440001",
		"batch":          int64(2),
		"fiat_amount":    int64(150_000_000),
		"sequence":       int64(11),
		"timestamp_us":   int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "FulfillBatch")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	fb, ok := evt.(*event.FulfillBatch)
	if !ok {
		t.Fatalf("expected *event.FulfillBatch, got %T", evt)
	}

	if fb.FiatAmount != 150_000_000 {
		t.Errorf("fiat_amount: got %d, want 150_000_000", fb.FiatAmount)
	}
	if fb.Batch != 2 {
		t.Errorf("batch: got %d, want 2", fb.Batch)
	}
	if fb.Caller() != fb.Operator {
		t.Error("caller must be the fulfilling operator")
	}
}

func TestParseFulfillBatch_NonPositiveFiat_Fails(t *testing.T) {
	payload := map[string]interface{}{
		"fulfillment_id": "550e8400-e29b-41d4-a716-446655440000",
		"operator":       "660e8400-e29b-41d4-a716-446655440001",
		"batch":          int64(0),
		"fiat_amount":    int64(0),
		"sequence":       int64(0),
		"timestamp_us":   int64(0),
	}

	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawEvent(raw, "FulfillBatch"); err == nil {
		t.Fatal("expected error for zero fiat_amount")
	}
}

func TestParseUnknownEventType_Fails(t *testing.T) {
	raw := ingestion.RawEvent{Data: []byte(`{}`)}
	_, err := ingestion.ParseRawEvent(raw, "NonExistentType")
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestParseInvalidJSON_Fails(t *testing.T) {
	raw := ingestion.RawEvent{Data: []byte(`{invalid json`)}
	_, err := ingestion.ParseRawEvent(raw, "RedemptionRequested")
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseInvalidUUID_Fails(t *testing.T) {
	payload := map[string]interface{}{
		"request_id":   "not-a-uuid",
		"user_id":      "also-not-a-uuid",
		"amount":       int64(1),
		"sequence":     int64(0),
		"timestamp_us": int64(0),
	}

	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawEvent(raw, "RedemptionRequested"); err == nil {
		t.Fatal("expected error for invalid UUID")
	}
}

// The event log stores the wire form of each command; replay must be
// able to re-parse what MarshalWire produced and land on the same event.
func TestMarshalWire_ParseRoundtrip(t *testing.T) {
	events := []event.Event{
		&event.BatchOpened{
			OperationID: mustUUID("550e8400-e29b-41d4-a716-446655440000"),
			Operator:    mustUUID("660e8400-e29b-41d4-a716-446655440001"),
			Sequence:    1,
			Timestamp:   time.UnixMicro(1700000000000000),
		},
		&event.RedemptionRequested{
			RequestID: mustUUID("550e8400-e29b-41d4-a716-446655440002"),
			UserID:    mustUUID("660e8400-e29b-41d4-a716-446655440003"),
			Amount:    500,
			Sequence:  2,
			Timestamp: time.UnixMicro(1700000000000001),
		},
		&event.RedemptionCancelled{
			CancelID:  mustUUID("550e8400-e29b-41d4-a716-446655440004"),
			UserID:    mustUUID("660e8400-e29b-41d4-a716-446655440003"),
			Batch:     0,
			Sequence:  3,
			Timestamp: time.UnixMicro(1700000000000002),
		},
		&event.FulfillBatch{
			FulfillmentID: mustUUID("550e8400-e29b-41d4-a716-446655440005"),
			Operator:      mustUUID("660e8400-e29b-41d4-a716-446655440001"),
			Batch:         0,
			FiatAmount:    300,
			Sequence:      4,
			Timestamp:     time.UnixMicro(1700000000000003),
		},
	}

	for _, evt := range events {
		data, err := event.MarshalWire(evt)
		if err != nil {
			t.Fatalf("marshal %s: %v", evt.EventType(), err)
		}

		parsed, err := ingestion.ParseRawEvent(ingestion.RawEvent{Data: data}, evt.EventType().String())
		if err != nil {
			t.Fatalf("re-parse %s: %v", evt.EventType(), err)
		}

		if parsed.IdempotencyKey() != evt.IdempotencyKey() {
			t.Errorf("%s: idempotency key changed across the wire", evt.EventType())
		}
		if parsed.SourceSequence() != evt.SourceSequence() {
			t.Errorf("%s: source sequence changed across the wire", evt.EventType())
		}
	}
}

func mustUUID(s string) uuid.UUID {
	return uuid.MustParse(s)
}
