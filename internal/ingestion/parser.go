package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"RedeemLedger/internal/event"
)

// ParseRawEvent converts a RawEvent (JSON bytes + command type string)
// into a typed event.Event. The ingestion shell validates, parses, and
// converts raw commands before sending to the settlement core.
func ParseRawEvent(raw RawEvent, eventType string) (event.Event, error) {
	switch eventType {
	case "BatchOpened":
		return parseBatchOpened(raw.Data)
	case "RedemptionRequested":
		return parseRedemptionRequested(raw.Data)
	case "RedemptionCancelled":
		return parseRedemptionCancelled(raw.Data)
	case "FulfillBatch":
		return parseFulfillBatch(raw.Data)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

// --- JSON wire formats ---
// Field names use snake_case to match upstream producers.

type batchOpenedJSON struct {
	OperationID string `json:"operation_id"`
	Operator    string `json:"operator"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseBatchOpened(data []byte) (*event.BatchOpened, error) {
	var j batchOpenedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse BatchOpened: %w", err)
	}

	operationID, err := uuid.Parse(j.OperationID)
	if err != nil {
		return nil, fmt.Errorf("parse operation_id: %w", err)
	}
	operator, err := uuid.Parse(j.Operator)
	if err != nil {
		return nil, fmt.Errorf("parse operator: %w", err)
	}

	return &event.BatchOpened{
		OperationID: operationID,
		Operator:    operator,
		Sequence:    j.Sequence,
		Timestamp:   time.UnixMicro(j.TimestampUs),
	}, nil
}

type redemptionRequestedJSON struct {
	RequestID   string `json:"request_id"`
	UserID      string `json:"user_id"`
	Amount      int64  `json:"amount"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseRedemptionRequested(data []byte) (*event.RedemptionRequested, error) {
	var j redemptionRequestedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RedemptionRequested: %w", err)
	}

	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user_id: %w", err)
	}
	if j.Amount <= 0 {
		return nil, fmt.Errorf("non-positive amount: %d", j.Amount)
	}

	return &event.RedemptionRequested{
		RequestID: requestID,
		UserID:    userID,
		Amount:    j.Amount,
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type redemptionCancelledJSON struct {
	CancelID    string `json:"cancel_id"`
	UserID      string `json:"user_id"`
	Batch       int64  `json:"batch"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseRedemptionCancelled(data []byte) (*event.RedemptionCancelled, error) {
	var j redemptionCancelledJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RedemptionCancelled: %w", err)
	}

	cancelID, err := uuid.Parse(j.CancelID)
	if err != nil {
		return nil, fmt.Errorf("parse cancel_id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user_id: %w", err)
	}

	return &event.RedemptionCancelled{
		CancelID:  cancelID,
		UserID:    userID,
		Batch:     j.Batch,
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type fulfillBatchJSON struct {
	FulfillmentID string `json:"fulfillment_id"`
	Operator      string `json:"operator"`
	Batch         int64  `json:"batch"`
	FiatAmount    int64  `json:"fiat_amount"`
	Sequence      int64  `json:"sequence"`
	TimestampUs   int64  `json:"timestamp_us"`
}

func parseFulfillBatch(data []byte) (*event.FulfillBatch, error) {
	var j fulfillBatchJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse FulfillBatch: %w", err)
	}

	fulfillmentID, err := uuid.Parse(j.FulfillmentID)
	if err != nil {
		return nil, fmt.Errorf("parse fulfillment_id: %w", err)
	}
	operator, err := uuid.Parse(j.Operator)
	if err != nil {
		return nil, fmt.Errorf("parse operator: %w", err)
	}
	if j.FiatAmount <= 0 {
		return nil, fmt.Errorf("non-positive fiat_amount: %d", j.FiatAmount)
	}

	return &event.FulfillBatch{
		FulfillmentID: fulfillmentID,
		Operator:      operator,
		Batch:         j.Batch,
		FiatAmount:    j.FiatAmount,
		Sequence:      j.Sequence,
		Timestamp:     time.UnixMicro(j.TimestampUs),
	}, nil
}
