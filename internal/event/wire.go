package event

import (
	"encoding/json"
	"fmt"
)

// MarshalWire encodes a command in its upstream JSON wire format. The
// event log stores this form so replay can re-parse commands with the
// same path live ingestion uses.
func MarshalWire(evt Event) ([]byte, error) {
	switch e := evt.(type) {
	case *BatchOpened:
		return json.Marshal(map[string]interface{}{
			"operation_id": e.OperationID.String(),
			"operator":     e.Operator.String(),
			"sequence":     e.Sequence,
			"timestamp_us": e.Timestamp.UnixMicro(),
		})
	case *RedemptionRequested:
		return json.Marshal(map[string]interface{}{
			"request_id":   e.RequestID.String(),
			"user_id":      e.UserID.String(),
			"amount":       e.Amount,
			"sequence":     e.Sequence,
			"timestamp_us": e.Timestamp.UnixMicro(),
		})
	case *RedemptionCancelled:
		return json.Marshal(map[string]interface{}{
			"cancel_id":    e.CancelID.String(),
			"user_id":      e.UserID.String(),
			"batch":        e.Batch,
			"sequence":     e.Sequence,
			"timestamp_us": e.Timestamp.UnixMicro(),
		})
	case *FulfillBatch:
		return json.Marshal(map[string]interface{}{
			"fulfillment_id": e.FulfillmentID.String(),
			"operator":       e.Operator.String(),
			"batch":          e.Batch,
			"fiat_amount":    e.FiatAmount,
			"sequence":       e.Sequence,
			"timestamp_us":   e.Timestamp.UnixMicro(),
		})
	default:
		return nil, fmt.Errorf("unknown event type: %T", evt)
	}
}
