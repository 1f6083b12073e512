package event

import (
	"time"

	"github.com/google/uuid"
)

// FulfillBatch is the operator command that settles a batch against an
// available fiat amount. The core converts the fiat amount to
// redeemable tokens at the current NAV and distributes fully or
// pro-rata across the batch's participants.
type FulfillBatch struct {
	FulfillmentID uuid.UUID
	Operator      uuid.UUID
	Batch         int64
	FiatAmount    int64 // Fixed-point, fiat scale
	Sequence      int64
	Timestamp     time.Time
}

func (f *FulfillBatch) IdempotencyKey() string {
	return f.FulfillmentID.String()
}

func (f *FulfillBatch) EventType() EventType {
	return EventTypeFulfillBatch
}

func (f *FulfillBatch) Caller() uuid.UUID {
	return f.Operator
}

func (f *FulfillBatch) BatchIndex() *int64 {
	return &f.Batch
}

func (f *FulfillBatch) SourceSequence() int64 {
	return f.Sequence
}

// SettlementExecuted is the outbound record emitted after a
// fulfillment attempt settles tokens against a batch.
type SettlementExecuted struct {
	FulfillmentID uuid.UUID `json:"fulfillment_id"`
	Batch         int64     `json:"batch"`
	TokensSettled int64     `json:"tokens_settled"`
	FiatDisbursed int64     `json:"fiat_disbursed"`
	PayoutUnits   int64     `json:"payout_units"`
	FullyClosed   bool      `json:"fully_closed"`
	Timestamp     time.Time `json:"timestamp"`
}
