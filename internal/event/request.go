package event

import (
	"time"

	"github.com/google/uuid"
)

// RedemptionRequested is a user command to place a redemption request
// against the currently open batch. Amount is redemption-token base
// units, escrowed on apply.
type RedemptionRequested struct {
	RequestID uuid.UUID
	UserID    uuid.UUID
	Amount    int64 // Fixed-point, token scale
	Sequence  int64
	Timestamp time.Time
}

func (r *RedemptionRequested) IdempotencyKey() string {
	return r.RequestID.String()
}

func (r *RedemptionRequested) EventType() EventType {
	return EventTypeRedemptionRequested
}

func (r *RedemptionRequested) Caller() uuid.UUID {
	return r.UserID
}

func (r *RedemptionRequested) BatchIndex() *int64 {
	return nil // Always targets the open batch (tail-1)
}

func (r *RedemptionRequested) SourceSequence() int64 {
	return r.Sequence
}

// RedemptionCancelled is a user command to withdraw the full pending
// amount of their request in any unsettled batch.
type RedemptionCancelled struct {
	CancelID  uuid.UUID
	UserID    uuid.UUID
	Batch     int64
	Sequence  int64
	Timestamp time.Time
}

func (r *RedemptionCancelled) IdempotencyKey() string {
	return r.CancelID.String()
}

func (r *RedemptionCancelled) EventType() EventType {
	return EventTypeRedemptionCancelled
}

func (r *RedemptionCancelled) Caller() uuid.UUID {
	return r.UserID
}

func (r *RedemptionCancelled) BatchIndex() *int64 {
	return &r.Batch
}

func (r *RedemptionCancelled) SourceSequence() int64 {
	return r.Sequence
}
