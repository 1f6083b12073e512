package event

import (
	"time"

	"github.com/google/uuid"
)

// BatchOpened is the operator command that appends a new open batch
// to the redemption queue. The batch index is allocated by the core
// (current tail) when the command is applied.
type BatchOpened struct {
	OperationID uuid.UUID
	Operator    uuid.UUID
	Sequence    int64
	Timestamp   time.Time
}

func (b *BatchOpened) IdempotencyKey() string {
	return b.OperationID.String()
}

func (b *BatchOpened) EventType() EventType {
	return EventTypeBatchOpened
}

func (b *BatchOpened) Caller() uuid.UUID {
	return b.Operator
}

func (b *BatchOpened) BatchIndex() *int64 {
	return nil // Allocated on apply
}

func (b *BatchOpened) SourceSequence() int64 {
	return b.Sequence
}
