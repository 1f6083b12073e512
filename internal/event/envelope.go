package event

import (
	"time"

	"github.com/google/uuid"
)

// EventType discriminator for command and outbound payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeBatchOpened
	EventTypeRedemptionRequested
	EventTypeRedemptionCancelled
	EventTypeFulfillBatch
	EventTypeSettlementExecuted
)

// EventEnvelope wraps every applied command in the log
type EventEnvelope struct {
	// Global monotonic sequence assigned by the core
	Sequence int64

	// Stable idempotency key from upstream
	IdempotencyKey string

	// Event type discriminator
	EventType EventType

	// Target batch index (nil for BatchOpened, which allocates one)
	BatchIndex *int64

	// Versioned input timestamp (NOT wall-clock)
	Timestamp time.Time

	// Upstream sequence for ordering validation
	SourceSequence int64

	// JSON-encoded event-specific data
	Payload []byte

	// SHA-256 of state AFTER applying this event
	StateHash [32]byte

	// Previous event's state hash (chain integrity)
	PrevHash [32]byte
}

// Event is the interface all command payloads must implement
type Event interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType

	// Caller returns the identity the authorizer checks
	Caller() uuid.UUID

	// BatchIndex returns the target batch (nil when not batch-scoped)
	BatchIndex() *int64

	// SourceSequence returns upstream ordering key
	SourceSequence() int64
}

func (et EventType) String() string {
	switch et {
	case EventTypeBatchOpened:
		return "BatchOpened"
	case EventTypeRedemptionRequested:
		return "RedemptionRequested"
	case EventTypeRedemptionCancelled:
		return "RedemptionCancelled"
	case EventTypeFulfillBatch:
		return "FulfillBatch"
	case EventTypeSettlementExecuted:
		return "SettlementExecuted"
	default:
		return "Unknown"
	}
}
