package state

import (
	"github.com/google/uuid"
)

// RequestKey addresses a redemption request by (batch, user).
// Requests live in a single top-level map on the QueueManager rather
// than nested inside each batch record, so snapshots can enumerate
// them directly.
type RequestKey struct {
	Batch  int64
	UserID uuid.UUID
}

// RedemptionRequest is the per-(batch, user) ledger record.
// Requested is the original escrowed amount and is immutable once set;
// Pending is the amount still outstanding and only ever decreases.
// Invariant: 0 <= Pending <= Requested.
type RedemptionRequest struct {
	UserID    uuid.UUID
	Batch     int64
	Requested int64
	Pending   int64
	Version   int64
}
