package state

import (
	"github.com/google/uuid"
)

// Batch is the metadata record for one redemption cohort.
// Participants preserves first-request insertion order with no
// duplicates — settlement walks it in order, so payout ordering is
// deterministic across re-execution of the same batch state.
type Batch struct {
	Index        int64
	Participants []uuid.UUID
	PendingTotal int64
	Version      int64
}

// IsSettled reports whether the batch is permanently drained.
// A batch with zero pending total is never mutated again.
func (b *Batch) IsSettled() bool {
	return b.PendingTotal == 0
}

func (b *Batch) hasParticipant(userID uuid.UUID) bool {
	for _, p := range b.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
