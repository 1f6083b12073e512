package state

import (
	"fmt"

	"github.com/google/uuid"
)

// QueueManager owns the batch sequence and the request records.
// Not thread-safe — only accessed from the single-threaded core.
//
// head is the settled frontier: every batch below it has zero pending
// total and is closed forever. tail is one past the most recently
// opened batch; only tail-1 accepts new requests. head <= tail always,
// both start at 0 and are monotonic for the life of the ledger.
type QueueManager struct {
	batches  []*Batch
	requests map[RequestKey]*RedemptionRequest
	head     int64
	tail     int64
}

func NewQueueManager() *QueueManager {
	return &QueueManager{
		batches:  make([]*Batch, 0),
		requests: make(map[RequestKey]*RedemptionRequest),
	}
}

// Head returns the settled frontier index.
func (qm *QueueManager) Head() int64 {
	return qm.head
}

// Tail returns one past the most recently opened batch.
func (qm *QueueManager) Tail() int64 {
	return qm.tail
}

// OpenBatch appends an empty batch and returns its index.
func (qm *QueueManager) OpenBatch() int64 {
	index := qm.tail
	qm.batches = append(qm.batches, &Batch{
		Index:        index,
		Participants: make([]uuid.UUID, 0),
	})
	qm.tail++
	return index
}

// GetBatch returns the batch at index, or nil when out of range.
func (qm *QueueManager) GetBatch(index int64) *Batch {
	if index < 0 || index >= qm.tail {
		return nil
	}
	return qm.batches[index]
}

// GetRequest returns the request record for (batch, user), or nil.
func (qm *QueueManager) GetRequest(batch int64, userID uuid.UUID) *RedemptionRequest {
	return qm.requests[RequestKey{Batch: batch, UserID: userID}]
}

// HasOpenBatch reports whether a batch currently accepts requests.
func (qm *QueueManager) HasOpenBatch() bool {
	return qm.tail > qm.head
}

// OpenIndex returns the index of the batch accepting new requests.
// Only valid when HasOpenBatch() is true.
func (qm *QueueManager) OpenIndex() int64 {
	return qm.tail - 1
}

// CreateRequest registers a redemption request against the open batch.
// The caller has already escrowed amount tokens; this only mutates
// queue state. Returns the batch index the request landed in.
//
// A user may not hold two live requests in the same batch — pro-rata
// accounting would be ambiguous otherwise.
func (qm *QueueManager) CreateRequest(userID uuid.UUID, amount int64) (int64, error) {
	if !qm.HasOpenBatch() {
		return 0, fmt.Errorf("no open batch (head=%d tail=%d)", qm.head, qm.tail)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("non-positive request amount: %d", amount)
	}

	open := qm.OpenIndex()
	batch := qm.batches[open]
	key := RequestKey{Batch: open, UserID: userID}

	if existing := qm.requests[key]; existing != nil && existing.Pending > 0 {
		return 0, fmt.Errorf("user %s already has a live request in batch %d (pending=%d)",
			userID, open, existing.Pending)
	}

	if !batch.hasParticipant(userID) {
		batch.Participants = append(batch.Participants, userID)
	}

	req := qm.requests[key]
	if req == nil {
		req = &RedemptionRequest{UserID: userID, Batch: open}
		qm.requests[key] = req
	}
	req.Requested = amount
	req.Pending = amount
	req.Version++

	batch.PendingTotal += amount
	batch.Version++

	return open, nil
}

// CancelRequest zeroes the pending amount of the user's request in the
// given batch and returns the amount released from escrow. Requested
// is left untouched for audit. Any unsettled batch may be targeted.
func (qm *QueueManager) CancelRequest(batch int64, userID uuid.UUID) (int64, error) {
	if batch < qm.head || batch >= qm.tail {
		return 0, fmt.Errorf("batch %d outside unsettled window [%d, %d)", batch, qm.head, qm.tail)
	}

	req := qm.requests[RequestKey{Batch: batch, UserID: userID}]
	if req == nil || req.Pending <= 0 {
		return 0, fmt.Errorf("user %s has no pending request in batch %d", userID, batch)
	}

	released := req.Pending
	req.Pending = 0
	req.Version++

	b := qm.batches[batch]
	b.PendingTotal -= released
	b.Version++

	return released, nil
}

// ReducePending decrements a request's pending amount and the batch
// pending total during settlement. Fulfillment is the only caller.
func (qm *QueueManager) ReducePending(batch int64, userID uuid.UUID, amount int64) error {
	req := qm.requests[RequestKey{Batch: batch, UserID: userID}]
	if req == nil {
		return fmt.Errorf("no request for user %s in batch %d", userID, batch)
	}
	if amount < 0 || amount > req.Pending {
		return fmt.Errorf("reduce %d out of range for pending %d (user %s, batch %d)",
			amount, req.Pending, userID, batch)
	}
	if amount == 0 {
		return nil
	}

	req.Pending -= amount
	req.Version++

	b := qm.batches[batch]
	b.PendingTotal -= amount
	b.Version++

	return nil
}

// AdvanceSettledFrontier walks head forward over fully drained
// batches. Lazy: a batch becomes settled the instant its pending
// total reaches zero, but the frontier only moves when this runs —
// invoked after every fulfillment attempt.
func (qm *QueueManager) AdvanceSettledFrontier() int64 {
	advanced := int64(0)
	for qm.head < qm.tail && qm.batches[qm.head].PendingTotal == 0 {
		qm.head++
		advanced++
	}
	return advanced
}

// ParticipantsOf returns the batch's participants in insertion order.
func (qm *QueueManager) ParticipantsOf(batch int64) []uuid.UUID {
	b := qm.GetBatch(batch)
	if b == nil {
		return nil
	}
	out := make([]uuid.UUID, len(b.Participants))
	copy(out, b.Participants)
	return out
}

// PendingTotalOf returns the batch's pending total (0 when unknown).
func (qm *QueueManager) PendingTotalOf(batch int64) int64 {
	b := qm.GetBatch(batch)
	if b == nil {
		return 0
	}
	return b.PendingTotal
}

// LockedAmountOf sums the user's pending amounts across all unsettled
// batches [head, tail).
func (qm *QueueManager) LockedAmountOf(userID uuid.UUID) int64 {
	var total int64
	for i := qm.head; i < qm.tail; i++ {
		if req := qm.requests[RequestKey{Batch: i, UserID: userID}]; req != nil {
			total += req.Pending
		}
	}
	return total
}

// CheckBatchInvariant verifies pendingTotal equals the sum of the
// batch's request pendings and that every request satisfies
// 0 <= pending <= requested.
func (qm *QueueManager) CheckBatchInvariant(batch int64) error {
	b := qm.GetBatch(batch)
	if b == nil {
		return fmt.Errorf("unknown batch %d", batch)
	}

	var sum int64
	for _, userID := range b.Participants {
		req := qm.requests[RequestKey{Batch: batch, UserID: userID}]
		if req == nil {
			return fmt.Errorf("participant %s of batch %d has no request record", userID, batch)
		}
		if req.Pending < 0 || req.Pending > req.Requested {
			return fmt.Errorf("request (%d, %s) violates 0 <= pending <= requested: pending=%d requested=%d",
				batch, userID, req.Pending, req.Requested)
		}
		sum += req.Pending
	}

	if sum != b.PendingTotal {
		return fmt.Errorf("batch %d pending total %d != request sum %d", batch, b.PendingTotal, sum)
	}
	return nil
}

// TotalPending sums pending across all unsettled batches. Used by the
// invariant validator to reconcile against the escrow account.
func (qm *QueueManager) TotalPending() int64 {
	var total int64
	for i := qm.head; i < qm.tail; i++ {
		total += qm.batches[i].PendingTotal
	}
	return total
}

// --- Snapshot restore ---

// SetFrontier restores head/tail (snapshot restore only).
func (qm *QueueManager) SetFrontier(head, tail int64) {
	qm.head = head
	qm.tail = tail
}

// SetBatch restores a batch record. The batches slice is grown as
// needed so restore order does not matter.
func (qm *QueueManager) SetBatch(b *Batch) {
	for int64(len(qm.batches)) <= b.Index {
		qm.batches = append(qm.batches, nil)
	}
	qm.batches[b.Index] = b
}

// SetRequest restores a request record.
func (qm *QueueManager) SetRequest(req *RedemptionRequest) {
	qm.requests[RequestKey{Batch: req.Batch, UserID: req.UserID}] = req
}

// AllBatches returns every batch (snapshot creation).
func (qm *QueueManager) AllBatches() []*Batch {
	out := make([]*Batch, 0, len(qm.batches))
	out = append(out, qm.batches...)
	return out
}

// AllRequests returns every request record (snapshot creation).
func (qm *QueueManager) AllRequests() []*RedemptionRequest {
	out := make([]*RedemptionRequest, 0, len(qm.requests))
	for _, req := range qm.requests {
		out = append(out, req)
	}
	return out
}
