package core

import (
	"RedeemLedger/internal/ledger"
	"RedeemLedger/internal/state"
)

// SnapshotState holds the serializable in-memory state for restore.
// This mirrors persistence.SnapshotData but uses typed fields.
type SnapshotState struct {
	Sequence        int64
	StateHash       [32]byte
	Head            int64
	Tail            int64
	Batches         []*state.Batch
	Requests        []*state.RedemptionRequest
	Balances        map[ledger.AccountKey]int64
	SequenceState   map[string]int64
	IdempotencyKeys []string
}

// RestoreFromSnapshot restores the core's in-memory state. On warm
// restart the caller loads the latest snapshot, restores, then replays
// the event log from Sequence+1.
func (c *SettlementCore) RestoreFromSnapshot(snap *SnapshotState) {
	c.sequence = snap.Sequence + 1 // Next sequence to assign

	c.hasher.SetPrevHash(snap.StateHash)

	c.queue.SetFrontier(snap.Head, snap.Tail)
	for _, b := range snap.Batches {
		c.queue.SetBatch(b)
	}
	for _, req := range snap.Requests {
		c.queue.SetRequest(req)
	}

	for key, balance := range snap.Balances {
		c.balances.SetBalance(key, balance)
	}

	for partition, nextSeq := range snap.SequenceState {
		c.sequenceValidator.RestorePartition(partition, nextSeq)
	}

	c.journalGen.SetSequence(snap.Sequence)
}

// WarmLRU loads recent idempotency keys into the LRU cache so a warm
// restart avoids cold-path DB lookups.
func (c *SettlementCore) WarmLRU(keys []string) {
	c.idempotency.lru.WarmFromKeys(keys)
}

// CreateSnapshotState captures the current in-memory state for persistence.
func (c *SettlementCore) CreateSnapshotState() *SnapshotState {
	return &SnapshotState{
		Sequence:        c.sequence - 1, // Last processed sequence
		StateHash:       c.hasher.GetPrevHash(),
		Head:            c.queue.Head(),
		Tail:            c.queue.Tail(),
		Batches:         c.queue.AllBatches(),
		Requests:        c.queue.AllRequests(),
		Balances:        c.balances.Snapshot(),
		SequenceState:   c.sequenceValidator.GetAllPartitions(),
		IdempotencyKeys: c.idempotency.lru.GetAllKeys(),
	}
}
