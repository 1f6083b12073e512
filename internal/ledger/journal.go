package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalType represents the purpose of a journal entry
type JournalType int32

const (
	JournalTypeEscrowIn JournalType = iota
	JournalTypeEscrowReturn
	JournalTypeSettlementBurn
	JournalTypeSettlementPayout
	JournalTypeAdjustment
)

func (t JournalType) String() string {
	switch t {
	case JournalTypeEscrowIn:
		return "escrow_in"
	case JournalTypeEscrowReturn:
		return "escrow_return"
	case JournalTypeSettlementBurn:
		return "settlement_burn"
	case JournalTypeSettlementPayout:
		return "settlement_payout"
	case JournalTypeAdjustment:
		return "adjustment"
	default:
		return "unknown"
	}
}

// Journal represents a single double-entry journal entry
type Journal struct {
	JournalID     uuid.UUID   // Unique identifier
	BatchID       uuid.UUID   // Groups balanced entries
	EventRef      string      // Idempotency key of source event
	Sequence      int64       // Global event sequence
	DebitAccount  AccountKey  // Account receiving debit (balance increases)
	CreditAccount AccountKey  // Account receiving credit (balance decreases)
	AssetID       AssetID     // Asset being transferred
	Amount        int64       // Fixed-point amount (ALWAYS positive)
	JournalType   JournalType // Entry type
	Timestamp     int64       // Versioned input timestamp (epoch microseconds)
}

// JournalBatch represents a balanced set of journal entries produced
// by applying one event. Named to avoid colliding with the domain's
// redemption batches (state.Batch).
type JournalBatch struct {
	BatchID   uuid.UUID
	EventRef  string
	Sequence  int64
	Timestamp int64
	Journals  []Journal
}

// Validate ensures the batch is well-formed.
// Each journal entry is a balanced transfer by construction (a single
// positive amount moves from credit account to debit account), so
// Σ debits == Σ credits holds per-entry. Multi-leg batches (a
// settlement with burn and payout legs per participant) use multiple
// entries under one batch_id — each individually balanced.
func (b *JournalBatch) Validate() error {
	if len(b.Journals) == 0 {
		return fmt.Errorf("batch %s is empty", b.BatchID)
	}

	for _, j := range b.Journals {
		if j.Amount <= 0 {
			return fmt.Errorf("journal %s has non-positive amount: %d", j.JournalID, j.Amount)
		}

		if j.BatchID != b.BatchID {
			return fmt.Errorf("journal %s has mismatched batch_id", j.JournalID)
		}

		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
	}

	return nil
}
