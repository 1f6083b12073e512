package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// BalanceTracker maintains in-memory account balances
type BalanceTracker struct {
	balances map[AccountKey]int64
}

func NewBalanceTracker() *BalanceTracker {
	return &BalanceTracker{
		balances: make(map[AccountKey]int64),
	}
}

// ApplyJournal applies a single journal entry to balances
func (bt *BalanceTracker) ApplyJournal(j Journal) {
	bt.balances[j.DebitAccount] += j.Amount
	bt.balances[j.CreditAccount] -= j.Amount
}

// ApplyBatch applies all journals in a batch
func (bt *BalanceTracker) ApplyBatch(batch *JournalBatch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}

	for _, j := range batch.Journals {
		bt.ApplyJournal(j)
	}

	return nil
}

// GetBalance returns the current balance for an account
func (bt *BalanceTracker) GetBalance(key AccountKey) int64 {
	return bt.balances[key]
}

// GetUserEscrowBalance returns the redemption tokens held in custody
// for a user. Mirrors the sum of the user's pending amounts across all
// unsettled batches.
func (bt *BalanceTracker) GetUserEscrowBalance(userID uuid.UUID, assetID AssetID) int64 {
	return bt.GetBalance(NewUserAccountKey(userID, SubTypeEscrow, assetID))
}

// ValidateEscrowNonNegative checks a user's escrow balance is >= 0
func (bt *BalanceTracker) ValidateEscrowNonNegative(userID uuid.UUID, assetID AssetID) error {
	escrow := bt.GetUserEscrowBalance(userID, assetID)
	if escrow < 0 {
		return fmt.Errorf("user %s has negative escrow balance for asset %d: %d",
			userID.String(), assetID, escrow)
	}
	return nil
}

// ValidateSufficientEscrow checks the user's escrow covers a release
func (bt *BalanceTracker) ValidateSufficientEscrow(userID uuid.UUID, assetID AssetID, required int64) error {
	escrow := bt.GetUserEscrowBalance(userID, assetID)
	if escrow < required {
		return fmt.Errorf("insufficient escrow balance: have=%d, need=%d", escrow, required)
	}
	return nil
}

// ComputeGlobalBalance sums all account balances (should be 0 for zero-sum ledger)
func (bt *BalanceTracker) ComputeGlobalBalance() map[AssetID]int64 {
	totals := make(map[AssetID]int64)

	for key, balance := range bt.balances {
		totals[key.AssetID] += balance
	}

	return totals
}

// ValidateNonNegative checks that a specific account balance is >= 0
func (bt *BalanceTracker) ValidateNonNegative(key AccountKey) error {
	balance := bt.GetBalance(key)
	if balance < 0 {
		return fmt.Errorf("account %s has negative balance: %d", key.AccountPath(), balance)
	}
	return nil
}

// SetBalance directly sets a balance (snapshot restore only)
func (bt *BalanceTracker) SetBalance(key AccountKey, balance int64) {
	bt.balances[key] = balance
}

// Snapshot returns a copy of all balances (for state hashing)
func (bt *BalanceTracker) Snapshot() map[AccountKey]int64 {
	snapshot := make(map[AccountKey]int64, len(bt.balances))
	for k, v := range bt.balances {
		snapshot[k] = v
	}
	return snapshot
}
