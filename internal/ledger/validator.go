package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// PendingSource reports outstanding pending amounts from the queue
// state, so the validator can reconcile them against escrow balances.
type PendingSource interface {
	LockedAmountOf(userID uuid.UUID) int64
	TotalPending() int64
}

// InvariantValidator checks ledger invariants
type InvariantValidator struct {
	tracker *BalanceTracker
}

func NewInvariantValidator(tracker *BalanceTracker) *InvariantValidator {
	return &InvariantValidator{
		tracker: tracker,
	}
}

// ValidateBatchBalance verifies a journal batch is balanced
func (v *InvariantValidator) ValidateBatchBalance(batch *JournalBatch) error {
	return batch.Validate()
}

// ValidateUserEscrowMatchesPending verifies a user's escrow balance
// equals the sum of their pending amounts across unsettled batches.
func (v *InvariantValidator) ValidateUserEscrowMatchesPending(
	userID uuid.UUID,
	tokenAsset AssetID,
	pending PendingSource,
) error {
	escrow := v.tracker.GetUserEscrowBalance(userID, tokenAsset)
	locked := pending.LockedAmountOf(userID)

	if escrow != locked {
		return fmt.Errorf("user %s escrow %d != locked pending %d", userID, escrow, locked)
	}
	return nil
}

// ValidateTotalEscrowMatchesPending verifies the whole escrow pool
// equals the queue's total pending. Escrow of settled batches has
// been burned or returned, so only unsettled pending remains.
func (v *InvariantValidator) ValidateTotalEscrowMatchesPending(
	tokenAsset AssetID,
	pending PendingSource,
) error {
	var escrowTotal int64
	for key, balance := range v.tracker.balances {
		if key.Scope == AccountScopeUser && key.SubType == SubTypeEscrow && key.AssetID == tokenAsset {
			escrowTotal += balance
		}
	}

	queued := pending.TotalPending()
	if escrowTotal != queued {
		return fmt.Errorf("total escrow %d != total queued pending %d", escrowTotal, queued)
	}
	return nil
}

// ValidateGlobalBalance verifies the system is zero-sum per asset
func (v *InvariantValidator) ValidateGlobalBalance() error {
	totals := v.tracker.ComputeGlobalBalance()

	for assetID, total := range totals {
		if total != 0 {
			assetName, _ := GetAssetName(assetID)
			return fmt.Errorf("global balance for %s is non-zero: %d", assetName, total)
		}
	}

	return nil
}
