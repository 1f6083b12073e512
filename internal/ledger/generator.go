package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalGenerator creates balanced journal batches from queue events
type JournalGenerator struct {
	sequence       int64
	balanceTracker *BalanceTracker // Reference for pre-checks
}

func NewJournalGenerator(startSequence int64, tracker *BalanceTracker) *JournalGenerator {
	return &JournalGenerator{
		sequence:       startSequence,
		balanceTracker: tracker,
	}
}

// SetSequence restores the generator sequence (snapshot restore).
func (jg *JournalGenerator) SetSequence(seq int64) {
	jg.sequence = seq
}

// GenerateEscrowIn creates journals for a new redemption request.
// Moves tokens: external:wallets → user:escrow
func (jg *JournalGenerator) GenerateEscrowIn(
	userID uuid.UUID,
	requestID uuid.UUID,
	amount int64,
	assetID AssetID,
	timestamp int64,
) (*JournalBatch, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("escrow-in amount must be positive: %d", amount)
	}

	batchID := uuid.New()

	batch := &JournalBatch{
		BatchID:   batchID,
		EventRef:  requestID.String(),
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals:  make([]Journal, 0, 1),
	}

	batch.Journals = append(batch.Journals, Journal{
		JournalID:     uuid.New(),
		BatchID:       batchID,
		EventRef:      requestID.String(),
		Sequence:      jg.sequence,
		DebitAccount:  NewUserAccountKey(userID, SubTypeEscrow, assetID),
		CreditAccount: NewExternalAccountKey(SubTypeExternalWallets, assetID),
		AssetID:       assetID,
		Amount:        amount,
		JournalType:   JournalTypeEscrowIn,
		Timestamp:     timestamp,
	})

	jg.sequence++
	return batch, nil
}

// GenerateEscrowReturn creates journals for a cancelled request.
// Pre-check: the user's escrow must cover the release.
// Moves tokens: user:escrow → external:wallets
func (jg *JournalGenerator) GenerateEscrowReturn(
	userID uuid.UUID,
	cancelID uuid.UUID,
	amount int64,
	assetID AssetID,
	timestamp int64,
) (*JournalBatch, error) {
	if err := jg.balanceTracker.ValidateSufficientEscrow(userID, assetID, amount); err != nil {
		return nil, fmt.Errorf("escrow return pre-check failed: %w", err)
	}

	batchID := uuid.New()

	batch := &JournalBatch{
		BatchID:   batchID,
		EventRef:  cancelID.String(),
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals:  make([]Journal, 0, 1),
	}

	batch.Journals = append(batch.Journals, Journal{
		JournalID:     uuid.New(),
		BatchID:       batchID,
		EventRef:      cancelID.String(),
		Sequence:      jg.sequence,
		DebitAccount:  NewExternalAccountKey(SubTypeExternalWallets, assetID),
		CreditAccount: NewUserAccountKey(userID, SubTypeEscrow, assetID),
		AssetID:       assetID,
		Amount:        amount,
		JournalType:   JournalTypeEscrowReturn,
		Timestamp:     timestamp,
	})

	jg.sequence++
	return batch, nil
}

// SettlementLeg is one participant's executed slice of a fulfillment.
type SettlementLeg struct {
	UserID      uuid.UUID
	Tokens      int64 // redemption tokens burned from escrow
	PayoutUnits int64 // payout-asset units disbursed
}

// GenerateSettlement creates journals for a fulfillment: per
// participant, a burn leg (user:escrow → external:burned, redemption
// token) and a payout leg (system:payout_reserve → external:payouts,
// payout asset). Legs are emitted in participant order.
func (jg *JournalGenerator) GenerateSettlement(
	fulfillmentID uuid.UUID,
	legs []SettlementLeg,
	tokenAsset AssetID,
	payoutAsset AssetID,
	timestamp int64,
) (*JournalBatch, error) {
	batchID := uuid.New()

	batch := &JournalBatch{
		BatchID:   batchID,
		EventRef:  fulfillmentID.String(),
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals:  make([]Journal, 0, len(legs)*2),
	}

	for _, leg := range legs {
		if leg.Tokens <= 0 {
			continue
		}

		if err := jg.balanceTracker.ValidateSufficientEscrow(leg.UserID, tokenAsset, leg.Tokens); err != nil {
			return nil, fmt.Errorf("settlement burn pre-check for user %s: %w", leg.UserID, err)
		}

		batch.Journals = append(batch.Journals, Journal{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			EventRef:      fulfillmentID.String(),
			Sequence:      jg.sequence,
			DebitAccount:  NewExternalAccountKey(SubTypeExternalBurned, tokenAsset),
			CreditAccount: NewUserAccountKey(leg.UserID, SubTypeEscrow, tokenAsset),
			AssetID:       tokenAsset,
			Amount:        leg.Tokens,
			JournalType:   JournalTypeSettlementBurn,
			Timestamp:     timestamp,
		})

		if leg.PayoutUnits > 0 {
			batch.Journals = append(batch.Journals, Journal{
				JournalID:     uuid.New(),
				BatchID:       batchID,
				EventRef:      fulfillmentID.String(),
				Sequence:      jg.sequence,
				DebitAccount:  NewExternalAccountKey(SubTypeExternalPayouts, payoutAsset),
				CreditAccount: NewSystemAccountKey("fund", SubTypePayoutReserve, payoutAsset),
				AssetID:       payoutAsset,
				Amount:        leg.PayoutUnits,
				JournalType:   JournalTypeSettlementPayout,
				Timestamp:     timestamp,
			})
		}
	}

	if len(batch.Journals) == 0 {
		return nil, fmt.Errorf("settlement %s produced no journals", fulfillmentID)
	}

	jg.sequence++
	return batch, nil
}
