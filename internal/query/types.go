package query

import "github.com/google/uuid"

// BatchResponse represents a redemption batch for API queries.
// Participants are listed in insertion order, the order pro-rata
// settlement walks them.
type BatchResponse struct {
	BatchIndex       int64              `json:"batch_index"`
	PendingTotal     int64              `json:"pending_total"`
	ParticipantCount int64              `json:"participant_count"`
	Settled          bool               `json:"settled"`
	Open             bool               `json:"open"`
	Participants     []BatchParticipant `json:"participants"`
	AsOfSequence     int64              `json:"as_of_sequence"`
}

// BatchParticipant is one user's request row within a batch.
type BatchParticipant struct {
	UserID    uuid.UUID `json:"user_id"`
	Requested int64     `json:"requested"`
	Pending   int64     `json:"pending"`
	Status    string    `json:"status"`
}

// RequestResponse represents one user's redemption request.
type RequestResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	BatchIndex   int64     `json:"batch_index"`
	Requested    int64     `json:"requested"`
	Pending      int64     `json:"pending"`
	Status       string    `json:"status"`
	AsOfSequence int64     `json:"as_of_sequence"`
}

// LockedAmountResponse is the sum of a user's pending across all
// unsettled batches.
type LockedAmountResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	LockedAmount int64     `json:"locked_amount"`
	AsOfSequence int64     `json:"as_of_sequence"`
}

// FrontierResponse reports the queue frontier.
type FrontierResponse struct {
	Head         int64 `json:"head"`
	Tail         int64 `json:"tail"`
	AsOfSequence int64 `json:"as_of_sequence"`
}

// SettlementResponse represents one executed fulfillment.
type SettlementResponse struct {
	FulfillmentID string `json:"fulfillment_id"`
	BatchIndex    int64  `json:"batch_index"`
	TokensSettled int64  `json:"tokens_settled"`
	FiatDisbursed int64  `json:"fiat_disbursed"`
	PayoutUnits   int64  `json:"payout_units"`
	FullyClosed   bool   `json:"fully_closed"`
	Timestamp     int64  `json:"timestamp"`
	AsOfSequence  int64  `json:"as_of_sequence"`
}

// JournalHistoryEntry represents a journal entry for API queries.
type JournalHistoryEntry struct {
	JournalID     string `json:"journal_id"`
	BatchID       string `json:"batch_id"`
	EventRef      string `json:"event_ref"`
	Sequence      int64  `json:"sequence"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	AssetID       uint16 `json:"asset_id"`
	Amount        int64  `json:"amount"`
	JournalType   int32  `json:"journal_type"`
	Timestamp     int64  `json:"timestamp"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy        bool              `json:"is_healthy"`
	HashChainBreaks  []int64           `json:"hash_chain_breaks,omitempty"`
	UnbalancedAssets []UnbalancedAsset `json:"unbalanced_assets,omitempty"`
}

// UnbalancedAsset represents an asset with non-zero global balance sum.
type UnbalancedAsset struct {
	AssetID   uint16 `json:"asset_id"`
	Imbalance int64  `json:"imbalance"`
}
