package token

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInsufficientBalance is returned by transfer operations when the
// source balance cannot cover the amount.
var ErrInsufficientBalance = errors.New("insufficient token balance")

// Manager is the valuation collaborator: NAV, payout-asset balances
// and decimal metadata are owned by the fund's token manager, not by
// the settlement engine.
type Manager interface {
	// CurrentNAV returns the fiat value of one whole redemption token,
	// NAV scale (1e6).
	CurrentNAV() int64

	// PayoutAssetBalance returns the payout-asset balance (base units)
	// available to the given holder.
	PayoutAssetBalance(symbol string, holder uuid.UUID) int64

	// RedemptionTokenDecimalsDiff returns the decimal-precision
	// difference between the redemption token and the payout asset.
	RedemptionTokenDecimalsDiff(symbol string) uint8

	// RedemptionTokenAddress returns the custody identity holding
	// escrowed tokens and the payout pool.
	RedemptionTokenAddress() uuid.UUID
}

// Ledger is the token movement collaborator. Every call either fully
// succeeds or reports an error with no movement.
type Ledger interface {
	// EscrowTransferIn moves amount redemption tokens from the user
	// into custody.
	EscrowTransferIn(user uuid.UUID, amount int64) error

	// EscrowTransferOut returns amount escrowed tokens to the user.
	EscrowTransferOut(user uuid.UUID, amount int64) error

	// PayoutTransfer moves amount payout-asset units from holder to
	// the recipient.
	PayoutTransfer(holder, to uuid.UUID, amount int64) error

	// Burn destroys amount escrowed redemption tokens held by holder.
	Burn(amount int64, holder uuid.UUID) error
}
