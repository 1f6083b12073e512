package core

import (
	"errors"

	"RedeemLedger/internal/liquidity"
)

// Failure taxonomy. Every failure aborts the triggering operation
// atomically — no partial side effects are observable — and none are
// retried internally; callers correct inputs and resubmit.
var (
	// ErrUnauthorized — caller lacks the required role.
	ErrUnauthorized = errors.New("caller lacks required role")

	// ErrInvalidBatchState — target batch outside [head, tail), no
	// open batch for a new request, or a second live request in the
	// same open batch.
	ErrInvalidBatchState = errors.New("invalid batch state")

	// ErrInsufficientTokenBalance — user cannot cover the escrow.
	ErrInsufficientTokenBalance = errors.New("insufficient redemption-token balance")

	// ErrInsufficientPending — cancellation with zero pending.
	ErrInsufficientPending = errors.New("no pending amount to cancel")

	// ErrInsufficientLiquidity — payout-asset pool cannot cover the
	// fiat amount.
	ErrInsufficientLiquidity = liquidity.ErrInsufficientLiquidity

	// ErrTransferFailure — an escrow/payout/burn collaborator call
	// reported failure.
	ErrTransferFailure = errors.New("token transfer failed")
)
