package math

import (
	"github.com/google/uuid"
)

// ParticipantPending is the per-user input to settlement computation,
// in batch insertion order.
type ParticipantPending struct {
	UserID  uuid.UUID
	Pending int64
}

// ParticipantShare is one participant's computed settlement slice.
type ParticipantShare struct {
	UserID    uuid.UUID
	Tokens    int64 // redemption-token units to burn
	FiatValue int64 // Tokens * NAV, fiat scale
}

// Settlement is the computed distribution plan for one fulfillment.
type Settlement struct {
	Batch       int64
	NAV         int64
	Redeemable  int64 // capped at pending total
	Full        bool
	Shares      []ParticipantShare
	Distributed int64 // Σ Shares.Tokens
	Residual    int64 // Redeemable - Distributed (partial only)
}

// ComputeRedeemable converts a fiat amount to redemption-token units
// at the given NAV: floor(fiat * tokenScale / nav). NAV is fiat per
// whole token at NAVConfig scale.
func ComputeRedeemable(fiatAmount, nav int64) int64 {
	if nav <= 0 {
		return 0
	}
	// fiat(1e6) * tokenScale / nav(1e6) keeps token scale
	return MulDiv(fiatAmount, TokenConfig.Scale, nav)
}

// TokensToFiat values token units at NAV: floor(tokens * nav / tokenScale).
func TokensToFiat(tokens, nav int64) int64 {
	return MulDiv(tokens, nav, TokenConfig.Scale)
}

// ComputeSettlement builds the distribution plan for a batch.
// Participants must be in batch insertion order; the plan preserves it.
//
// Full settlement (redeemable >= pendingTotal): every participant's
// full pending amount is settled. Partial: each participant gets
// floor(pending * redeemable / pendingTotal). Floor division means
// Distributed may be strictly less than Redeemable; the residual is
// NOT redistributed here — it remains pending for a future
// fulfillment call.
func ComputeSettlement(
	batch int64,
	nav int64,
	redeemable int64,
	pendingTotal int64,
	participants []ParticipantPending,
) *Settlement {
	if redeemable > pendingTotal {
		redeemable = pendingTotal
	}

	s := &Settlement{
		Batch:      batch,
		NAV:        nav,
		Redeemable: redeemable,
		Full:       redeemable == pendingTotal,
		Shares:     make([]ParticipantShare, 0, len(participants)),
	}

	for _, p := range participants {
		if p.Pending <= 0 {
			continue
		}

		var tokens int64
		if s.Full {
			tokens = p.Pending
		} else {
			tokens = MulDiv(p.Pending, redeemable, pendingTotal)
		}
		if tokens == 0 {
			continue
		}

		s.Shares = append(s.Shares, ParticipantShare{
			UserID:    p.UserID,
			Tokens:    tokens,
			FiatValue: TokensToFiat(tokens, nav),
		})
		s.Distributed += tokens
	}

	s.Residual = s.Redeemable - s.Distributed
	return s
}
