package math_test

import (
	"testing"

	"github.com/google/uuid"

	fpmath "RedeemLedger/internal/math"
)

// ============================================================================
// Test: Redeemable Conversion
// ============================================================================

func TestComputeRedeemable_NAVOne(t *testing.T) {
	// NAV 1.0: fiat and token units coincide
	got := fpmath.ComputeRedeemable(300, 1_000_000)
	if got != 300 {
		t.Errorf("got %d, want 300", got)
	}
}

func TestComputeRedeemable_NAVAboveOne_Floors(t *testing.T) {
	// NAV 1.5: 100 fiat buys floor(100 * 1e6 / 1.5e6) = 66 token units
	got := fpmath.ComputeRedeemable(100, 1_500_000)
	if got != 66 {
		t.Errorf("got %d, want 66", got)
	}
}

func TestComputeRedeemable_NonPositiveNAV(t *testing.T) {
	if got := fpmath.ComputeRedeemable(100, 0); got != 0 {
		t.Errorf("zero NAV: got %d, want 0", got)
	}
	if got := fpmath.ComputeRedeemable(100, -5); got != 0 {
		t.Errorf("negative NAV: got %d, want 0", got)
	}
}

func TestTokensToFiat_Roundtrip(t *testing.T) {
	// At NAV 2.0, 50 tokens are worth 100 fiat units
	got := fpmath.TokensToFiat(50, 2_000_000)
	if got != 100 {
		t.Errorf("got %d, want 100", got)
	}
}

// ============================================================================
// Test: Settlement Plans
// ============================================================================

func participants(pendings ...int64) []fpmath.ParticipantPending {
	out := make([]fpmath.ParticipantPending, 0, len(pendings))
	for _, p := range pendings {
		out = append(out, fpmath.ParticipantPending{UserID: uuid.New(), Pending: p})
	}
	return out
}

func TestComputeSettlement_FullWhenRedeemableCoversPending(t *testing.T) {
	plan := fpmath.ComputeSettlement(0, 1_000_000, 300, 300, participants(100, 200))

	if !plan.Full {
		t.Fatal("expected full settlement")
	}
	if plan.Distributed != 300 {
		t.Errorf("distributed: got %d, want 300", plan.Distributed)
	}
	if plan.Residual != 0 {
		t.Errorf("residual: got %d, want 0", plan.Residual)
	}
	if plan.Shares[0].Tokens != 100 || plan.Shares[1].Tokens != 200 {
		t.Errorf("shares: got %d/%d, want 100/200", plan.Shares[0].Tokens, plan.Shares[1].Tokens)
	}
}

func TestComputeSettlement_CapsRedeemableAtPendingTotal(t *testing.T) {
	plan := fpmath.ComputeSettlement(0, 1_000_000, 5_000, 300, participants(100, 200))

	if plan.Redeemable != 300 {
		t.Errorf("redeemable: got %d, want 300", plan.Redeemable)
	}
	if !plan.Full {
		t.Error("capped plan should be full")
	}
}

func TestComputeSettlement_ProRataFloors(t *testing.T) {
	plan := fpmath.ComputeSettlement(0, 1_000_000, 150, 300, participants(100, 200))

	if plan.Full {
		t.Fatal("expected partial settlement")
	}
	if plan.Shares[0].Tokens != 50 {
		t.Errorf("first share: got %d, want 50", plan.Shares[0].Tokens)
	}
	if plan.Shares[1].Tokens != 100 {
		t.Errorf("second share: got %d, want 100", plan.Shares[1].Tokens)
	}
	if plan.Residual != 0 {
		t.Errorf("residual: got %d, want 0", plan.Residual)
	}
}

func TestComputeSettlement_ResidualNotRedistributed(t *testing.T) {
	// 100 of 300: floor(100*100/300)=33, floor(200*100/300)=66
	plan := fpmath.ComputeSettlement(0, 1_000_000, 100, 300, participants(100, 200))

	if plan.Distributed != 99 {
		t.Errorf("distributed: got %d, want 99", plan.Distributed)
	}
	if plan.Residual != 1 {
		t.Errorf("residual: got %d, want 1", plan.Residual)
	}
}

func TestComputeSettlement_ZeroShareParticipantsSkipped(t *testing.T) {
	// 1 of 1000 redeemable: the small participant floors to zero and is
	// excluded from the plan entirely
	plan := fpmath.ComputeSettlement(0, 1_000_000, 1, 1000, participants(1, 999))

	if len(plan.Shares) != 0 {
		t.Errorf("expected no shares, got %d", len(plan.Shares))
	}
	if plan.Distributed != 0 {
		t.Errorf("distributed: got %d, want 0", plan.Distributed)
	}
	if plan.Residual != 1 {
		t.Errorf("residual: got %d, want 1", plan.Residual)
	}
}

func TestComputeSettlement_PreservesInsertionOrder(t *testing.T) {
	ps := participants(100, 200, 300)
	plan := fpmath.ComputeSettlement(0, 1_000_000, 600, 600, ps)

	for i, share := range plan.Shares {
		if share.UserID != ps[i].UserID {
			t.Errorf("share %d out of order", i)
		}
	}
}

func TestComputeSettlement_SharesValuedAtNAV(t *testing.T) {
	// NAV 2.0: 100 tokens are worth 200 fiat units
	plan := fpmath.ComputeSettlement(0, 2_000_000, 100, 100, participants(100))

	if plan.Shares[0].FiatValue != 200 {
		t.Errorf("fiat value: got %d, want 200", plan.Shares[0].FiatValue)
	}
}

// ============================================================================
// Test: 128-bit Arithmetic
// ============================================================================

func TestMulDiv_NoIntermediateOverflow(t *testing.T) {
	// a * b overflows int64; the 128-bit path must still be exact
	a := int64(5_000_000_000_000)
	b := int64(4_000_000_000)
	got := fpmath.MulDiv(a, b, b)
	if got != a {
		t.Errorf("got %d, want %d", got, a)
	}
}

func TestMulDiv_Floors(t *testing.T) {
	if got := fpmath.MulDiv(7, 1, 2); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}
