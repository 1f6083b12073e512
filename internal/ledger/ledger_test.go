package ledger_test

import (
	"testing"

	"github.com/google/uuid"

	"RedeemLedger/internal/ledger"
)

// ============================================================================
// Test: AccountKey
// ============================================================================

func TestAccountKey_UserPath(t *testing.T) {
	userID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	assetID, _ := ledger.GetAssetID("RWAF")
	key := ledger.NewUserAccountKey(userID, ledger.SubTypeEscrow, assetID)

	path := key.AccountPath()
	expected := "user:550e8400-e29b-41d4-a716-446655440000:escrow:RWAF"
	if path != expected {
		t.Errorf("got %q, want %q", path, expected)
	}
}

func TestAccountKey_SystemPath(t *testing.T) {
	assetID, _ := ledger.GetAssetID("USDC")
	key := ledger.NewSystemAccountKey("fund", ledger.SubTypePayoutReserve, assetID)

	path := key.AccountPath()
	if path != "system:payout_reserve:USDC" {
		t.Errorf("got %q, want %q", path, "system:payout_reserve:USDC")
	}
}

func TestAccountKey_ExternalPath(t *testing.T) {
	assetID, _ := ledger.GetAssetID("RWAF")
	key := ledger.NewExternalAccountKey(ledger.SubTypeExternalBurned, assetID)

	path := key.AccountPath()
	if path != "external:burned:RWAF" {
		t.Errorf("got %q, want %q", path, "external:burned:RWAF")
	}
}

func TestParseAccountPath_Roundtrip(t *testing.T) {
	userID := uuid.New()
	tokenAsset, _ := ledger.GetAssetID("RWAF")
	payoutAsset, _ := ledger.GetAssetID("USDC")

	keys := []ledger.AccountKey{
		ledger.NewUserAccountKey(userID, ledger.SubTypeEscrow, tokenAsset),
		ledger.NewSystemAccountKey("fund", ledger.SubTypePayoutReserve, payoutAsset),
		ledger.NewExternalAccountKey(ledger.SubTypeExternalWallets, tokenAsset),
		ledger.NewExternalAccountKey(ledger.SubTypeExternalBurned, tokenAsset),
		ledger.NewExternalAccountKey(ledger.SubTypeExternalPayouts, payoutAsset),
	}

	for _, key := range keys {
		parsed, err := ledger.ParseAccountPath(key.AccountPath())
		if err != nil {
			t.Fatalf("parse %q: %v", key.AccountPath(), err)
		}
		if parsed != key {
			t.Errorf("roundtrip mismatch for %q", key.AccountPath())
		}
	}
}

func TestParseAccountPath_Malformed(t *testing.T) {
	for _, path := range []string{"", "user", "user:not-a-uuid:escrow:RWAF", "martian:escrow:RWAF", "user:550e8400-e29b-41d4-a716-446655440000:escrow:DOGE"} {
		if _, err := ledger.ParseAccountPath(path); err == nil {
			t.Errorf("expected error for %q", path)
		}
	}
}

func TestGetAssetID_Unknown(t *testing.T) {
	if _, ok := ledger.GetAssetID("DOGE"); ok {
		t.Error("DOGE should not be a known asset")
	}
}

// ============================================================================
// Test: BalanceTracker
// ============================================================================

func TestBalanceTracker_EscrowInMovesBalance(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	userID := uuid.New()
	assetID, _ := ledger.GetAssetID("RWAF")

	j := ledger.Journal{
		JournalID:     uuid.New(),
		BatchID:       uuid.New(),
		DebitAccount:  ledger.NewUserAccountKey(userID, ledger.SubTypeEscrow, assetID),
		CreditAccount: ledger.NewExternalAccountKey(ledger.SubTypeExternalWallets, assetID),
		AssetID:       assetID,
		Amount:        1_000,
	}
	bt.ApplyJournal(j)

	if got := bt.GetUserEscrowBalance(userID, assetID); got != 1_000 {
		t.Errorf("escrow: got %d, want 1_000", got)
	}
	if got := bt.GetBalance(j.CreditAccount); got != -1_000 {
		t.Errorf("credit side: got %d, want -1_000", got)
	}
}

func TestBalanceTracker_GlobalBalanceZeroSum(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	assetID, _ := ledger.GetAssetID("RWAF")

	bt.ApplyJournal(ledger.Journal{
		JournalID:     uuid.New(),
		BatchID:       uuid.New(),
		DebitAccount:  ledger.NewUserAccountKey(uuid.New(), ledger.SubTypeEscrow, assetID),
		CreditAccount: ledger.NewExternalAccountKey(ledger.SubTypeExternalWallets, assetID),
		AssetID:       assetID,
		Amount:        123,
	})

	totals := bt.ComputeGlobalBalance()
	if totals[assetID] != 0 {
		t.Errorf("global balance: got %d, want 0", totals[assetID])
	}
}

// ============================================================================
// Test: JournalBatch Validation
// ============================================================================

func TestJournalBatch_Validate_RejectsEmpty(t *testing.T) {
	batch := &ledger.JournalBatch{BatchID: uuid.New()}
	if err := batch.Validate(); err == nil {
		t.Error("empty batch should fail validation")
	}
}

func TestJournalBatch_Validate_RejectsSelfTransfer(t *testing.T) {
	assetID, _ := ledger.GetAssetID("RWAF")
	key := ledger.NewExternalAccountKey(ledger.SubTypeExternalWallets, assetID)
	batchID := uuid.New()

	batch := &ledger.JournalBatch{
		BatchID: batchID,
		Journals: []ledger.Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			DebitAccount:  key,
			CreditAccount: key,
			AssetID:       assetID,
			Amount:        10,
		}},
	}
	if err := batch.Validate(); err == nil {
		t.Error("same debit and credit account should fail validation")
	}
}

// ============================================================================
// Test: JournalGenerator
// ============================================================================

func TestGenerateEscrowIn_SingleBalancedEntry(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)
	userID := uuid.New()
	assetID, _ := ledger.GetAssetID("RWAF")

	batch, err := gen.GenerateEscrowIn(userID, uuid.New(), 500, assetID, 1_000_000)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := batch.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(batch.Journals) != 1 {
		t.Fatalf("expected 1 journal, got %d", len(batch.Journals))
	}

	j := batch.Journals[0]
	if j.JournalType != ledger.JournalTypeEscrowIn {
		t.Errorf("type: got %d, want escrow in", j.JournalType)
	}
	if j.DebitAccount != ledger.NewUserAccountKey(userID, ledger.SubTypeEscrow, assetID) {
		t.Error("debit should be the user's escrow account")
	}
}

func TestGenerateEscrowReturn_RequiresCoverage(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)
	userID := uuid.New()
	assetID, _ := ledger.GetAssetID("RWAF")

	// No escrow yet: the release pre-check must fail
	if _, err := gen.GenerateEscrowReturn(userID, uuid.New(), 100, assetID, 1_000_000); err == nil {
		t.Fatal("expected pre-check failure without escrow")
	}

	in, _ := gen.GenerateEscrowIn(userID, uuid.New(), 100, assetID, 1_000_000)
	bt.ApplyBatch(in)

	out, err := gen.GenerateEscrowReturn(userID, uuid.New(), 100, assetID, 1_000_000)
	if err != nil {
		t.Fatalf("generate return: %v", err)
	}
	bt.ApplyBatch(out)

	if got := bt.GetUserEscrowBalance(userID, assetID); got != 0 {
		t.Errorf("escrow after return: got %d, want 0", got)
	}
}

func TestGenerateSettlement_BurnAndPayoutLegs(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)
	alice, bob := uuid.New(), uuid.New()
	tokenAsset, _ := ledger.GetAssetID("RWAF")
	payoutAsset, _ := ledger.GetAssetID("USDC")

	for _, u := range []uuid.UUID{alice, bob} {
		in, _ := gen.GenerateEscrowIn(u, uuid.New(), 200, tokenAsset, 1_000_000)
		bt.ApplyBatch(in)
	}

	batch, err := gen.GenerateSettlement(uuid.New(), []ledger.SettlementLeg{
		{UserID: alice, Tokens: 50, PayoutUnits: 50},
		{UserID: bob, Tokens: 100, PayoutUnits: 0}, // dust payout floored away
	}, tokenAsset, payoutAsset, 1_000_000)
	if err != nil {
		t.Fatalf("generate settlement: %v", err)
	}

	// alice: burn + payout, bob: burn only
	if len(batch.Journals) != 3 {
		t.Fatalf("expected 3 journals, got %d", len(batch.Journals))
	}

	var burns, payouts int
	for _, j := range batch.Journals {
		switch j.JournalType {
		case ledger.JournalTypeSettlementBurn:
			burns++
			if j.AssetID != tokenAsset {
				t.Error("burn leg must carry the redemption token")
			}
		case ledger.JournalTypeSettlementPayout:
			payouts++
			if j.AssetID != payoutAsset {
				t.Error("payout leg must carry the payout asset")
			}
		}
	}
	if burns != 2 || payouts != 1 {
		t.Errorf("legs: got %d burns / %d payouts, want 2/1", burns, payouts)
	}

	bt.ApplyBatch(batch)
	if got := bt.GetUserEscrowBalance(alice, tokenAsset); got != 150 {
		t.Errorf("alice escrow after burn: got %d, want 150", got)
	}
}

func TestGenerateSettlement_SkipsZeroTokenLegs(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)
	tokenAsset, _ := ledger.GetAssetID("RWAF")
	payoutAsset, _ := ledger.GetAssetID("USDC")

	_, err := gen.GenerateSettlement(uuid.New(), []ledger.SettlementLeg{
		{UserID: uuid.New(), Tokens: 0, PayoutUnits: 0},
	}, tokenAsset, payoutAsset, 1_000_000)
	if err == nil {
		t.Fatal("settlement with no effective legs should fail")
	}
}

// ============================================================================
// Test: InvariantValidator
// ============================================================================

type fakePendingSource struct {
	locked map[uuid.UUID]int64
	total  int64
}

func (f *fakePendingSource) LockedAmountOf(userID uuid.UUID) int64 { return f.locked[userID] }
func (f *fakePendingSource) TotalPending() int64                   { return f.total }

func TestValidator_EscrowMatchesPending(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)
	v := ledger.NewInvariantValidator(bt)
	userID := uuid.New()
	tokenAsset, _ := ledger.GetAssetID("RWAF")

	in, _ := gen.GenerateEscrowIn(userID, uuid.New(), 300, tokenAsset, 1_000_000)
	bt.ApplyBatch(in)

	src := &fakePendingSource{locked: map[uuid.UUID]int64{userID: 300}, total: 300}
	if err := v.ValidateUserEscrowMatchesPending(userID, tokenAsset, src); err != nil {
		t.Errorf("matching escrow flagged: %v", err)
	}
	if err := v.ValidateTotalEscrowMatchesPending(tokenAsset, src); err != nil {
		t.Errorf("matching pool flagged: %v", err)
	}

	src.total = 999
	if err := v.ValidateTotalEscrowMatchesPending(tokenAsset, src); err == nil {
		t.Error("expected mismatch to be flagged")
	}
}

func TestValidator_GlobalBalance(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	v := ledger.NewInvariantValidator(bt)
	assetID, _ := ledger.GetAssetID("RWAF")

	if err := v.ValidateGlobalBalance(); err != nil {
		t.Errorf("empty ledger flagged: %v", err)
	}

	// Force a one-sided balance (snapshot corruption scenario)
	bt.SetBalance(ledger.NewExternalAccountKey(ledger.SubTypeExternalWallets, assetID), 5)
	if err := v.ValidateGlobalBalance(); err == nil {
		t.Error("expected non-zero-sum ledger to be flagged")
	}
}
