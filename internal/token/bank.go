package token

import (
	"fmt"

	"github.com/google/uuid"
)

// Bank is an in-memory Manager + Ledger for local runs and tests.
// Production deployments back these interfaces with the fund's token
// manager and on-chain token ledger.
type Bank struct {
	nav          int64
	holder       uuid.UUID
	payoutSymbol string
	decimalsDiff map[string]uint8

	tokenBalances  map[uuid.UUID]int64            // user wallets, redemption token
	escrowed       int64                          // custody pool held by holder
	payoutBalances map[string]map[uuid.UUID]int64 // symbol -> holder -> units
}

func NewBank(holder uuid.UUID, payoutSymbol string) *Bank {
	return &Bank{
		holder:         holder,
		payoutSymbol:   payoutSymbol,
		decimalsDiff:   make(map[string]uint8),
		tokenBalances:  make(map[uuid.UUID]int64),
		payoutBalances: map[string]map[uuid.UUID]int64{payoutSymbol: make(map[uuid.UUID]int64)},
	}
}

// --- Manager ---

func (b *Bank) CurrentNAV() int64 {
	return b.nav
}

func (b *Bank) PayoutAssetBalance(symbol string, holder uuid.UUID) int64 {
	return b.payoutBalances[symbol][holder]
}

func (b *Bank) RedemptionTokenDecimalsDiff(symbol string) uint8 {
	return b.decimalsDiff[symbol]
}

func (b *Bank) RedemptionTokenAddress() uuid.UUID {
	return b.holder
}

// --- Ledger ---

func (b *Bank) EscrowTransferIn(user uuid.UUID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("non-positive escrow amount: %d", amount)
	}
	if b.tokenBalances[user] < amount {
		return fmt.Errorf("escrow in for %s: %w (have=%d, need=%d)",
			user, ErrInsufficientBalance, b.tokenBalances[user], amount)
	}
	b.tokenBalances[user] -= amount
	b.escrowed += amount
	return nil
}

func (b *Bank) EscrowTransferOut(user uuid.UUID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("non-positive escrow release: %d", amount)
	}
	if b.escrowed < amount {
		return fmt.Errorf("escrow out for %s: %w (escrowed=%d, need=%d)",
			user, ErrInsufficientBalance, b.escrowed, amount)
	}
	b.escrowed -= amount
	b.tokenBalances[user] += amount
	return nil
}

func (b *Bank) PayoutTransfer(holder, to uuid.UUID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("non-positive payout amount: %d", amount)
	}
	holders := b.payoutBalances[b.payoutSymbol]
	if holders[holder] < amount {
		return fmt.Errorf("payout from %s: %w (have=%d, need=%d)",
			holder, ErrInsufficientBalance, holders[holder], amount)
	}
	holders[holder] -= amount
	holders[to] += amount
	return nil
}

func (b *Bank) Burn(amount int64, holder uuid.UUID) error {
	if amount <= 0 {
		return fmt.Errorf("non-positive burn amount: %d", amount)
	}
	if holder != b.holder {
		return fmt.Errorf("burn from non-custody holder %s", holder)
	}
	if b.escrowed < amount {
		return fmt.Errorf("burn %d: %w (escrowed=%d)", amount, ErrInsufficientBalance, b.escrowed)
	}
	b.escrowed -= amount
	return nil
}

// --- Test/bootstrap helpers ---

// SetNAV fixes the fiat value per whole redemption token (NAV scale).
func (b *Bank) SetNAV(nav int64) {
	b.nav = nav
}

// SetDecimalsDiff fixes the token/payout-asset precision difference.
func (b *Bank) SetDecimalsDiff(symbol string, diff uint8) {
	b.decimalsDiff[symbol] = diff
}

// MintTokens credits a user's redemption-token wallet.
func (b *Bank) MintTokens(user uuid.UUID, amount int64) {
	b.tokenBalances[user] += amount
}

// FundPayout credits the custody holder's payout-asset pool.
func (b *Bank) FundPayout(symbol string, amount int64) {
	if b.payoutBalances[symbol] == nil {
		b.payoutBalances[symbol] = make(map[uuid.UUID]int64)
	}
	b.payoutBalances[symbol][b.holder] += amount
}

// TokenBalance reports a user's redemption-token wallet balance.
func (b *Bank) TokenBalance(user uuid.UUID) int64 {
	return b.tokenBalances[user]
}

// Escrowed reports the custody pool balance.
func (b *Bank) Escrowed() int64 {
	return b.escrowed
}

// PayoutBalanceOf reports a recipient's payout-asset balance.
func (b *Bank) PayoutBalanceOf(symbol string, who uuid.UUID) int64 {
	return b.payoutBalances[symbol][who]
}
