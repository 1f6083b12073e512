package liquidity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	fpmath "RedeemLedger/internal/math"
	"RedeemLedger/internal/oracle"
	"RedeemLedger/internal/token"
)

// ErrInsufficientLiquidity is returned when the fund's payout-asset
// balance cannot cover a requested fiat disbursement.
var ErrInsufficientLiquidity = errors.New("insufficient payout-asset liquidity")

// Adapter converts fiat disbursement amounts into payout-asset units
// at the oracle's latest rate and verifies the fund's payout balance
// before a settlement commits.
type Adapter struct {
	oracle       oracle.PriceOracle
	tokens       token.Manager
	payoutSymbol string
	fiatCurrency string
}

func NewAdapter(po oracle.PriceOracle, tm token.Manager, payoutSymbol, fiatCurrency string) *Adapter {
	return &Adapter{
		oracle:       po,
		tokens:       tm,
		payoutSymbol: payoutSymbol,
		fiatCurrency: fiatCurrency,
	}
}

// Quote returns the latest payout-asset/fiat rate and its decimal
// scaling. Pure read, no state mutation.
func (a *Adapter) Quote() (rate int64, decimals uint8, err error) {
	return a.oracle.LatestRateAndDecimals(a.payoutSymbol, a.fiatCurrency)
}

// ConvertFiat converts a fiat amount (fiat scale) into payout-asset
// base units at the latest rate, flooring in the fund's favor. The
// payout asset's base-unit precision is the redemption token's
// precision minus the manager's decimals diff.
func (a *Adapter) ConvertFiat(fiatAmount int64) (int64, error) {
	if fiatAmount <= 0 {
		return 0, nil
	}

	rate, rateDecimals, err := a.Quote()
	if err != nil {
		return 0, fmt.Errorf("quote %s/%s: %w", a.payoutSymbol, a.fiatCurrency, err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("non-positive rate for %s/%s: %d", a.payoutSymbol, a.fiatCurrency, rate)
	}

	diff := a.tokens.RedemptionTokenDecimalsDiff(a.payoutSymbol)
	payoutDecimals := int32(fpmath.TokenConfig.DecimalPrecision) - int32(diff)

	fiat := decimal.New(fiatAmount, -int32(fpmath.FiatConfig.DecimalPrecision))
	px := decimal.New(rate, -int32(rateDecimals))

	units := fiat.Div(px).Shift(payoutDecimals).Floor()
	if !units.IsInteger() || units.BigInt().BitLen() > 62 {
		return 0, fmt.Errorf("payout conversion overflow for fiat %d", fiatAmount)
	}

	return units.IntPart(), nil
}

// AuthorizePayout converts a fiat amount to payout-asset units and
// verifies the fund's payout balance covers it. The whole settlement
// aborts when the balance is short.
func (a *Adapter) AuthorizePayout(fiatAmount int64) (int64, error) {
	units, err := a.ConvertFiat(fiatAmount)
	if err != nil {
		return 0, err
	}

	holder := a.tokens.RedemptionTokenAddress()
	available := a.tokens.PayoutAssetBalance(a.payoutSymbol, holder)
	if available < units {
		return 0, fmt.Errorf("%w: have=%d, need=%d (fiat=%d)",
			ErrInsufficientLiquidity, available, units, fiatAmount)
	}

	return units, nil
}

// PayoutSymbol returns the payout asset this adapter disburses.
func (a *Adapter) PayoutSymbol() string {
	return a.payoutSymbol
}
