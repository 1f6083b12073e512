package oracle

import (
	"fmt"
)

// PriceOracle supplies exchange rates between the payout asset and the
// fiat unit of account. Pure read — quoting never mutates state.
//
// Rate semantics follow the upstream feed convention: the returned
// rate is the fiat price of one whole unit of fromSymbol, scaled by
// 10^decimals.
type PriceOracle interface {
	LatestRateAndDecimals(fromSymbol, toSymbol string) (rate int64, decimals uint8, err error)
}

// StaticOracle serves fixed rates for local runs and tests.
type StaticOracle struct {
	rates    map[string]int64
	decimals uint8
}

func NewStaticOracle(decimals uint8) *StaticOracle {
	return &StaticOracle{
		rates:    make(map[string]int64),
		decimals: decimals,
	}
}

// SetRate fixes the fiat price of one whole fromSymbol unit,
// pre-scaled by 10^decimals.
func (o *StaticOracle) SetRate(fromSymbol, toSymbol string, rate int64) {
	o.rates[fromSymbol+"/"+toSymbol] = rate
}

func (o *StaticOracle) LatestRateAndDecimals(fromSymbol, toSymbol string) (int64, uint8, error) {
	rate, ok := o.rates[fromSymbol+"/"+toSymbol]
	if !ok {
		return 0, 0, fmt.Errorf("no rate for pair %s/%s", fromSymbol, toSymbol)
	}
	return rate, o.decimals, nil
}
