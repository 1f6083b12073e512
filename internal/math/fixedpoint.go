package math

import (
	"math/big"
	"sync"
)

// DecimalConfig defines fixed-point precision
type DecimalConfig struct {
	DecimalPrecision int   // Number of decimal places
	Scale            int64 // 10^DecimalPrecision
}

var (
	// Standard configs
	TokenConfig = DecimalConfig{DecimalPrecision: 6, Scale: 1_000_000} // redemption-token base units
	FiatConfig  = DecimalConfig{DecimalPrecision: 6, Scale: 1_000_000} // fiat unit of account
	NAVConfig   = DecimalConfig{DecimalPrecision: 6, Scale: 1_000_000} // fiat per whole token
)

// Int128 is a pooled big.Int for intermediate calculations
var int128Pool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt128() *big.Int {
	return int128Pool.Get().(*big.Int)
}

func putInt128(v *big.Int) {
	v.SetInt64(0) // Clear before returning to pool
	int128Pool.Put(v)
}

// MultiplyInt128 performs a * b using int128 to prevent overflow
func MultiplyInt128(a, b int64) *big.Int {
	result := getInt128()
	result.Mul(big.NewInt(a), big.NewInt(b))
	return result
}

// DivideInt128 performs numerator / denominator truncated toward zero.
// All monetary divisions in the settlement path floor — the residual
// stays pending rather than being rounded to a participant.
func DivideInt128(numerator *big.Int, denominator int64) int64 {
	denom := big.NewInt(denominator)
	quotient := getInt128()
	quotient.Quo(numerator, denom)

	result := quotient.Int64()
	putInt128(quotient)

	return result
}

// MulDiv computes floor(a * b / c) in 128-bit.
func MulDiv(a, b, c int64) int64 {
	product := MultiplyInt128(a, b)
	result := DivideInt128(product, c)
	putInt128(product)
	return result
}
