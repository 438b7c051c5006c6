// =============================
// File: internal/mev/curve.go
// =============================
package mev

import (
	"fmt"
	"math/bits"
)

// CurveType tags the pricing curve a pool is configured with. The tags
// match the on-chain swap-curve discriminant.
type CurveType uint8

const (
	CurveConstantProduct CurveType = 0
	CurveConstantPrice   CurveType = 1
	CurveOffset          CurveType = 3
)

func (c CurveType) String() string {
	switch c {
	case CurveConstantProduct:
		return "constant_product"
	case CurveConstantPrice:
		return "constant_price"
	case CurveOffset:
		return "offset"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// SwapWithoutFeesResult is the outcome of one fee-less curve swap.
type SwapWithoutFeesResult struct {
	SourceAmountSwapped      uint64
	DestinationAmountSwapped uint64
}

// CurveCalculator prices a fee-less swap against a pool's reserves.
// New curve kinds plug in by adding a variant to NewCurveCalculator.
// ok=false means the swap degenerates (zero output, overflow) and the
// path being evaluated holds no opportunity.
type CurveCalculator interface {
	SwapWithoutFees(sourceAmount, swapSourceAmount, swapDestinationAmount uint64) (SwapWithoutFeesResult, bool)
}

// NewCurveCalculator selects the calculator for a pool's curve type.
// Constant product is the only curve currently exercised.
func NewCurveCalculator(t CurveType) (CurveCalculator, error) {
	switch t {
	case CurveConstantProduct:
		return ConstantProductCurve{}, nil
	default:
		return nil, fmt.Errorf("unsupported curve type %s", t)
	}
}

// ConstantProductCurve prices swaps by preserving from*to = k, with the
// new destination reserve rounded up in the pool's favour — the same
// rounding the on-chain program applies.
type ConstantProductCurve struct{}

func (ConstantProductCurve) SwapWithoutFees(sourceAmount, swapSourceAmount, swapDestinationAmount uint64) (SwapWithoutFeesResult, bool) {
	invHi, invLo := bits.Mul64(swapSourceAmount, swapDestinationAmount)
	newSource, carry := bits.Add64(swapSourceAmount, sourceAmount, 0)
	if carry != 0 || newSource == 0 {
		return SwapWithoutFeesResult{}, false
	}
	// The new destination reserve is at most the old one, so the
	// quotient fits in 64 bits whenever the invariant does not exceed
	// newSource<<64.
	if invHi >= newSource {
		return SwapWithoutFeesResult{}, false
	}
	newDestination, rem := bits.Div64(invHi, invLo, newSource)
	if rem != 0 {
		newDestination++
	}
	if newDestination > swapDestinationAmount {
		return SwapWithoutFeesResult{}, false
	}
	produced := swapDestinationAmount - newDestination
	if produced == 0 {
		// A zero-output trade is no trade.
		return SwapWithoutFeesResult{}, false
	}
	return SwapWithoutFeesResult{
		SourceAmountSwapped:      sourceAmount,
		DestinationAmountSwapped: produced,
	}, true
}
