// =============================
// File: internal/mev/fees.go
// =============================
package mev

import "math/bits"

// Fees mirrors the spl-token-swap fee layout: four rational
// numerator/denominator pairs. The owner withdraw fee is carried for
// completeness of the on-chain layout but never enters the path math.
type Fees struct {
	TradeFeeNumerator           uint64 `json:"trade_fee_numerator"`
	TradeFeeDenominator         uint64 `json:"trade_fee_denominator"`
	OwnerTradeFeeNumerator      uint64 `json:"owner_trade_fee_numerator"`
	OwnerTradeFeeDenominator    uint64 `json:"owner_trade_fee_denominator"`
	OwnerWithdrawFeeNumerator   uint64 `json:"owner_withdraw_fee_numerator"`
	OwnerWithdrawFeeDenominator uint64 `json:"owner_withdraw_fee_denominator"`
	HostFeeNumerator            uint64 `json:"host_fee_numerator"`
	HostFeeDenominator          uint64 `json:"host_fee_denominator"`
}

// calculateFee computes floor(amount * numerator / denominator) with a
// 128-bit intermediate product. A zero numerator is always a zero fee,
// so a 0/0 fee pair is representable. A nonzero fee that truncates to
// zero is rounded up to one token, same as the on-chain program.
// Returns ok=false on a zero denominator or when the quotient does not
// fit in 64 bits; callers treat that as "no opportunity".
func calculateFee(amount, numerator, denominator uint64) (uint64, bool) {
	if numerator == 0 || amount == 0 {
		return 0, true
	}
	if denominator == 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(amount, numerator)
	if hi >= denominator {
		return 0, false
	}
	fee, _ := bits.Div64(hi, lo, denominator)
	if fee == 0 {
		fee = 1
	}
	return fee, true
}

// TradingFee is the part of the input amount taken as the pool's trade fee.
func (f *Fees) TradingFee(amount uint64) (uint64, bool) {
	return calculateFee(amount, f.TradeFeeNumerator, f.TradeFeeDenominator)
}

// OwnerTradingFee is the part of the input amount taken as the owner's fee.
func (f *Fees) OwnerTradingFee(amount uint64) (uint64, bool) {
	return calculateFee(amount, f.OwnerTradeFeeNumerator, f.OwnerTradeFeeDenominator)
}

// totalTradingFee is the combined trade and owner fee on one input
// amount, with the sum checked against wraparound: account data is
// untrusted and nothing stops a pool from carrying numerators above
// its denominators.
func (f *Fees) totalTradingFee(amount uint64) (uint64, bool) {
	tradeFee, ok := f.TradingFee(amount)
	if !ok {
		return 0, false
	}
	ownerFee, ok := f.OwnerTradingFee(amount)
	if !ok {
		return 0, false
	}
	total := tradeFee + ownerFee
	if total < tradeFee {
		return 0, false
	}
	return total, true
}

// feeFraction returns the fee as a float. A zero numerator is exactly
// zero regardless of the denominator, avoiding a spurious 0/0.
func feeFraction(numerator, denominator uint64) float64 {
	if numerator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

// tradeFraction, ownerTradeFraction and hostFraction feed the
// marginal-price multiplier 1 - (host + owner + trade).
func (f *Fees) tradeFraction() float64 {
	return feeFraction(f.TradeFeeNumerator, f.TradeFeeDenominator)
}

func (f *Fees) ownerTradeFraction() float64 {
	return feeFraction(f.OwnerTradeFeeNumerator, f.OwnerTradeFeeDenominator)
}

func (f *Fees) hostFraction() float64 {
	return feeFraction(f.HostFeeNumerator, f.HostFeeDenominator)
}
