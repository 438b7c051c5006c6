// =============================
// File: internal/mev/arbitrage.go
// =============================
package mev

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-mev/internal/wallet"
)

// GetArbitrageTxOutputs evaluates every configured path against the
// given pool state snapshot. Paths that hold no opportunity — missing
// pool data, marginal price at or below one, profit erased by integer
// truncation — simply produce no output. The authority may be nil, in
// which case all outputs are dry-run (no transaction attached).
func GetArbitrageTxOutputs(paths []MevPath, states PoolStates, authority *wallet.Wallet, blockhash solana.Hash) []MevTxOutput {
	var outputs []MevTxOutput
	for i := range paths {
		if output, ok := paths[i].buildTxOutput(states, authority, blockhash, i); ok {
			outputs = append(outputs, *output)
		}
	}
	return outputs
}

// pathInputMint resolves the mint of the token feeding a path's first
// hop. Minimum-profit thresholds are keyed by this mint: a path is a
// cycle, so the asset put at risk is the asset the profit accrues in.
func pathInputMint(path *MevPath, states PoolStates) (solana.PublicKey, bool) {
	state, found := states[path.Path[0].Pool]
	if !found {
		return solana.PublicKey{}, false
	}
	if path.Path[0].Direction == TradeAtoB {
		return state.PoolAMint, true
	}
	return state.PoolBMint, true
}

// FilterByMinimumProfit drops outputs whose profit falls below the
// configured minimum for their path's input mint. Mints without a
// configured minimum pass unconditionally.
func FilterByMinimumProfit(outputs []MevTxOutput, paths []MevPath, states PoolStates, minimumProfit map[solana.PublicKey]uint64) []MevTxOutput {
	if len(outputs) == 0 {
		return nil
	}
	filtered := outputs[:0:0]
	for _, output := range outputs {
		mint, found := pathInputMint(&paths[output.PathIdx], states)
		if found {
			if minimum, configured := minimumProfit[mint]; configured && output.Profit < minimum {
				continue
			}
		}
		filtered = append(filtered, output)
	}
	return filtered
}

// BestOpportunity picks the maximum-profit output. Ties are broken
// arbitrarily. Returns nil for an empty slice.
func BestOpportunity(outputs []MevTxOutput) *MevTxOutput {
	var best *MevTxOutput
	for i := range outputs {
		if best == nil || outputs[i].Profit > best.Profit {
			best = &outputs[i]
		}
	}
	return best
}
