// =============================
// File: internal/mev/path.go
// =============================
package mev

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-mev/internal/wallet"
)

// TradeDirection fixes which pool reserve is "from" and which is "to"
// for one hop.
type TradeDirection uint8

const (
	TradeAtoB TradeDirection = iota
	TradeBtoA
)

func (d TradeDirection) String() string {
	if d == TradeAtoB {
		return "AtoB"
	}
	return "BtoA"
}

// ParseTradeDirection parses the configuration form "AtoB"/"BtoA".
func ParseTradeDirection(s string) (TradeDirection, error) {
	switch s {
	case "AtoB":
		return TradeAtoB, nil
	case "BtoA":
		return TradeBtoA, nil
	default:
		return 0, fmt.Errorf("invalid trade direction %q", s)
	}
}

func (d TradeDirection) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *TradeDirection) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTradeDirection(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PairInfo is one hop of a path: a pool and the direction to trade it.
type PairInfo struct {
	Pool      solana.PublicKey `json:"pool"`
	Direction TradeDirection   `json:"direction"`
}

// MevPath is a named, ordered sequence of hops describing a round trip
// through one or more pools.
type MevPath struct {
	Name string     `json:"name"`
	Path []PairInfo `json:"path"`
}

// Validate enforces the path invariants at configuration load time:
// the first and last hop must reference the same pool, and must not be
// the identical hop (same pool and same direction) — a path has to be
// a net-different round trip, not a no-op. A broken path definition is
// a configuration error and loading must fail fast.
func (p *MevPath) Validate() error {
	if len(p.Path) == 0 {
		return fmt.Errorf("path %q has no hops", p.Name)
	}
	first := p.Path[0]
	last := p.Path[len(p.Path)-1]
	if !first.Pool.Equals(last.Pool) {
		return fmt.Errorf("path %q does not close: first hop pool %s, last hop pool %s",
			p.Name, first.Pool, last.Pool)
	}
	if first == last {
		return fmt.Errorf("path %q first and last hop are identical (%s %s)",
			p.Name, first.Pool, first.Direction)
	}
	return nil
}

// InputOutputPair records the exact token amounts of one simulated hop.
type InputOutputPair struct {
	TokenIn  uint64 `json:"token_in"`
	TokenOut uint64 `json:"token_out"`
}

// MevTxOutput is the result of evaluating one path against a pool
// state snapshot. Tx is nil when a hop lacks an engine-owned account
// or no signing authority is configured; the amounts and profit are
// still reported for observability.
type MevTxOutput struct {
	Tx               *solana.Transaction
	PathIdx          int
	InputOutputPairs []InputOutputPair
	Profit           uint64
	MarginalPrice    float64
}

// inputAmountMarginalPrice walks the path once and returns the
// profit-maximizing first-hop input and the path's marginal price (the
// product of per-hop reserve ratios and fee multipliers). The optimal
// input follows the closed form for chained constant-product pools:
// maximize x*M(x) - x under linear marginal-price degradation, giving
// (sqrt(M)-1)/D with D accumulated per hop. ok=false means missing
// pool data, M <= 1, or a degenerate denominator — no opportunity.
func (p *MevPath) inputAmountMarginalPrice(states PoolStates) (float64, float64, bool) {
	marginalPriceAcc := 1.0
	optimalInputDenominator := 0.0
	previousRatio := 1.0
	totalFeeAcc := 1.0
	for _, hop := range p.Path {
		state, found := states[hop.Pool]
		if !found {
			return 0, 0, false
		}

		var balanceFrom, balanceTo float64
		switch hop.Direction {
		case TradeAtoB:
			balanceFrom = float64(state.PoolABalance)
			balanceTo = float64(state.PoolBBalance)
		case TradeBtoA:
			balanceFrom = float64(state.PoolBBalance)
			balanceTo = float64(state.PoolABalance)
		}

		totalFee := 1.0 - (state.Fees.hostFraction() + state.Fees.ownerTradeFraction() + state.Fees.tradeFraction())
		ratio := balanceTo / balanceFrom
		marginalPriceAcc *= ratio
		marginalPriceAcc *= totalFee
		totalFeeAcc *= totalFee

		optimalInputDenominator += totalFeeAcc * (previousRatio / balanceFrom)
		previousRatio = previousRatio * ratio
	}
	if marginalPriceAcc <= 1 {
		return 0, 0, false
	}
	if optimalInputDenominator <= 0 {
		return 0, 0, false
	}
	optimalInput := (math.Sqrt(marginalPriceAcc) - 1) / optimalInputDenominator
	// Осушенный резерв дает ratio = +Inf и дальше Inf/Inf = NaN,
	// который проходит оба предыдущих guard-а
	if math.IsNaN(optimalInput) || math.IsInf(optimalInput, 0) {
		return 0, 0, false
	}

	// Never trade more than the engine actually holds in the first
	// hop's source account, when that balance is known.
	if balance, known := p.firstHopUserBalance(states); known && float64(balance) < optimalInput {
		optimalInput = float64(balance)
	}
	return optimalInput, marginalPriceAcc, true
}

// firstHopUserBalance resolves the engine-owned balance feeding the
// first hop, which depends on the hop's direction.
func (p *MevPath) firstHopUserBalance(states PoolStates) (uint64, bool) {
	state, found := states[p.Path[0].Pool]
	if !found {
		return 0, false
	}
	var balance *uint64
	if p.Path[0].Direction == TradeAtoB {
		balance = state.SourceBalance
	} else {
		balance = state.DestinationBalance
	}
	if balance == nil {
		return 0, false
	}
	return *balance, true
}

// swapArguments collects everything needed to build one swap
// instruction for one hop.
type swapArguments struct {
	programID       solana.PublicKey
	swapPubkey      solana.PublicKey
	authority       solana.PublicKey
	source          solana.PublicKey
	swapSource      solana.PublicKey
	swapDestination solana.PublicKey
	destination     solana.PublicKey
	poolMint        solana.PublicKey
	poolFee         solana.PublicKey
	amountIn        uint64
	minimumOut      uint64
}

// buildTxOutput sizes the path analytically, re-simulates it with exact
// integer arithmetic and, when the engine can actually trade it,
// assembles and signs the arbitrage transaction. Float sizing can
// overestimate; truncation wiping out the profit is an expected
// outcome and yields ok=false, not an error.
func (p *MevPath) buildTxOutput(states PoolStates, authority *wallet.Wallet, blockhash solana.Hash, pathIdx int) (*MevTxOutput, bool) {
	input, marginalPrice, ok := p.inputAmountMarginalPrice(states)
	if !ok {
		return nil, false
	}
	if input >= math.MaxUint64 {
		return nil, false
	}
	initialAmount := uint64(math.Floor(input))
	if initialAmount == 0 {
		return nil, false
	}

	amountIn := initialAmount
	inputOutputPairs := make([]InputOutputPair, 0, len(p.Path))
	swapArgs := make([]*swapArguments, 0, len(p.Path))
	haveAllAccounts := true

	for _, hop := range p.Path {
		state, found := states[hop.Pool]
		if !found {
			return nil, false
		}

		totalFees, ok := state.Fees.totalTradingFee(amountIn)
		if !ok {
			return nil, false
		}
		if totalFees > amountIn {
			return nil, false
		}
		sourceLessFees := amountIn - totalFees

		var userSource, userDestination *solana.PublicKey
		var swapSource, swapDestination solana.PublicKey
		var swapSourceAmount, swapDestinationAmount uint64
		switch hop.Direction {
		case TradeAtoB:
			userSource = state.Pool.Source
			swapSource = state.Pool.PoolAAccount
			userDestination = state.Pool.Destination
			swapDestination = state.Pool.PoolBAccount
			swapSourceAmount = state.PoolABalance
			swapDestinationAmount = state.PoolBBalance
		case TradeBtoA:
			userSource = state.Pool.Destination
			swapSource = state.Pool.PoolBAccount
			userDestination = state.Pool.Source
			swapDestination = state.Pool.PoolAAccount
			swapSourceAmount = state.PoolBBalance
			swapDestinationAmount = state.PoolABalance
		}

		result, ok := state.Curve.SwapWithoutFees(sourceLessFees, swapSourceAmount, swapDestinationAmount)
		if !ok {
			return nil, false
		}

		inputOutputPairs = append(inputOutputPairs, InputOutputPair{
			TokenIn:  amountIn,
			TokenOut: result.DestinationAmountSwapped,
		})

		if userSource != nil && userDestination != nil {
			swapArgs = append(swapArgs, &swapArguments{
				programID:       state.Pool.ProgramID,
				swapPubkey:      hop.Pool,
				authority:       state.Pool.PoolAuthority,
				source:          *userSource,
				swapSource:      swapSource,
				swapDestination: swapDestination,
				destination:     *userDestination,
				poolMint:        state.Pool.PoolMint,
				poolFee:         state.Pool.PoolFee,
				amountIn:        amountIn,
				minimumOut:      0,
			})
		} else {
			haveAllAccounts = false
		}

		amountIn = result.DestinationAmountSwapped
	}

	if amountIn <= initialAmount {
		// Integer truncation erased the margin the float estimate saw.
		return nil, false
	}

	var tx *solana.Transaction
	if haveAllAccounts && authority != nil {
		signed, err := createSwapTx(swapArgs, blockhash, authority)
		if err == nil {
			tx = signed
		}
	}

	return &MevTxOutput{
		Tx:               tx,
		PathIdx:          pathIdx,
		InputOutputPairs: inputOutputPairs,
		Profit:           amountIn - initialAmount,
		MarginalPrice:    marginalPrice,
	}, true
}

// swapInstructionData packs the token-swap Swap instruction:
// tag 1, amount_in u64 LE, minimum_amount_out u64 LE.
func swapInstructionData(amountIn, minimumOut uint64) []byte {
	data := make([]byte, 17)
	data[0] = 1
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minimumOut)
	return data
}

// createSwapTx assembles one swap instruction per hop and signs the
// transaction with the configured authority.
func createSwapTx(swapArgs []*swapArguments, blockhash solana.Hash, authority *wallet.Wallet) (*solana.Transaction, error) {
	instructions := make([]solana.Instruction, 0, len(swapArgs))
	for _, args := range swapArgs {
		accounts := []*solana.AccountMeta{
			solana.NewAccountMeta(args.swapPubkey, false, false),
			solana.NewAccountMeta(args.authority, false, false),
			solana.NewAccountMeta(authority.PublicKey, false, true),
			solana.NewAccountMeta(args.source, true, false),
			solana.NewAccountMeta(args.swapSource, true, false),
			solana.NewAccountMeta(args.swapDestination, true, false),
			solana.NewAccountMeta(args.destination, true, false),
			solana.NewAccountMeta(args.poolMint, true, false),
			solana.NewAccountMeta(args.poolFee, true, false),
			solana.NewAccountMeta(solana.TokenProgramID, false, false),
		}
		instructions = append(instructions, solana.NewInstruction(
			args.programID, accounts, swapInstructionData(args.amountIn, args.minimumOut)))
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(authority.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to build arbitrage transaction: %w", err)
	}
	if err := authority.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign arbitrage transaction: %w", err)
	}
	return tx, nil
}
