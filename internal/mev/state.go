// =============================
// File: internal/mev/state.go
// =============================
package mev

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// OrcaProgramID is the mainnet Orca token-swap v2 program.
var OrcaProgramID = solana.MustPublicKeyFromBase58("9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP")

// spl token account layout offsets.
const (
	tokenAccountMintOffset   = 0
	tokenAccountAmountOffset = 64
	tokenAccountLen          = 165
)

// spl token-swap account layout offsets (after the leading version byte).
const (
	swapAccountVersion        = 1
	swapAccountFeesOffset     = 227
	swapAccountCurveOffset    = 291
	swapAccountLen            = 324
	swapAccountInitializedOff = 1
)

// PoolAddresses identifies one token-swap pool instance. Source and
// Destination are the engine's own token accounts on the A and B sides,
// present only when the engine holds inventory to trade with.
// PoolAuthority is always derived from the pool address and the owning
// program; it is never read from configuration.
type PoolAddresses struct {
	ProgramID     solana.PublicKey  `json:"program_id"`
	Address       solana.PublicKey  `json:"address"`
	PoolAAccount  solana.PublicKey  `json:"pool_a_account"`
	PoolBAccount  solana.PublicKey  `json:"pool_b_account"`
	Source        *solana.PublicKey `json:"source,omitempty"`
	Destination   *solana.PublicKey `json:"destination,omitempty"`
	PoolMint      solana.PublicKey  `json:"pool_mint"`
	PoolFee       solana.PublicKey  `json:"pool_fee"`
	PoolAuthority solana.PublicKey  `json:"pool_authority"`
}

// DeriveAuthority recomputes the program-derived pool authority. Must
// be called whenever Address or ProgramID changes.
func (p *PoolAddresses) DeriveAuthority() error {
	authority, _, err := solana.FindProgramAddress([][]byte{p.Address.Bytes()}, p.ProgramID)
	if err != nil {
		return fmt.Errorf("failed to derive pool authority for %s: %w", p.Address, err)
	}
	p.PoolAuthority = authority
	return nil
}

// PoolState is a snapshot of one pool at a single point in the
// transaction pipeline. Snapshots are never mutated in place; a fresh
// one is captured before and after every interesting transaction.
type PoolState struct {
	Pool         PoolAddresses    `json:"pool"`
	PoolABalance uint64           `json:"pool_a_balance"`
	PoolBBalance uint64           `json:"pool_b_balance"`
	PoolAMint    solana.PublicKey `json:"pool_a_mint"`
	PoolBMint    solana.PublicKey `json:"pool_b_mint"`

	// Balances of the engine-owned source/destination accounts, when
	// those accounts are configured.
	SourceBalance      *uint64 `json:"source_balance,omitempty"`
	DestinationBalance *uint64 `json:"destination_balance,omitempty"`

	Fees      Fees      `json:"fees"`
	CurveType CurveType `json:"curve_type"`

	Curve CurveCalculator `json:"-"`
}

// PoolStates maps pool address to its snapshot. A path hop whose pool
// is missing here is treated as "no data", not as an error.
type PoolStates map[solana.PublicKey]*PoolState

// AccountLoader is the host runtime's post-load view of account data,
// keyed by address. Implementations must be read-only.
type AccountLoader interface {
	Account(key solana.PublicKey) (data []byte, owner solana.PublicKey, ok bool)
}

// DecodeError marks a monitored account whose bytes did not match the
// expected binary layout. It aborts one transaction's MEV evaluation
// and nothing else.
type DecodeError struct {
	Account solana.PublicKey
	Reason  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode account %s: %s", e.Account, e.Reason)
}

// decodeTokenAccount extracts mint and amount from a spl token account.
func decodeTokenAccount(key solana.PublicKey, data []byte) (solana.PublicKey, uint64, error) {
	if len(data) < tokenAccountLen {
		return solana.PublicKey{}, 0, &DecodeError{Account: key, Reason: "token account data too short"}
	}
	mint := solana.PublicKeyFromBytes(data[tokenAccountMintOffset : tokenAccountMintOffset+32])
	amount := binary.LittleEndian.Uint64(data[tokenAccountAmountOffset : tokenAccountAmountOffset+8])
	return mint, amount, nil
}

// decodeSwapAccount extracts fees and curve type from a token-swap pool
// account (latest layout version only).
func decodeSwapAccount(key solana.PublicKey, data []byte) (Fees, CurveType, error) {
	if len(data) < swapAccountLen {
		return Fees{}, 0, &DecodeError{Account: key, Reason: "swap account data too short"}
	}
	if data[0] != swapAccountVersion {
		return Fees{}, 0, &DecodeError{Account: key, Reason: fmt.Sprintf("unsupported swap account version %d", data[0])}
	}
	if data[swapAccountInitializedOff] != 1 {
		return Fees{}, 0, &DecodeError{Account: key, Reason: "swap account not initialized"}
	}

	pos := swapAccountFeesOffset
	next := func() uint64 {
		v := binary.LittleEndian.Uint64(data[pos : pos+8])
		pos += 8
		return v
	}
	fees := Fees{
		TradeFeeNumerator:           next(),
		TradeFeeDenominator:         next(),
		OwnerTradeFeeNumerator:      next(),
		OwnerTradeFeeDenominator:    next(),
		OwnerWithdrawFeeNumerator:   next(),
		OwnerWithdrawFeeDenominator: next(),
		HostFeeNumerator:            next(),
		HostFeeDenominator:          next(),
	}
	return fees, CurveType(data[swapAccountCurveOffset]), nil
}

// CapturePoolStates snapshots every monitored pool from the loaded
// account set. Any account that fails to decode fails the whole
// snapshot: a partial snapshot would corrupt the path math for any
// path spanning the undecoded pool.
func CapturePoolStates(pools []PoolAddresses, loader AccountLoader) (PoolStates, error) {
	states := make(PoolStates, len(pools))
	for i := range pools {
		pool := &pools[i]

		poolData, _, ok := loader.Account(pool.Address)
		if !ok {
			return nil, &DecodeError{Account: pool.Address, Reason: "pool account not loaded"}
		}
		fees, curveType, err := decodeSwapAccount(pool.Address, poolData)
		if err != nil {
			return nil, err
		}
		curve, err := NewCurveCalculator(curveType)
		if err != nil {
			return nil, &DecodeError{Account: pool.Address, Reason: err.Error()}
		}

		aData, _, ok := loader.Account(pool.PoolAAccount)
		if !ok {
			return nil, &DecodeError{Account: pool.PoolAAccount, Reason: "reserve account not loaded"}
		}
		aMint, aBalance, err := decodeTokenAccount(pool.PoolAAccount, aData)
		if err != nil {
			return nil, err
		}

		bData, _, ok := loader.Account(pool.PoolBAccount)
		if !ok {
			return nil, &DecodeError{Account: pool.PoolBAccount, Reason: "reserve account not loaded"}
		}
		bMint, bBalance, err := decodeTokenAccount(pool.PoolBAccount, bData)
		if err != nil {
			return nil, err
		}

		state := &PoolState{
			Pool:         *pool,
			PoolABalance: aBalance,
			PoolBBalance: bBalance,
			PoolAMint:    aMint,
			PoolBMint:    bMint,
			Fees:         fees,
			CurveType:    curveType,
			Curve:        curve,
		}

		if pool.Source != nil {
			data, _, ok := loader.Account(*pool.Source)
			if !ok {
				return nil, &DecodeError{Account: *pool.Source, Reason: "source account not loaded"}
			}
			_, balance, err := decodeTokenAccount(*pool.Source, data)
			if err != nil {
				return nil, err
			}
			state.SourceBalance = &balance
		}
		if pool.Destination != nil {
			data, _, ok := loader.Account(*pool.Destination)
			if !ok {
				return nil, &DecodeError{Account: *pool.Destination, Reason: "destination account not loaded"}
			}
			_, balance, err := decodeTokenAccount(*pool.Destination, data)
			if err != nil {
				return nil, err
			}
			state.DestinationBalance = &balance
		}

		states[pool.Address] = state
	}
	return states, nil
}
