// =============================
// File: internal/mev/watcher.go
// =============================
package mev

import (
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-mev/internal/metrics"
	"github.com/rovshanmuradov/solana-mev/internal/mevlog"
	"github.com/rovshanmuradov/solana-mev/internal/wallet"
)

// TxView is the read-only slice of a transaction the engine needs from
// the host runtime: the accounts it references and the programs it
// invokes.
type TxView interface {
	AccountKeys() []solana.PublicKey
	ProgramIDs() []solana.PublicKey
}

// TxMeta identifies the observed transaction in log records.
type TxMeta struct {
	Hash      solana.Hash
	Signature solana.Signature
	Slot      uint64
}

// Submission is a ready-to-submit arbitrage transaction together with
// the profit the integer simulation predicts for it.
type Submission struct {
	Tx     *solana.Transaction
	Profit uint64
}

// EngineConfig is the process-wide, read-only engine configuration.
// It is built once at startup (pool authorities derived, paths
// validated) and then shared across every concurrent evaluation.
type EngineConfig struct {
	Pools           []PoolAddresses
	Paths           []MevPath
	WatchedPrograms []solana.PublicKey
	MinimumProfit   map[solana.PublicKey]uint64
}

// Mev is the per-runtime opportunity orchestrator. It runs inline on
// whichever thread processes a transaction; its only shared mutable
// state is the async log channel, which is multi-producer safe.
type Mev struct {
	cfg       *EngineConfig
	authority *wallet.Wallet
	log       *mevlog.Log
	logger    *zap.Logger

	watchedPrograms map[solana.PublicKey]struct{}
	monitoredPools  map[solana.PublicKey]struct{}
	mevKeys         []solana.PublicKey
}

// New builds the orchestrator. The authority may be nil: the engine
// then observes and logs opportunities without producing transactions.
func New(cfg *EngineConfig, authority *wallet.Wallet, log *mevlog.Log, logger *zap.Logger) *Mev {
	watched := make(map[solana.PublicKey]struct{}, len(cfg.WatchedPrograms))
	for _, program := range cfg.WatchedPrograms {
		watched[program] = struct{}{}
	}

	monitored := make(map[solana.PublicKey]struct{}, len(cfg.Pools))
	var keys []solana.PublicKey
	for i := range cfg.Pools {
		pool := &cfg.Pools[i]
		monitored[pool.Address] = struct{}{}
		keys = append(keys, pool.Address, pool.PoolAAccount, pool.PoolBAccount)
		if pool.Source != nil {
			keys = append(keys, *pool.Source)
		}
		if pool.Destination != nil {
			keys = append(keys, *pool.Destination)
		}
		keys = append(keys, pool.PoolMint, pool.PoolFee)
	}

	return &Mev{
		cfg:             cfg,
		authority:       authority,
		log:             log,
		logger:          logger.Named("mev_watcher"),
		watchedPrograms: watched,
		monitoredPools:  monitored,
		mevKeys:         keys,
	}
}

// IsInteresting reports whether a transaction touches a monitored pool
// or invokes a watched program. Uninteresting transactions incur no
// snapshot and no further overhead.
func (m *Mev) IsInteresting(tx TxView) bool {
	for _, program := range tx.ProgramIDs() {
		if _, ok := m.watchedPrograms[program]; ok {
			return true
		}
	}
	for _, key := range tx.AccountKeys() {
		if _, ok := m.monitoredPools[key]; ok {
			return true
		}
	}
	return false
}

// MevKeys is the full set of monitored accounts the host should load
// alongside an interesting transaction, so the pre-state snapshot is
// consistent with what the transaction itself observed.
func (m *Mev) MevKeys() []solana.PublicKey {
	return m.mevKeys
}

// CapturePoolStates snapshots the monitored pools from a loaded
// account set. A decode failure abandons MEV evaluation for this
// transaction only; the transaction's own execution is untouched.
func (m *Mev) CapturePoolStates(loader AccountLoader) (PoolStates, error) {
	states, err := CapturePoolStates(m.cfg.Pools, loader)
	if err != nil {
		metrics.DecodeFailures.Inc()
		m.logger.Warn("Abandoning MEV evaluation for transaction", zap.Error(err))
		return nil, err
	}
	return states, nil
}

// Evaluate runs every configured path against the post-execution
// snapshot, logs the pre/post diff unconditionally, logs qualifying
// opportunities, and returns a submission when a transaction was
// actually produced. Everything here is read-only with respect to the
// host runtime; nothing propagates out as an error.
func (m *Mev) Evaluate(pre, post PoolStates, meta TxMeta, blockhash solana.Hash) *Submission {
	timer := prometheus.NewTimer(metrics.EvaluationLatency)
	defer timer.ObserveDuration()
	metrics.EvaluatedTransactions.Inc()

	m.send(NewPoolStateDiffRecord(meta, pre, post))

	outputs := GetArbitrageTxOutputs(m.cfg.Paths, post, m.authority, blockhash)
	qualifying := FilterByMinimumProfit(outputs, m.cfg.Paths, post, m.cfg.MinimumProfit)
	if len(qualifying) == 0 {
		return nil
	}
	metrics.Opportunities.Add(float64(len(qualifying)))

	data := make([]OpportunityWithInput, 0, len(qualifying))
	for _, output := range qualifying {
		data = append(data, OpportunityWithInput{
			Opportunity:      &m.cfg.Paths[output.PathIdx],
			InputOutputPairs: output.InputOutputPairs,
		})
	}
	m.send(NewOpportunityRecord(data))

	best := BestOpportunity(qualifying)
	if best == nil || best.Tx == nil {
		// Opportunity observed but not tradable (missing accounts or
		// no authority) — logged above, nothing to submit.
		return nil
	}
	return &Submission{Tx: best.Tx, Profit: best.Profit}
}

// LogExecution records the outcome of submitting a produced
// transaction.
func (m *Mev) LogExecution(hash solana.Hash, signature solana.Signature, successful bool, possibleProfit uint64) {
	m.send(NewExecutedTransactionRecord(hash, signature, successful, possibleProfit))
}

// send is fire-and-forget: a dead log worker costs a local warning,
// never an error on the transaction path.
func (m *Mev) send(record any) {
	if err := m.log.Send(record); err != nil {
		m.logger.Warn("Could not send MEV record", zap.Error(err))
	}
}
