// =============================
// File: internal/mev/records.go
// =============================
package mev

import "github.com/gagliardetto/solana-go"

// Log record shapes. Every record is self-describing and carries its
// own slot/hash identity, so interleaving across concurrent producers
// does not need to be ordered beyond arrival.

// PoolStateDiffRecord captures the monitored pools before and after
// one observed transaction. Sent unconditionally for every interesting
// transaction, opportunity or not.
type PoolStateDiffRecord struct {
	TransactionHash      solana.Hash           `json:"transaction_hash"`
	TransactionSignature solana.Signature      `json:"transaction_signature"`
	Slot                 uint64                `json:"slot"`
	PrePools             map[string]*PoolState `json:"orca_pre_tx_pool"`
	PostPools            map[string]*PoolState `json:"orca_post_tx_pool"`
}

// NewPoolStateDiffRecord keys both snapshots by base58 pool address.
func NewPoolStateDiffRecord(meta TxMeta, pre, post PoolStates) *PoolStateDiffRecord {
	record := &PoolStateDiffRecord{
		TransactionHash:      meta.Hash,
		TransactionSignature: meta.Signature,
		Slot:                 meta.Slot,
		PrePools:             make(map[string]*PoolState, len(pre)),
		PostPools:            make(map[string]*PoolState, len(post)),
	}
	for address, state := range pre {
		record.PrePools[address.String()] = state
	}
	for address, state := range post {
		record.PostPools[address.String()] = state
	}
	return record
}

// OpportunityWithInput pairs a path with the exact per-hop amounts the
// integer simulation produced for it.
type OpportunityWithInput struct {
	Opportunity      *MevPath          `json:"opportunity"`
	InputOutputPairs []InputOutputPair `json:"input_output_pairs"`
}

// OpportunityRecord lists every opportunity that cleared its threshold
// for one observed transaction.
type OpportunityRecord struct {
	Event string                 `json:"event"`
	Data  []OpportunityWithInput `json:"data"`
}

func NewOpportunityRecord(data []OpportunityWithInput) *OpportunityRecord {
	return &OpportunityRecord{Event: "opportunity", Data: data}
}

// ExecutedTransactionRecord reports the outcome of submitting a
// produced arbitrage transaction.
type ExecutedTransactionRecord struct {
	Event string                  `json:"event"`
	Data  ExecutedTransactionData `json:"data"`
}

type ExecutedTransactionData struct {
	TransactionHash      solana.Hash      `json:"transaction_hash"`
	TransactionSignature solana.Signature `json:"transaction_signature"`
	IsSuccessful         bool             `json:"is_successful"`
	PossibleProfit       uint64           `json:"possible_profit"`
}

func NewExecutedTransactionRecord(hash solana.Hash, signature solana.Signature, successful bool, possibleProfit uint64) *ExecutedTransactionRecord {
	return &ExecutedTransactionRecord{
		Event: "executed_transaction",
		Data: ExecutedTransactionData{
			TransactionHash:      hash,
			TransactionSignature: signature,
			IsSuccessful:         successful,
			PossibleProfit:       possibleProfit,
		},
	}
}
