package mev

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-mev/internal/mevlog"
)

// fakeTx реализует TxView поверх статических списков.
type fakeTx struct {
	accounts []solana.PublicKey
	programs []solana.PublicKey
}

func (f fakeTx) AccountKeys() []solana.PublicKey { return f.accounts }
func (f fakeTx) ProgramIDs() []solana.PublicKey  { return f.programs }

func newTestEngine(t *testing.T, paths []MevPath) (*Mev, string) {
	t.Helper()

	logPath := filepath.Join(t.TempDir(), "mev.ndjson")
	mevLog, err := mevlog.New(logPath, zap.NewNop())
	require.NoError(t, err)

	pools := make([]PoolAddresses, 0, 3)
	for _, state := range trianglePoolStates() {
		pools = append(pools, state.Pool)
	}

	cfg := &EngineConfig{
		Pools:           pools,
		Paths:           paths,
		WatchedPrograms: []solana.PublicKey{OrcaProgramID},
	}
	return New(cfg, nil, mevLog, zap.NewNop()), logPath
}

func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		var record map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, record)
	}
	require.NoError(t, scanner.Err())
	return records
}

func TestIsInteresting(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	// Транзакция, вызывающая отслеживаемую программу
	assert.True(t, engine.IsInteresting(fakeTx{programs: []solana.PublicKey{OrcaProgramID}}))

	// Транзакция, трогающая отслеживаемый пул напрямую
	assert.True(t, engine.IsInteresting(fakeTx{accounts: []solana.PublicKey{poolOne}}))

	// Посторонняя транзакция
	assert.False(t, engine.IsInteresting(fakeTx{
		accounts: []solana.PublicKey{testKey(0xF0)},
		programs: []solana.PublicKey{solana.SystemProgramID},
	}))
}

func TestMevKeysCoverAllPoolAccounts(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	keys := make(map[solana.PublicKey]struct{})
	for _, key := range engine.MevKeys() {
		keys[key] = struct{}{}
	}

	for _, state := range trianglePoolStates() {
		pool := state.Pool
		assert.Contains(t, keys, pool.Address)
		assert.Contains(t, keys, pool.PoolAAccount)
		assert.Contains(t, keys, pool.PoolBAccount)
		assert.Contains(t, keys, *pool.Source)
		assert.Contains(t, keys, *pool.Destination)
		assert.Contains(t, keys, pool.PoolMint)
		assert.Contains(t, keys, pool.PoolFee)
	}
}

func TestEvaluateEmptyPathsStillLogsDiff(t *testing.T) {
	engine, logPath := newTestEngine(t, nil)

	states := trianglePoolStates()
	meta := TxMeta{Slot: 1234}
	submission := engine.Evaluate(states, states, meta, solana.Hash{})
	assert.Nil(t, submission)

	engine.log.Shutdown()
	records := readRecords(t, logPath)
	// Ровно одна запись диффа и ни одной возможности
	require.Len(t, records, 1)
	assert.Contains(t, records[0], "orca_pre_tx_pool")
	assert.Contains(t, records[0], "orca_post_tx_pool")
	assert.Equal(t, float64(1234), records[0]["slot"])
}

func TestEvaluateLogsOpportunity(t *testing.T) {
	engine, logPath := newTestEngine(t, []MevPath{trianglePath()})

	states := trianglePoolStates()
	submission := engine.Evaluate(states, states, TxMeta{Slot: 1}, solana.Hash{})
	// Авторитет не настроен: возможность залогирована, но без транзакции
	assert.Nil(t, submission)

	engine.log.Shutdown()
	records := readRecords(t, logPath)
	require.Len(t, records, 2)
	assert.Equal(t, "opportunity", records[1]["event"])

	data, ok := records[1]["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	opportunity, ok := data[0].(map[string]any)
	require.True(t, ok)
	pairs, ok := opportunity["input_output_pairs"].([]any)
	require.True(t, ok)
	assert.Len(t, pairs, 3)
}

func TestEvaluateReturnsSubmission(t *testing.T) {
	engine, _ := newTestEngine(t, []MevPath{trianglePath()})
	engine.authority = testAuthority(t)

	states := trianglePoolStates()
	submission := engine.Evaluate(states, states, TxMeta{Slot: 1}, solana.Hash(testKey(0xAB)))
	require.NotNil(t, submission)
	require.NotNil(t, submission.Tx)
	assert.Equal(t, uint64(126_247_667_211), submission.Profit)

	engine.log.Shutdown()
}

func TestCaptureFailureAbandonsEvaluation(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	_, err := engine.CapturePoolStates(mapLoader{})
	assert.Error(t, err)

	engine.log.Shutdown()
}
