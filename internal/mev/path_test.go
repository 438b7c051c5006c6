package mev

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-mev/internal/wallet"
)

// testKey делает детерминированный публичный ключ для фикстур.
func testKey(tag byte) solana.PublicKey {
	var raw [32]byte
	raw[0] = tag
	raw[31] = tag
	return solana.PublicKeyFromBytes(raw[:])
}

func keyPtr(tag byte) *solana.PublicKey {
	key := testKey(tag)
	return &key
}

func uint64Ptr(v uint64) *uint64 { return &v }

var (
	poolOne   = testKey(0x10)
	poolTwo   = testKey(0x20)
	poolThree = testKey(0x30)
)

// triangleFees — 25 bps trade + 5 bps owner, host 0/1, как у
// реальных Orca-пулов.
func triangleFees() Fees {
	return Fees{
		TradeFeeNumerator:        25,
		TradeFeeDenominator:      10000,
		OwnerTradeFeeNumerator:   5,
		OwnerTradeFeeDenominator: 10000,
		HostFeeNumerator:         0,
		HostFeeDenominator:       1,
	}
}

// trianglePoolStates строит снимок трех пулов с дисбалансом, дающим
// прибыльный цикл BtoA -> BtoA -> AtoB. Балансы взяты из реального
// mainnet-снимка.
func trianglePoolStates() PoolStates {
	newState := func(address solana.PublicKey, tag byte, aBalance, bBalance uint64) *PoolState {
		pool := PoolAddresses{
			ProgramID:     OrcaProgramID,
			Address:       address,
			PoolAAccount:  testKey(tag + 1),
			PoolBAccount:  testKey(tag + 2),
			Source:        keyPtr(tag + 3),
			Destination:   keyPtr(tag + 4),
			PoolMint:      testKey(tag + 5),
			PoolFee:       testKey(tag + 6),
			PoolAuthority: testKey(tag + 7),
		}
		return &PoolState{
			Pool:               pool,
			PoolABalance:       aBalance,
			PoolBBalance:       bBalance,
			PoolAMint:          testKey(tag + 8),
			PoolBMint:          testKey(tag + 9),
			SourceBalance:      uint64Ptr(10_000_000_000_000),
			DestinationBalance: uint64Ptr(10_000_000_000_000),
			Fees:               triangleFees(),
			CurveType:          CurveConstantProduct,
			Curve:              ConstantProductCurve{},
		}
	}
	return PoolStates{
		poolOne:   newState(poolOne, 0x10, 4_618_233_234, 6_400_518_033),
		poolTwo:   newState(poolTwo, 0x20, 54_896_627_850_684, 13_408_494_240),
		poolThree: newState(poolThree, 0x30, 400_881_658_679, 138_436_018_345),
	}
}

func trianglePath() MevPath {
	return MevPath{
		Name: "triangle",
		Path: []PairInfo{
			{Pool: poolOne, Direction: TradeBtoA},
			{Pool: poolTwo, Direction: TradeBtoA},
			{Pool: poolThree, Direction: TradeAtoB},
		},
	}
}

func testAuthority(t *testing.T) *wallet.Wallet {
	t.Helper()
	account := solana.NewWallet()
	return &wallet.Wallet{
		PrivateKey: account.PrivateKey,
		PublicKey:  account.PublicKey(),
	}
}

func TestMevPathValidate(t *testing.T) {
	path := trianglePath()
	// Треугольник не замыкается на первый пул, поэтому невалиден
	// без дополнительного хопа обратно
	assert.Error(t, path.Validate())

	closed := MevPath{
		Name: "closed",
		Path: []PairInfo{
			{Pool: poolOne, Direction: TradeBtoA},
			{Pool: poolTwo, Direction: TradeBtoA},
			{Pool: poolOne, Direction: TradeAtoB},
		},
	}
	assert.NoError(t, closed.Validate())

	// Первый и последний хоп идентичны: круговой ноу-оп
	noop := MevPath{
		Name: "noop",
		Path: []PairInfo{
			{Pool: poolOne, Direction: TradeBtoA},
			{Pool: poolOne, Direction: TradeBtoA},
		},
	}
	assert.Error(t, noop.Validate())

	empty := MevPath{Name: "empty"}
	assert.Error(t, empty.Validate())
}

func TestParseTradeDirection(t *testing.T) {
	d, err := ParseTradeDirection("AtoB")
	require.NoError(t, err)
	assert.Equal(t, TradeAtoB, d)

	d, err = ParseTradeDirection("BtoA")
	require.NoError(t, err)
	assert.Equal(t, TradeBtoA, d)

	_, err = ParseTradeDirection("upward")
	assert.Error(t, err)
}

func TestInputAmountMarginalPrice(t *testing.T) {
	states := trianglePoolStates()
	path := trianglePath()

	input, marginalPrice, ok := path.inputAmountMarginalPrice(states)
	require.True(t, ok)
	assert.Equal(t, 1010.9851646730779, marginalPrice)
	assert.Equal(t, 4099483579.109189, input)
}

func TestInputAmountClampedToUserBalance(t *testing.T) {
	states := trianglePoolStates()
	path := trianglePath()

	// Первый хоп BtoA питается из destination-аккаунта первого пула
	states[poolOne].DestinationBalance = uint64Ptr(1_000_000_000)

	input, _, ok := path.inputAmountMarginalPrice(states)
	require.True(t, ok)
	assert.Equal(t, 1_000_000_000.0, input)
}

func TestBuildTxOutputProfitableCycle(t *testing.T) {
	states := trianglePoolStates()
	path := trianglePath()
	authority := testAuthority(t)
	blockhash := solana.Hash(testKey(0xAA))

	output, ok := path.buildTxOutput(states, authority, blockhash, 0)
	require.True(t, ok)

	// Точная целочисленная симуляция каждого хопа
	require.Len(t, output.InputOutputPairs, 3)
	assert.Equal(t, InputOutputPair{TokenIn: 4_099_483_579, TokenOut: 1_799_781_506}, output.InputOutputPairs[0])
	assert.Equal(t, InputOutputPair{TokenIn: 1_799_781_506, TokenOut: 6_479_400_819_484}, output.InputOutputPairs[1])
	assert.Equal(t, InputOutputPair{TokenIn: 6_479_400_819_484, TokenOut: 130_347_150_790}, output.InputOutputPairs[2])

	assert.Equal(t, uint64(126_247_667_211), output.Profit)
	assert.Equal(t, 1010.9851646730779, output.MarginalPrice)
	require.NotNil(t, output.Tx)
	assert.Len(t, output.Tx.Message.Instructions, 3)
}

func TestBuildTxOutputWithoutUserAccounts(t *testing.T) {
	states := trianglePoolStates()
	path := trianglePath()

	// Без user-аккаунтов возможность наблюдается, но транзакции нет
	for _, state := range states {
		state.Pool.Source = nil
		state.Pool.Destination = nil
		state.SourceBalance = nil
		state.DestinationBalance = nil
	}

	output, ok := path.buildTxOutput(states, testAuthority(t), solana.Hash{}, 0)
	require.True(t, ok)
	assert.Nil(t, output.Tx)
	assert.Equal(t, uint64(126_247_667_211), output.Profit)
}

func TestBuildTxOutputWithoutAuthority(t *testing.T) {
	states := trianglePoolStates()
	path := trianglePath()

	output, ok := path.buildTxOutput(states, nil, solana.Hash{}, 0)
	require.True(t, ok)
	assert.Nil(t, output.Tx)
	assert.Equal(t, uint64(126_247_667_211), output.Profit)
}

func TestBuildTxOutputNoOpportunity(t *testing.T) {
	states := trianglePoolStates()

	// Тот же треугольник в обратную сторону: маржинальная цена < 1
	reversed := MevPath{
		Name: "reversed",
		Path: []PairInfo{
			{Pool: poolThree, Direction: TradeBtoA},
			{Pool: poolTwo, Direction: TradeAtoB},
			{Pool: poolOne, Direction: TradeAtoB},
		},
	}

	_, ok := reversed.buildTxOutput(states, nil, solana.Hash{}, 0)
	assert.False(t, ok)
}

func TestBuildTxOutputDrainedReserve(t *testing.T) {
	states := trianglePoolStates()
	path := trianglePath()

	// Осушенный пул валиден on-chain: нулевой from-резерв первого хопа
	// дает ratio = +Inf и Inf/Inf = NaN в расчете оптимального входа.
	// Такой путь должен выродиться в "нет возможности", а не в сделку
	// неопределенного размера из float->uint каста NaN
	states[poolOne].PoolBBalance = 0

	_, _, ok := path.inputAmountMarginalPrice(states)
	assert.False(t, ok)

	_, ok = path.buildTxOutput(states, nil, solana.Hash{}, 0)
	assert.False(t, ok)

	// То же с осушенным резервом на среднем хопе
	states = trianglePoolStates()
	states[poolTwo].PoolBBalance = 0
	_, _, ok = path.inputAmountMarginalPrice(states)
	assert.False(t, ok)
}

func TestBuildTxOutputShrunkReserves(t *testing.T) {
	states := trianglePoolStates()

	// Резервы A-стороны просели: дисбаланс исчез, маржинальная цена
	// падает сильно ниже единицы
	states[poolOne].PoolABalance = 64_005_199
	states[poolTwo].PoolABalance = 13_408_494_240
	states[poolThree].PoolABalance = 1_384_360_183_450

	path := trianglePath()
	_, _, ok := path.inputAmountMarginalPrice(states)
	assert.False(t, ok)

	_, ok = path.buildTxOutput(states, nil, solana.Hash{}, 0)
	assert.False(t, ok)
}

func TestBuildTxOutputMissingPool(t *testing.T) {
	states := trianglePoolStates()
	delete(states, poolTwo)

	path := trianglePath()
	_, ok := path.buildTxOutput(states, nil, solana.Hash{}, 0)
	assert.False(t, ok)
}

func TestSwapInstructionData(t *testing.T) {
	data := swapInstructionData(258, 1)
	require.Len(t, data, 17)
	assert.Equal(t, byte(1), data[0])
	// amount_in = 258 little-endian
	assert.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, data[1:9])
	// minimum_amount_out = 1
	assert.Equal(t, []byte{0x01, 0, 0, 0, 0, 0, 0, 0}, data[9:17])
}
