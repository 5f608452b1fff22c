package transactor_test

import (
	"math/big"
	"testing"

	"github.com/DOIDFoundation/ethnode/transactor"
	"github.com/DOIDFoundation/ethnode/types"
	cosmosdb "github.com/cosmos/cosmos-db"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	chainID  = big.NewInt(1337)
	signer   = ethtypes.LatestSignerForChainID(chainID)
	key, _   = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	sender   = crypto.PubkeyToAddress(key.PublicKey)
	coinbase = common.HexToAddress("0xc014ba5e")
	receiver = common.HexToAddress("0xbeef")
)

func newTree(t *testing.T) *iavl.MutableTree {
	db, err := cosmosdb.NewDB("state", cosmosdb.MemDBBackend, "")
	require.NoError(t, err)
	tree, err := iavl.NewMutableTree(db, 128, false)
	require.NoError(t, err)
	return tree
}

func fundedState(t *testing.T, amount uint64) *transactor.State {
	tree := newTree(t)
	state := transactor.NewState(tree)
	state.AddBalance(sender, uint256.NewInt(amount))
	for _, w := range state.Writes() {
		_, err := tree.Set(w.Key, w.Value)
		require.NoError(t, err)
	}
	_, _, err := tree.SaveVersion()
	require.NoError(t, err)
	immutable, err := tree.GetImmutable(1)
	require.NoError(t, err)
	return transactor.NewState(immutable)
}

func transfer(t *testing.T, nonce uint64, to *common.Address, value int64, data []byte) *types.Transaction {
	tx, err := ethtypes.SignNewTx(key, signer, &ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    big.NewInt(value),
		Gas:      100000,
		GasPrice: big.NewInt(1),
		Data:     data,
	})
	require.NoError(t, err)
	return tx
}

func header() *types.Header {
	return &types.Header{Number: big.NewInt(1), GasLimit: 8000000, Coinbase: coinbase}
}

func TestStateOverlay(t *testing.T) {
	state := fundedState(t, 1000)
	assert.EqualValues(t, 1000, state.Balance(sender).Uint64())
	assert.Zero(t, state.Nonce(sender))

	cpy := state.Copy()
	cpy.SetNonce(sender, 3)
	assert.True(t, cpy.SubBalance(sender, uint256.NewInt(400)))
	assert.False(t, cpy.SubBalance(sender, uint256.NewInt(601)))
	cpy.SetStorage(receiver, common.HexToHash("0x01"), common.HexToHash("0x2a"))

	assert.EqualValues(t, 3, cpy.Nonce(sender))
	assert.EqualValues(t, 600, cpy.Balance(sender).Uint64())
	assert.Equal(t, common.HexToHash("0x2a"), cpy.Storage(receiver, common.HexToHash("0x01")))
	// the original is untouched
	assert.Zero(t, state.Nonce(sender))
	assert.EqualValues(t, 1000, state.Balance(sender).Uint64())

	writes := cpy.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, byte('a'), writes[0].Key[0])
	assert.Equal(t, byte('s'), writes[1].Key[0])
	assert.NoError(t, cpy.Error())
}

func TestApplyTxs(t *testing.T) {
	state := fundedState(t, 1000000)
	txs := types.Transactions{
		transfer(t, 0, &receiver, 100, nil),
		transfer(t, 5, &receiver, 100, nil), // nonce gap
		transfer(t, 1, nil, 0, []byte{0x60, 0x00}),
	}
	result, err := transactor.ApplyTxs(state, header(), txs, signer)
	require.NoError(t, err)
	require.Len(t, result.Txs, 2)
	require.Len(t, result.Receipts, 2)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, 1, result.Rejected[0].Index)

	creationGas := transactor.IntrinsicGas([]byte{0x60, 0x00}, true)
	assert.EqualValues(t, 53000+16+4, creationGas)
	assert.EqualValues(t, 21000+creationGas, result.GasUsed)
	assert.EqualValues(t, 21000, result.Receipts[0].GasUsed)
	assert.EqualValues(t, result.GasUsed, result.Receipts[1].CumulativeGasUsed)
	assert.EqualValues(t, 1, result.Receipts[1].TransactionIndex)

	contract := crypto.CreateAddress(sender, 1)
	assert.Equal(t, contract, result.Receipts[1].ContractAddress)
	assert.Equal(t, []byte{0x60, 0x00}, state.Code(contract))

	require.Len(t, result.Receipts[0].Logs, 1)
	assert.Equal(t, transactor.TransferTopic, result.Receipts[0].Logs[0].Topics[0])
	assert.True(t, result.Bloom.Test(receiver.Bytes()))

	assert.EqualValues(t, 100, state.Balance(receiver).Uint64())
	assert.EqualValues(t, result.GasUsed, state.Balance(coinbase).Uint64())
	assert.EqualValues(t, 1000000-100-result.GasUsed, state.Balance(sender).Uint64())
	assert.EqualValues(t, 2, state.Nonce(sender))
	assert.NotEqual(t, types.EmptyRootHash, result.TxRoot)
}

func TestApplyTxsRejects(t *testing.T) {
	state := fundedState(t, 50000)
	txs := types.Transactions{
		transfer(t, 0, &receiver, 50000, nil), // cannot pay for gas
	}
	result, err := transactor.ApplyTxs(state, header(), txs, signer)
	require.NoError(t, err)
	assert.Empty(t, result.Txs)
	require.Len(t, result.Rejected, 1)
	assert.Contains(t, result.Rejected[0].Err, transactor.ErrInsufficientFunds.Error())
	assert.Empty(t, state.Writes())
	assert.Equal(t, types.EmptyRootHash, result.TxRoot)
}

func TestFinalize(t *testing.T) {
	state := transactor.NewState(nil)
	h := header()
	h.Number = big.NewInt(10)
	uncle := &types.Header{Number: big.NewInt(9), Coinbase: receiver}
	transactor.Finalize(state, h, []*types.Header{uncle})

	reward := transactor.BlockReward.ToBig()
	uncleReward := new(big.Int).Div(new(big.Int).Mul(reward, big.NewInt(7)), big.NewInt(8))
	minerReward := new(big.Int).Add(reward, new(big.Int).Div(reward, big.NewInt(32)))
	assert.Equal(t, uncleReward, state.Balance(receiver))
	assert.Equal(t, minerReward, state.Balance(coinbase))
}

func TestCall(t *testing.T) {
	state := transactor.NewState(nil)
	executed, err := transactor.Call(state, &types.Call{
		From:     sender,
		To:       &receiver,
		Gas:      50000000,
		GasPrice: big.NewInt(10),
		Value:    big.NewInt(5),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 21000, executed.GasUsed)
	assert.EqualValues(t, 50000000-21000, executed.Refunded)
	assert.Nil(t, executed.ContractAddress)
	// calls never touch the given state
	assert.Empty(t, state.Writes())

	executed, err = transactor.Call(state, &types.Call{From: sender, Nonce: 7, Gas: 100000})
	require.NoError(t, err)
	require.NotNil(t, executed.ContractAddress)
	assert.Equal(t, crypto.CreateAddress(sender, 7), *executed.ContractAddress)

	_, err = transactor.Call(state, &types.Call{From: sender, To: &receiver, Gas: 100})
	assert.ErrorIs(t, err, transactor.ErrIntrinsicGas)

	state.SetCode(receiver, []byte{0x01})
	_, err = transactor.Call(state, &types.Call{From: sender, To: &receiver, Gas: 50000})
	assert.ErrorIs(t, err, transactor.ErrContractUnsupported)
}
