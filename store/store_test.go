package store_test

import (
	"math/big"
	"os"
	"testing"

	"github.com/DOIDFoundation/ethnode/flags"
	"github.com/DOIDFoundation/ethnode/store"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlockStore(t *testing.T) *store.BlockStore {
	viper.SetDefault(flags.DB_Engine, "memdb")
	store, err := store.NewBlockStore(log.NewTMLogger(log.NewSyncWriter(os.Stdout)))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func signedTx(t *testing.T, nonce uint64) *types.Transaction {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	to := common.HexToAddress("0x01")
	tx, err := ethtypes.SignNewTx(key, ethtypes.HomesteadSigner{}, &ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      21000,
		GasPrice: big.NewInt(1),
		Value:    big.NewInt(1),
	})
	require.NoError(t, err)
	return tx
}

func testBlock(t *testing.T, number int64) *types.Block {
	header := &types.Header{
		Number:     big.NewInt(number),
		Difficulty: big.NewInt(131072),
		UncleHash:  types.EmptyUncleHash,
		Time:       uint64(number),
	}
	uncle := &types.Header{Number: big.NewInt(number - 1), Difficulty: big.NewInt(7)}
	return types.NewBlockWithHeader(header).WithBody(types.Body{
		Transactions: types.Transactions{signedTx(t, 0), signedTx(t, 1)},
		Uncles:       []*types.Header{uncle},
	})
}

func TestBlock(t *testing.T) {
	bs := newBlockStore(t)
	block := testBlock(t, 3)
	assert.Nil(t, bs.ReadBlock(3, block.Hash()))

	bs.WriteBlock(block)
	read := bs.ReadBlock(3, block.Hash())
	require.NotNil(t, read)
	assert.Equal(t, block.Hash(), read.Hash())
	assert.Len(t, read.Transactions(), 2)
	assert.Equal(t, block.Transactions()[1].Hash(), read.Transactions()[1].Hash())
	require.Len(t, read.Uncles(), 1)
	assert.Equal(t, block.Uncles()[0].Hash(), read.Uncles()[0].Hash())

	number := bs.ReadNumberByHash(block.Hash())
	require.NotNil(t, number)
	assert.Equal(t, uint64(3), *number)
	assert.Nil(t, bs.ReadNumberByHash(common.Hash{1}))
}

func TestTd(t *testing.T) {
	bs := newBlockStore(t)
	hash := common.Hash{1}
	assert.Nil(t, bs.ReadTd(1, hash))
	bs.WriteTd(1, hash, big.NewInt(12345))
	assert.Equal(t, big.NewInt(12345), bs.ReadTd(1, hash))
	bs.DeleteTd(1, hash)
	assert.Nil(t, bs.ReadTd(1, hash))
}

func TestReceipts(t *testing.T) {
	bs := newBlockStore(t)
	block := testBlock(t, 5)
	addr := common.HexToAddress("0xabcdef")
	topic := common.HexToHash("0x01")
	receipts := types.Receipts{
		{Status: 1, CumulativeGasUsed: 21000, GasUsed: 21000, Logs: []*types.Log{{Address: addr, Topics: []common.Hash{topic}, Data: []byte{1}}}},
		{Status: 1, CumulativeGasUsed: 42000, GasUsed: 21000, Logs: []*types.Log{{Address: addr}, {Address: addr}}},
	}
	bs.WriteBlock(block)
	bs.WriteReceipts(5, block.Hash(), receipts)

	read := bs.ReadReceipts(block)
	require.Len(t, read, 2)
	assert.Equal(t, block.Transactions()[1].Hash(), read[1].TxHash)
	assert.Equal(t, uint(1), read[1].TransactionIndex)
	assert.Equal(t, uint64(42000), read[1].CumulativeGasUsed)
	assert.Equal(t, block.Hash(), read[0].BlockHash)
	assert.Equal(t, big.NewInt(5), read[0].BlockNumber)
	require.Len(t, read[1].Logs, 2)
	assert.Equal(t, uint(2), read[1].Logs[1].Index)
	assert.Equal(t, read[1].TxHash, read[1].Logs[0].TxHash)
	assert.True(t, read[0].Bloom.Test(addr.Bytes()))
	assert.True(t, read[0].Bloom.Test(topic.Bytes()))
}
