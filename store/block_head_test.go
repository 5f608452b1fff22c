package store_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashByNumber(t *testing.T) {
	store := newBlockStore(t)
	for i := uint64(0); i < 10; i++ {
		store.WriteHashByNumber(i, common.Hash{byte(i + 1)})
	}
	for i := uint64(0); i < 10; i++ {
		assert.Equal(t, common.Hash{byte(i + 1)}, store.ReadHashByNumber(i))
	}
	store.DeleteHashByNumber(5)
	assert.NotPanics(t, func() {
		store.DeleteHashByNumber(5)
	})
	assert.Equal(t, common.Hash{}, store.ReadHashByNumber(5))
	assert.NotEqual(t, common.Hash{}, store.ReadHashByNumber(6))
	store.DeleteHashByNumberFrom(5)
	for i := uint64(0); i < 5; i++ {
		assert.NotEqual(t, common.Hash{}, store.ReadHashByNumber(i))
	}
	for i := uint64(6); i < 10; i++ {
		assert.Equal(t, common.Hash{}, store.ReadHashByNumber(i))
	}
	assert.NotPanics(t, func() {
		store.DeleteHashByNumberFrom(11)
	})
}

func TestHeadHash(t *testing.T) {
	store := newBlockStore(t)
	store.WriteHeadBlockHash(common.Hash{1})
	assert.Equal(t, common.Hash{1}, store.ReadHeadBlockHash())
	assert.Nil(t, store.ReadHeadBlock())
	block := testBlock(t, 1)
	store.WriteBlock(block)
	store.WriteHeadBlockHash(block.Hash())
	assert.Equal(t, block.Hash(), store.ReadHeadBlockHash())
	require.NotNil(t, store.ReadHeadBlock())
	assert.Equal(t, block.Hash(), store.ReadHeadBlock().Hash())
}

func TestTxLookup(t *testing.T) {
	store := newBlockStore(t)
	block := testBlock(t, 7)
	tx := block.Transactions()[0]
	assert.Nil(t, store.ReadTxLookup(tx.Hash()))
	store.WriteTxLookups(block)
	number := store.ReadTxLookup(tx.Hash())
	require.NotNil(t, number)
	assert.Equal(t, uint64(7), *number)
	store.DeleteTxLookups(block)
	assert.Nil(t, store.ReadTxLookup(tx.Hash()))
}
