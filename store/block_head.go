package store

import (
	"encoding/binary"
	"math"

	"github.com/DOIDFoundation/ethnode/types"
	"github.com/ethereum/go-ethereum/common"
)

// ReadHashByNumber returns the canonical hash at number, zero if unknown.
func (bs *BlockStore) ReadHashByNumber(number uint64) common.Hash {
	hash, err := bs.db.Get(headerHashKey(number))
	if err != nil {
		bs.Logger.Error("failed to read hash by number", "err", err, "number", number)
		return common.Hash{}
	}
	return common.BytesToHash(hash)
}

// WriteHashByNumber stores hash by number for the head chain
func (bs *BlockStore) WriteHashByNumber(number uint64, hash common.Hash) {
	if err := bs.db.Set(headerHashKey(number), hash.Bytes()); err != nil {
		bs.Logger.Error("failed to store header hash by number", "err", err, "number", number, "hash", hash)
		panic(err)
	}
}

func (bs *BlockStore) DeleteHashByNumber(number uint64) {
	if err := bs.db.Delete(headerHashKey(number)); err != nil {
		bs.Logger.Error("failed to delete header hash by number", "err", err, "number", number)
		panic(err)
	}
}

func (bs *BlockStore) DeleteHashByNumberFrom(number uint64) {
	iter, err := bs.db.Iterator(headerHashKey(number), headerHashKey(math.MaxUint64))
	if err != nil {
		bs.Logger.Error("failed to delete header hashes since number", "err", err, "number", number)
		panic(err)
	}
	defer iter.Close()

	b := bs.db.NewBatch()
	defer b.Close()

	for iter.Valid() {
		if err := b.Delete(iter.Key()); err != nil {
			bs.Logger.Error("failed to delete header hashes since number", "err", err, "number", number)
			panic(err)
		}
		iter.Next()
	}

	if err = iter.Error(); err != nil {
		bs.Logger.Error("failed to delete header hashes since number", "err", err, "number", number)
		panic(err)
	}

	if err = b.WriteSync(); err != nil {
		bs.Logger.Error("failed to delete header hashes since number", "err", err, "number", number)
		panic(err)
	}
}

func (bs *BlockStore) ReadHeadBlockHash() common.Hash {
	hash, err := bs.db.Get(headBlockKey)
	if err != nil {
		bs.Logger.Error("failed to read head block hash", "err", err)
		return common.Hash{}
	}
	return common.BytesToHash(hash)
}

func (bs *BlockStore) WriteHeadBlockHash(hash common.Hash) {
	if err := bs.db.Set(headBlockKey, hash.Bytes()); err != nil {
		bs.Logger.Error("Failed to store last block's hash", "err", err, "hash", hash)
		panic(err)
	}
}

func (bs *BlockStore) ReadHeadBlock() *types.Block {
	headBlockHash := bs.ReadHeadBlockHash()
	if headBlockHash == (common.Hash{}) {
		return nil
	}
	number := bs.ReadNumberByHash(headBlockHash)
	if number == nil {
		return nil
	}
	return bs.ReadBlock(*number, headBlockHash)
}

// ReadTxLookup returns the canonical block number including a transaction.
func (bs *BlockStore) ReadTxLookup(hash common.Hash) *uint64 {
	data, err := bs.db.Get(txLookupKey(hash))
	if err != nil {
		bs.Logger.Error("failed to read transaction lookup", "err", err, "hash", hash)
		return nil
	}
	if len(data) != 8 {
		return nil
	}
	number := binary.BigEndian.Uint64(data)
	return &number
}

// WriteTxLookups indexes every transaction of block by its number.
func (bs *BlockStore) WriteTxLookups(block *types.Block) {
	b := bs.db.NewBatch()
	defer b.Close()

	enc := encodeBlockNumber(block.NumberU64())
	for _, tx := range block.Transactions() {
		if err := b.Set(txLookupKey(tx.Hash()), enc); err != nil {
			bs.Logger.Error("failed to store transaction lookup", "err", err)
			panic(err)
		}
	}
	if err := b.Write(); err != nil {
		bs.Logger.Error("failed to store transaction lookups", "err", err, "number", block.NumberU64())
		panic(err)
	}
}

// DeleteTxLookups drops the lookups of transactions in block.
func (bs *BlockStore) DeleteTxLookups(block *types.Block) {
	for _, tx := range block.Transactions() {
		if err := bs.db.Delete(txLookupKey(tx.Hash())); err != nil {
			bs.Logger.Error("failed to delete transaction lookup", "err", err)
			panic(err)
		}
	}
}
