package store

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"path/filepath"

	"github.com/DOIDFoundation/ethnode/flags"
	"github.com/DOIDFoundation/ethnode/types"
	cmtdb "github.com/cometbft/cometbft-db"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/spf13/viper"
)

type BlockStore struct {
	log.Logger
	db cmtdb.DB
}

func NewBlockStore(logger log.Logger) (*BlockStore, error) {
	homeDir := viper.GetString(flags.Home)
	db, err := cmtdb.NewDB("chaindata", cmtdb.BackendType(viper.GetString(flags.DB_Engine)), filepath.Join(homeDir, "data"))
	if err != nil {
		return nil, err
	}
	return &BlockStore{
		Logger: logger.With("module", "blockStore"),
		db:     db,
	}, nil
}

// ReadBlock retrieves the full block corresponding to number and hash.
func (bs *BlockStore) ReadBlock(number uint64, hash common.Hash) *types.Block {
	header := bs.ReadHeader(number, hash)
	if header == nil {
		return nil
	}
	body := bs.ReadBody(number, hash)
	if body == nil {
		return nil
	}
	return types.NewBlockWithHeader(header).WithBody(*body)
}

// WriteBlock stores header, body and hash to number mapping of a block.
func (bs *BlockStore) WriteBlock(block *types.Block) {
	bs.WriteBody(block.NumberU64(), block.Hash(), block.Body())
	bs.WriteHeader(block.Header())
}

// ReadHeader retrieves the block header corresponding to the hash.
func (bs *BlockStore) ReadHeader(number uint64, hash common.Hash) *types.Header {
	bz, err := bs.db.Get(headerKey(number, hash))
	if err != nil {
		bs.Logger.Error("failed to read block header", "err", err, "number", number, "hash", hash)
		return nil
	}

	if len(bz) == 0 {
		return nil
	}

	header := new(types.Header)
	if err := rlp.Decode(bytes.NewReader(bz), header); err != nil {
		bs.Logger.Error("Invalid block header RLP", "err", err, "number", number, "hash", hash)
		return nil
	}
	return header
}

// WriteHeader writes the block header corresponding to the hash.
func (bs *BlockStore) WriteHeader(header *types.Header) {
	var (
		hash   = header.Hash()
		number = header.Number.Uint64()
	)

	// Write the encoded header
	data, err := rlp.EncodeToBytes(header)
	if err != nil {
		bs.Logger.Error("failed to RLP encode header", "err", err)
		panic(err)
	}
	if err := bs.db.Set(headerKey(number, hash), data); err != nil {
		bs.Logger.Error("failed to store header by hash", "err", err)
		panic(err)
	}
	bs.WriteNumberByHash(hash, number)
}

// ReadBody retrieves the block body (transactions and uncles).
func (bs *BlockStore) ReadBody(number uint64, hash common.Hash) *types.Body {
	bz, err := bs.db.Get(bodyKey(number, hash))
	if err != nil {
		bs.Logger.Error("failed to read block body", "err", err, "number", number, "hash", hash)
		return nil
	}
	if len(bz) == 0 {
		return nil
	}
	body := new(types.Body)
	if err := rlp.Decode(bytes.NewReader(bz), body); err != nil {
		bs.Logger.Error("Invalid block body RLP", "hash", hash, "err", err)
		return nil
	}
	return body
}

// WriteBody stores the block body.
func (bs *BlockStore) WriteBody(number uint64, hash common.Hash, body *types.Body) {
	data, err := rlp.EncodeToBytes(body)
	if err != nil {
		bs.Logger.Error("failed to RLP encode body", "err", err)
		panic(err)
	}
	if err := bs.db.Set(bodyKey(number, hash), data); err != nil {
		bs.Logger.Error("failed to store block body", "err", err)
		panic(err)
	}
}

// ReadNumberByHash returns the header number assigned to a hash.
func (bs *BlockStore) ReadNumberByHash(hash common.Hash) *uint64 {
	data, err := bs.db.Get(headerNumberKey(hash))
	if err != nil {
		bs.Logger.Error("failed to read number by hash", "err", err, "hash", hash)
		panic(err)
	}
	if len(data) != 8 {
		return nil
	}
	number := binary.BigEndian.Uint64(data)
	return &number
}

// WriteNumberByHash stores the hash->number mapping.
func (bs *BlockStore) WriteNumberByHash(hash common.Hash, number uint64) {
	if err := bs.db.Set(headerNumberKey(hash), encodeBlockNumber(number)); err != nil {
		bs.Logger.Error("Failed to store hash to number mapping", "err", err)
		panic(err)
	}
}

// ReadTd retrieves a block's total difficulty corresponding to the hash.
func (bs *BlockStore) ReadTd(number uint64, hash common.Hash) *big.Int {
	data, err := bs.db.Get(headerTDKey(number, hash))
	if err != nil {
		bs.Logger.Error("Failed to read block total difficulty", "err", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	td := new(big.Int)
	if err := rlp.Decode(bytes.NewReader(data), td); err != nil {
		bs.Logger.Error("Invalid block total difficulty RLP", "hash", hash, "err", err)
		return nil
	}
	return td
}

// WriteTd stores the total difficulty of a block into the database.
func (bs *BlockStore) WriteTd(number uint64, hash common.Hash, td *big.Int) {
	data, err := rlp.EncodeToBytes(td)
	if err != nil {
		bs.Logger.Error("Failed to RLP encode block total difficulty", "err", err)
		panic(err)
	}
	if err := bs.db.Set(headerTDKey(number, hash), data); err != nil {
		bs.Logger.Error("Failed to store block total difficulty", "err", err)
		panic(err)
	}
}

// DeleteTd removes all block total difficulty data associated with a hash.
func (bs *BlockStore) DeleteTd(number uint64, hash common.Hash) {
	if err := bs.db.Delete(headerTDKey(number, hash)); err != nil {
		bs.Logger.Error("Failed to delete block total difficulty", "err", err)
		panic(err)
	}
}

func (bs *BlockStore) Close() error {
	bs.Logger.Debug("closing block store")
	return bs.db.Close()
}
