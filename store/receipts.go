package store

import (
	"math/big"

	"github.com/DOIDFoundation/ethnode/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// storedReceipt holds the receipt fields that can not be derived from the
// including block.
type storedReceipt struct {
	Status            uint64
	CumulativeGasUsed uint64
	GasUsed           uint64
	ContractAddress   common.Address
	Logs              []*storedLog
}

type storedLog struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// ReadReceipts retrieves the receipts of block with all derived fields
// filled in.
func (bs *BlockStore) ReadReceipts(block *types.Block) types.Receipts {
	var (
		number = block.NumberU64()
		hash   = block.Hash()
	)
	data, err := bs.db.Get(receiptsKey(number, hash))
	if err != nil {
		bs.Logger.Error("failed to read receipts", "err", err, "number", number, "hash", hash)
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	var stored []*storedReceipt
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		bs.Logger.Error("Invalid receipts RLP", "hash", hash, "err", err)
		return nil
	}
	txs := block.Transactions()
	if len(stored) != len(txs) {
		bs.Logger.Error("receipt count mismatch", "hash", hash, "receipts", len(stored), "txs", len(txs))
		return nil
	}

	receipts := make(types.Receipts, len(stored))
	logIndex := uint(0)
	for i, s := range stored {
		r := &types.Receipt{
			Type:              txs[i].Type(),
			Status:            s.Status,
			CumulativeGasUsed: s.CumulativeGasUsed,
			GasUsed:           s.GasUsed,
			ContractAddress:   s.ContractAddress,
			TxHash:            txs[i].Hash(),
			BlockHash:         hash,
			BlockNumber:       new(big.Int).SetUint64(number),
			TransactionIndex:  uint(i),
			Logs:              make([]*types.Log, len(s.Logs)),
		}
		for j, l := range s.Logs {
			r.Logs[j] = &types.Log{
				Address:     l.Address,
				Topics:      l.Topics,
				Data:        l.Data,
				BlockNumber: number,
				TxHash:      r.TxHash,
				TxIndex:     uint(i),
				BlockHash:   hash,
				Index:       logIndex,
			}
			logIndex++
		}
		r.Bloom = types.LogsBloom(r.Logs)
		receipts[i] = r
	}
	return receipts
}

// WriteReceipts stores the receipts of a block.
func (bs *BlockStore) WriteReceipts(number uint64, hash common.Hash, receipts types.Receipts) {
	stored := make([]*storedReceipt, len(receipts))
	for i, r := range receipts {
		s := &storedReceipt{
			Status:            r.Status,
			CumulativeGasUsed: r.CumulativeGasUsed,
			GasUsed:           r.GasUsed,
			ContractAddress:   r.ContractAddress,
			Logs:              make([]*storedLog, len(r.Logs)),
		}
		for j, l := range r.Logs {
			s.Logs[j] = &storedLog{Address: l.Address, Topics: l.Topics, Data: l.Data}
		}
		stored[i] = s
	}
	data, err := rlp.EncodeToBytes(stored)
	if err != nil {
		bs.Logger.Error("failed to RLP encode receipts", "err", err)
		panic(err)
	}
	if err := bs.db.Set(receiptsKey(number, hash), data); err != nil {
		bs.Logger.Error("failed to store receipts", "err", err)
		panic(err)
	}
}
