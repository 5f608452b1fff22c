package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

type Address = common.Address
type Hash = common.Hash
type Bloom = ethtypes.Bloom
type BlockNonce = ethtypes.BlockNonce
type Header = ethtypes.Header
type Block = ethtypes.Block
type Body = ethtypes.Body
type Transaction = ethtypes.Transaction
type Transactions = ethtypes.Transactions
type Receipt = ethtypes.Receipt
type Receipts = ethtypes.Receipts
type Log = ethtypes.Log

var (
	EncodeNonce        = ethtypes.EncodeNonce
	CopyHeader         = ethtypes.CopyHeader
	NewBlockWithHeader = ethtypes.NewBlockWithHeader
	EmptyUncleHash     = ethtypes.EmptyUncleHash
	EmptyRootHash      = ethtypes.EmptyRootHash
)

// LocalizedTransaction is a transaction together with its position in the
// chain. Position fields are nil for transactions that are still pending.
type LocalizedTransaction struct {
	*Transaction
	From        Address
	BlockHash   *Hash
	BlockNumber *uint64
	Index       *uint64
}

// ChainInfo summarizes the canonical chain head.
type ChainInfo struct {
	TotalDifficulty *big.Int
	GenesisHash     Hash
	BestBlockHash   Hash
	BestBlockNumber uint64
}

// QueueInfo reports the state of the block import queue.
type QueueInfo struct {
	Unverified int
	Verifying  int
	Verified   int
}

func (q QueueInfo) TotalQueueSize() int {
	return q.Unverified + q.Verifying + q.Verified
}

func (q QueueInfo) IsEmpty() bool {
	return q.TotalQueueSize() == 0
}

// MinerStatus reports the transactions known to the miner.
type MinerStatus struct {
	TransactionsInPendingQueue int
	TransactionsInFutureQueue  int
	TransactionsInPendingBlock int
}

// LogsBloom computes the bloom filter of logs.
func LogsBloom(logs []*Log) Bloom {
	var bloom Bloom
	for _, log := range logs {
		bloom.Add(log.Address.Bytes())
		for _, topic := range log.Topics {
			bloom.Add(topic.Bytes())
		}
	}
	return bloom
}

// MergeBloom ors all receipt blooms together.
func MergeBloom(receipts Receipts) Bloom {
	var bloom Bloom
	for _, r := range receipts {
		for i := range bloom {
			bloom[i] |= r.Bloom[i]
		}
	}
	return bloom
}
