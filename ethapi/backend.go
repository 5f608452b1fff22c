package ethapi

import (
	"math/big"

	"github.com/DOIDFoundation/ethnode/types"
	"github.com/ethereum/go-ethereum/common"
)

// Names under which the collaborators are registered in the locator.
const (
	ChainService    = "chain"
	SyncService     = "sync"
	AccountsService = "accounts"
	MinerService    = "miner"
)

// ChainClient answers queries against committed chain data. Methods taking a
// block id report false when the block is unknown or its state was pruned.
type ChainClient interface {
	Block(id types.BlockID) *types.Block
	BlockTotalDifficulty(id types.BlockID) *big.Int
	Uncle(id types.UncleID) *types.Header
	Transaction(id types.TransactionID) *types.LocalizedTransaction
	TransactionReceipt(id types.TransactionID) *types.Receipt
	Logs(filter *types.Filter) []*types.Log
	ChainInfo() types.ChainInfo
	QueueInfo() types.QueueInfo

	Balance(addr common.Address, id types.BlockID) (*big.Int, bool)
	Nonce(addr common.Address, id types.BlockID) (uint64, bool)
	Code(addr common.Address, id types.BlockID) ([]byte, bool)
	StorageAt(addr common.Address, slot common.Hash, id types.BlockID) (common.Hash, bool)
	LatestNonce(addr common.Address) uint64
	Call(call *types.Call, id types.BlockID) (*types.Executed, error)

	// GasPriceMedian is nil when the recent blocks carry no transactions.
	GasPriceMedian(blocks int) *big.Int
	KeepAlive()
}

// Miner exposes the pending block and the state shadowed by it.
type Miner interface {
	Author() common.Address
	IsSealing() bool

	Balance(addr common.Address) *big.Int
	Nonce(addr common.Address) uint64
	Code(addr common.Address) []byte
	StorageAt(addr common.Address, slot common.Hash) common.Hash
	Call(call *types.Call) (*types.Executed, error)

	Status() types.MinerStatus
	Transaction(best uint64, hash common.Hash) *types.LocalizedTransaction
	PendingReceipt(best uint64, hash common.Hash) *types.Receipt
	PendingReceipts(best uint64) types.Receipts

	SealingBlock() *types.Block
	SubmitSeal(powHash common.Hash, seal [][]byte) error
	ImportOwnTransaction(tx *types.Transaction) error
	SensibleGasPrice() *big.Int
}

type SyncProvider interface {
	Status() types.SyncStatus
}

type AccountProvider interface {
	Accounts() []common.Address
}

// ExternalMiner aggregates hash rates reported by remote miners.
type ExternalMiner interface {
	SubmitHashrate(rate *big.Int, id common.Hash)
	Hashrate() *big.Int
}
