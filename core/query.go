package core

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/DOIDFoundation/ethnode/transactor"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// resolve maps id to the number and hash of a canonical block. The pending
// tag resolves to the head.
func (bc *BlockChain) resolve(id types.BlockID) (uint64, common.Hash, bool) {
	switch id.Tag {
	case types.TagLatest, types.TagPending:
		head := bc.LatestBlock()
		return head.NumberU64(), head.Hash(), true
	case types.TagEarliest:
		return 0, bc.genesis.Hash(), true
	case types.TagHash:
		number := bc.blockStore.ReadNumberByHash(id.Hash)
		if number == nil {
			return 0, common.Hash{}, false
		}
		return *number, id.Hash, true
	default:
		if id.Number > bc.LatestBlock().NumberU64() {
			return 0, common.Hash{}, false
		}
		hash := bc.blockStore.ReadHashByNumber(id.Number)
		return id.Number, hash, hash != (common.Hash{})
	}
}

func (bc *BlockChain) Block(id types.BlockID) *types.Block {
	number, hash, ok := bc.resolve(id)
	if !ok {
		return nil
	}
	return bc.hc.GetBlock(number, hash)
}

func (bc *BlockChain) BlockTotalDifficulty(id types.BlockID) *big.Int {
	number, hash, ok := bc.resolve(id)
	if !ok {
		return nil
	}
	return bc.hc.GetTd(number, hash)
}

func (bc *BlockChain) Uncle(id types.UncleID) *types.Header {
	block := bc.Block(id.Block)
	if block == nil || id.Position >= uint64(len(block.Uncles())) {
		return nil
	}
	return types.CopyHeader(block.Uncles()[id.Position])
}

// locate finds the block including the transaction and its index.
func (bc *BlockChain) locate(id types.TransactionID) (*types.Block, uint64, bool) {
	if id.Hash == nil {
		block := bc.Block(id.Block)
		if block == nil || id.Index >= uint64(len(block.Transactions())) {
			return nil, 0, false
		}
		return block, id.Index, true
	}
	number := bc.blockStore.ReadTxLookup(*id.Hash)
	if number == nil {
		return nil, 0, false
	}
	block := bc.Block(types.BlockIDFromNumber(*number))
	if block == nil {
		return nil, 0, false
	}
	for i, tx := range block.Transactions() {
		if tx.Hash() == *id.Hash {
			return block, uint64(i), true
		}
	}
	return nil, 0, false
}

func (bc *BlockChain) Transaction(id types.TransactionID) *types.LocalizedTransaction {
	block, index, ok := bc.locate(id)
	if !ok {
		return nil
	}
	tx := block.Transactions()[index]
	from, err := ethtypes.Sender(bc.signer, tx)
	if err != nil {
		bc.Logger.Error("invalid sender of committed transaction", "hash", tx.Hash(), "err", err)
	}
	var (
		blockHash = block.Hash()
		number    = block.NumberU64()
	)
	return &types.LocalizedTransaction{
		Transaction: tx,
		From:        from,
		BlockHash:   &blockHash,
		BlockNumber: &number,
		Index:       &index,
	}
}

func (bc *BlockChain) TransactionReceipt(id types.TransactionID) *types.Receipt {
	block, index, ok := bc.locate(id)
	if !ok {
		return nil
	}
	receipts := bc.blockStore.ReadReceipts(block)
	if index >= uint64(len(receipts)) {
		return nil
	}
	return receipts[index]
}

// Logs returns the logs of the canonical blocks in the filter range that
// match it, in chain order and capped to the most recent filter.Limit.
func (bc *BlockChain) Logs(filter *types.Filter) []*types.Log {
	from, _, ok := bc.resolve(filter.FromBlock)
	if !ok {
		return []*types.Log{}
	}
	to, _, ok := bc.resolve(filter.ToBlock)
	if !ok {
		return []*types.Log{}
	}
	logs := []*types.Log{}
	for number := from; number <= to; number++ {
		block := bc.Block(types.BlockIDFromNumber(number))
		if block == nil {
			break
		}
		if !filter.MatchesBloom(block.Bloom()) {
			continue
		}
		for _, receipt := range bc.blockStore.ReadReceipts(block) {
			for _, log := range receipt.Logs {
				if filter.Matches(log) {
					logs = append(logs, log)
				}
			}
		}
	}
	return types.LimitLogs(logs, filter.Limit)
}

func (bc *BlockChain) ChainInfo() types.ChainInfo {
	head, td := bc.head()
	return types.ChainInfo{
		TotalDifficulty: new(big.Int).Set(td),
		GenesisHash:     bc.genesis.Hash(),
		BestBlockHash:   head.Hash(),
		BestBlockNumber: head.NumberU64(),
	}
}

// stateOf opens the state after the block id refers to, false if the block
// is unknown or its state pruned.
func (bc *BlockChain) stateOf(id types.BlockID) (*transactor.State, bool) {
	number, _, ok := bc.resolve(id)
	if !ok {
		return nil, false
	}
	state, err := bc.stateAt(number)
	if err != nil {
		return nil, false
	}
	return state, true
}

func (bc *BlockChain) Balance(addr common.Address, id types.BlockID) (*big.Int, bool) {
	state, ok := bc.stateOf(id)
	if !ok {
		return nil, false
	}
	return state.Balance(addr), state.Error() == nil
}

func (bc *BlockChain) Nonce(addr common.Address, id types.BlockID) (uint64, bool) {
	state, ok := bc.stateOf(id)
	if !ok {
		return 0, false
	}
	return state.Nonce(addr), state.Error() == nil
}

func (bc *BlockChain) Code(addr common.Address, id types.BlockID) ([]byte, bool) {
	state, ok := bc.stateOf(id)
	if !ok {
		return nil, false
	}
	return state.Code(addr), state.Error() == nil
}

func (bc *BlockChain) StorageAt(addr common.Address, slot common.Hash, id types.BlockID) (common.Hash, bool) {
	state, ok := bc.stateOf(id)
	if !ok {
		return common.Hash{}, false
	}
	return state.Storage(addr, slot), state.Error() == nil
}

// LatestNonce returns the nonce of addr in the head state.
func (bc *BlockChain) LatestNonce(addr common.Address) uint64 {
	nonce, _ := bc.Nonce(addr, types.LatestBlock)
	return nonce
}

// Call executes call read-only against the state after block id.
func (bc *BlockChain) Call(call *types.Call, id types.BlockID) (*types.Executed, error) {
	state, ok := bc.stateOf(id)
	if !ok {
		return nil, fmt.Errorf("state of block %v not available", id)
	}
	return transactor.Call(state, call)
}

// GasPriceMedian returns the median gas price of transactions in the last
// blocks canonical blocks, nil if there are none.
func (bc *BlockChain) GasPriceMedian(blocks int) *big.Int {
	var prices []*big.Int
	head := bc.LatestBlock()
	for i := 0; i < blocks && uint64(i) <= head.NumberU64(); i++ {
		block := bc.Block(types.BlockIDFromNumber(head.NumberU64() - uint64(i)))
		if block == nil {
			break
		}
		for _, tx := range block.Transactions() {
			prices = append(prices, tx.GasPrice())
		}
	}
	if len(prices) == 0 {
		return nil
	}
	sort.Slice(prices, func(i, j int) bool {
		return prices[i].Cmp(prices[j]) < 0
	})
	return prices[len(prices)/2]
}
