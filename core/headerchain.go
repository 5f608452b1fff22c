package core

import (
	"math/big"

	"github.com/DOIDFoundation/ethnode/store"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/cometbft/cometbft/libs/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

const blockCacheLimit = 256

// HeaderChain stores blocks with their total difficulty and keeps the most
// recent ones in memory.
type HeaderChain struct {
	Logger log.Logger
	store  *store.BlockStore

	blockCache *lru.Cache[types.Hash, *types.Block] // Cache for the most recent blocks
}

func newHeaderChain(store *store.BlockStore, logger log.Logger) *HeaderChain {
	blockCache, _ := lru.New[types.Hash, *types.Block](blockCacheLimit)
	return &HeaderChain{
		store:      store,
		Logger:     logger.With("module", "headerchain"),
		blockCache: blockCache,
	}
}

// CanStartFrom reports whether blocks can be appended on top of the given
// block.
func (hc *HeaderChain) CanStartFrom(number uint64, hash types.Hash) bool {
	return hc.store.ReadTd(number, hash) != nil
}

func (hc *HeaderChain) GetBlock(number uint64, hash types.Hash) *types.Block {
	if block, ok := hc.blockCache.Get(hash); ok {
		return block
	}
	block := hc.store.ReadBlock(number, hash)
	if block != nil {
		hc.blockCache.Add(hash, block)
	}
	return block
}

func (hc *HeaderChain) GetTd(number uint64, hash types.Hash) *big.Int {
	return hc.store.ReadTd(number, hash)
}

// AppendBlock stores block and returns its total difficulty, which requires
// the parent to be known.
func (hc *HeaderChain) AppendBlock(block *types.Block) (*big.Int, error) {
	number, hash := block.NumberU64(), block.Hash()
	if number == 0 {
		return nil, ErrUnknownAncestor
	}
	td := hc.store.ReadTd(number-1, block.ParentHash())
	if td == nil {
		return nil, ErrUnknownAncestor
	}
	td.Add(td, block.Difficulty())
	hc.store.WriteBlock(block)
	hc.store.WriteTd(number, hash, td)
	hc.blockCache.Add(hash, block)
	return td, nil
}

// writeGenesis stores block zero with its difficulty as total difficulty.
func (hc *HeaderChain) writeGenesis(block *types.Block) {
	hc.store.WriteBlock(block)
	hc.store.WriteTd(0, block.Hash(), block.Difficulty())
	hc.blockCache.Add(block.Hash(), block)
}
