package core

import (
	"math/big"

	"github.com/DOIDFoundation/ethnode/consensus"
	"github.com/DOIDFoundation/ethnode/transactor"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/holiman/uint256"
)

// genesisState credits the configured allocation on an empty state.
func genesisState(alloc map[types.Address]*big.Int) *transactor.State {
	state := transactor.NewState(nil)
	for addr, balance := range alloc {
		amount, overflow := uint256.FromBig(balance)
		if overflow {
			continue
		}
		state.AddBalance(addr, amount)
	}
	return state
}

// GenesisBlock returns block zero with the given state root.
func GenesisBlock(cfg Config, root types.Hash) *types.Block {
	return types.NewBlockWithHeader(&types.Header{
		Difficulty:  new(big.Int).Set(consensus.GenesisDifficulty),
		Number:      big.NewInt(0),
		GasLimit:    cfg.GasLimit,
		Root:        root,
		UncleHash:   types.EmptyUncleHash,
		TxHash:      types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
	})
}
