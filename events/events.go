package events

import (
	"github.com/DOIDFoundation/ethnode/types"
)

var (
	NewChainHead  = &FeedOf[*types.Block]{}       // Chain switched to a new head block.
	NewMinedBlock = &FeedOf[*types.Block]{}       // A locally sealed block was queued for import.
	NewPendingTxs = &FeedOf[types.Transactions]{} // Transactions entered the mempool.
	SyncStarted   = &FeedOf[uint64]{}             // Import queue is behind, carries the highest known block.
	SyncFinished  = &FeedOf[uint64]{}             // Import queue drained, carries the new head number.
)
