package network

import (
	"sync"

	"github.com/DOIDFoundation/ethnode/core"
	"github.com/DOIDFoundation/ethnode/events"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
)

// ProtocolVersion is the eth wire protocol version reported to clients.
const ProtocolVersion = 63

// Network tracks block synchronization from the import queue events.
type Network struct {
	service.BaseService
	chain *core.BlockChain

	mu     sync.RWMutex
	status types.SyncStatus
}

func NewNetwork(chain *core.BlockChain, logger log.Logger) *Network {
	n := &Network{
		chain:  chain,
		status: types.SyncStatus{State: types.SyncIdle, ProtocolVersion: ProtocolVersion},
	}
	n.BaseService = *service.NewBaseService(logger.With("module", "network"), "Network", n)
	return n
}

func (n *Network) OnStart() error {
	events.SyncStarted.Subscribe(n.String(), n.syncStarted)
	events.SyncFinished.Subscribe(n.String(), n.syncFinished)
	return nil
}

func (n *Network) OnStop() {
	events.SyncStarted.Unsubscribe(n.String()).Wait()
	events.SyncFinished.Unsubscribe(n.String()).Wait()
}

func (n *Network) syncStarted(highest uint64) {
	start := n.chain.LatestBlock().NumberU64()
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.status.State == types.SyncIdle {
		n.status.StartBlock = start
	}
	n.status.State = types.SyncBlocks
	n.status.HighestBlock = &highest
	n.Logger.Info("sync started", "start", n.status.StartBlock, "highest", highest)
}

func (n *Network) syncFinished(head uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status.State = types.SyncIdle
	n.status.HighestBlock = nil
	n.Logger.Info("sync finished", "head", head)
}

// Status returns a copy of the current sync status.
func (n *Network) Status() types.SyncStatus {
	n.mu.RLock()
	defer n.mu.RUnlock()
	status := n.status
	if status.HighestBlock != nil {
		highest := *status.HighestBlock
		status.HighestBlock = &highest
	}
	return status
}
