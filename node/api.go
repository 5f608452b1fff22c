package node

import (
	"context"
	"time"

	"github.com/DOIDFoundation/ethnode/rpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type API struct {
	node *Node
}

type Status struct {
	IsRunning      bool           `json:"is_running"`
	BestBlock      hexutil.Uint64 `json:"best_block"`
	Syncing        string         `json:"syncing"`
	Sealing        bool           `json:"sealing"`
	ExternalMining bool           `json:"external_mining"`
	LastActive     *time.Time     `json:"last_active"`
	LastSealed     *common.Hash   `json:"last_sealed"`
}

func (api *API) Status(context.Context) (*Status, error) {
	n := api.node
	status := &Status{
		IsRunning:      n.IsRunning(),
		BestBlock:      hexutil.Uint64(n.chain.ChainInfo().BestBlockNumber),
		Syncing:        n.network.Status().State.String(),
		Sealing:        n.miner.IsSealing(),
		ExternalMining: n.external.IsMining(),
	}
	if active := n.chain.LastActive(); !active.IsZero() {
		status.LastActive = &active
	}
	if block := n.lastSealed.Load(); block != nil {
		hash := block.Hash()
		status.LastSealed = &hash
	}
	return status, nil
}

func (n *Node) RegisterAPI(server *rpc.Server) {
	api := &API{node: n}
	server.RegisterName("node",
		rpc.Func0("status", api.Status),
	)
}
