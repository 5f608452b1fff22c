package node

import (
	"sync/atomic"

	"github.com/DOIDFoundation/ethnode/accounts"
	"github.com/DOIDFoundation/ethnode/core"
	"github.com/DOIDFoundation/ethnode/dapps"
	"github.com/DOIDFoundation/ethnode/ethapi"
	"github.com/DOIDFoundation/ethnode/events"
	"github.com/DOIDFoundation/ethnode/locator"
	"github.com/DOIDFoundation/ethnode/mempool"
	"github.com/DOIDFoundation/ethnode/miner"
	"github.com/DOIDFoundation/ethnode/network"
	"github.com/DOIDFoundation/ethnode/rpc"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
)

//------------------------------------------------------------------------------

// Node is the highest level interface to a full node.
// It includes all configuration information and running services.
type Node struct {
	service.BaseService
	rpcConfig rpc.Config
	registry  *locator.Registry
	server    *rpc.Server
	rpc       *rpc.RPC

	chain    *core.BlockChain
	mempool  *mempool.Mempool
	miner    *miner.Miner
	external *miner.ExternalMiner
	network  *network.Network
	accounts *accounts.Provider
	dapps    *dapps.Service

	lastSealed atomic.Pointer[types.Block]
}

// Option sets a parameter for the node.
type Option func(*Node)

// WithListenAddress overrides the configured RPC listen address.
func WithListenAddress(addr string) Option {
	return func(n *Node) {
		n.rpcConfig.ListenAddress = addr
	}
}

// NewNode returns a new, ready to go node configured from viper.
func NewNode(logger log.Logger, options ...Option) (*Node, error) {
	chainConfig, err := core.ConfigFromViper()
	if err != nil {
		return nil, err
	}
	minerConfig, err := miner.ConfigFromViper()
	if err != nil {
		return nil, err
	}
	provider, err := accounts.NewProviderFromViper()
	if err != nil {
		return nil, err
	}
	chain, err := core.NewBlockChain(chainConfig, logger)
	if err != nil {
		return nil, err
	}
	pool := mempool.NewMempool(chain, logger)

	node := &Node{
		rpcConfig: rpc.ConfigFromViper(),
		registry:  locator.NewRegistry(),
		server:    rpc.NewServer(logger),

		chain:    chain,
		mempool:  pool,
		miner:    miner.NewMiner(minerConfig, chain, pool, logger),
		external: miner.NewExternalMiner(),
		network:  network.NewNetwork(chain, logger),
		accounts: provider,
		dapps:    dapps.NewService(dapps.ConfigFromViper(), logger),
	}
	node.BaseService = *service.NewBaseService(logger.With("module", "node"), "Node", node)

	for _, option := range options {
		option(node)
	}
	node.rpc = rpc.NewRPC(node.rpcConfig, node.server, logger)

	eth := ethapi.NewEthClient(node.registry, node.external, ethapi.OptionsFromViper(chainConfig.ChainID), logger)
	eth.RegisterAPI(node.server)
	node.mempool.RegisterAPI(node.server)
	node.dapps.RegisterAPI(node.server)
	node.RegisterAPI(node.server)

	return node, nil
}

// OnStart starts the Node. It implements service.Service.
func (n *Node) OnStart() error {
	events.NewMinedBlock.Subscribe(n.String(), func(block *types.Block) {
		n.lastSealed.Store(block)
	})
	for _, s := range []service.Service{n.chain, n.mempool, n.miner, n.network, n.dapps} {
		if err := s.Start(); err != nil {
			return err
		}
	}

	n.registry.Register(ethapi.ChainService, n.chain)
	n.registry.Register(ethapi.MinerService, n.miner)
	n.registry.Register(ethapi.SyncService, n.network)
	n.registry.Register(ethapi.AccountsService, n.accounts)

	return n.rpc.Start()
}

// OnStop stops the Node. It implements service.Service. Collaborators are
// unregistered first so in-flight calls fail instead of reaching a stopped
// service.
func (n *Node) OnStop() {
	events.NewMinedBlock.Unsubscribe(n.String())
	for _, name := range []string{ethapi.ChainService, ethapi.MinerService, ethapi.SyncService, ethapi.AccountsService} {
		n.registry.Unregister(name)
	}

	n.stop(n.rpc)
	n.stop(n.miner)
	n.stop(n.network)
	n.stop(n.dapps)
	if n.mempool.IsRunning() {
		n.stop(n.mempool)
		defer n.mempool.Wait()
	}
	n.stop(n.chain)
}

func (n *Node) stop(s service.Service) {
	if !s.IsRunning() {
		return
	}
	if err := s.Stop(); err != nil {
		n.Logger.Error("error stopping service", "service", s.String(), "err", err)
	}
}

func (n *Node) Chain() *core.BlockChain {
	return n.chain
}

// Server returns the RPC server holding every registered method.
func (n *Node) Server() *rpc.Server {
	return n.server
}

// RPC returns the HTTP endpoint of the node.
func (n *Node) RPC() *rpc.RPC {
	return n.rpc
}
