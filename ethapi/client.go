// Package ethapi implements the eth namespace over the chain, the miner, the
// sync status and the account list. Collaborators are resolved through the
// locator on every call, so a method fails with service unavailable instead
// of touching a stopped service.
package ethapi

import (
	"errors"
	"time"

	"github.com/DOIDFoundation/ethnode/consensus"
	"github.com/DOIDFoundation/ethnode/locator"
	"github.com/DOIDFoundation/ethnode/rpc"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

const (
	// maxQueueSizeToMineOn is the import backlog above which no work is
	// handed out, uncles only reach back six blocks.
	maxQueueSizeToMineOn = 4
	queueDrainTimeout    = time.Second
	queueDrainInterval   = time.Millisecond
	// syncReportDistance is how far behind the best known block the node
	// must be before eth_syncing reports progress.
	syncReportDistance = 6
	gasPriceBlocks     = 100
)

type EthClient struct {
	logger   log.Logger
	chain    locator.Handle[ChainClient]
	sync     locator.Handle[SyncProvider]
	accounts locator.Handle[AccountProvider]
	miner    locator.Handle[Miner]
	external ExternalMiner
	seeds    *consensus.SeedHashCompute
	compiler *Compiler
	signer   ethtypes.Signer
	options  Options
}

func NewEthClient(registry *locator.Registry, external ExternalMiner, options Options, logger log.Logger) *EthClient {
	return &EthClient{
		logger:   logger.With("module", "ethapi"),
		chain:    locator.NewHandle[ChainClient](registry, ChainService),
		sync:     locator.NewHandle[SyncProvider](registry, SyncService),
		accounts: locator.NewHandle[AccountProvider](registry, AccountsService),
		miner:    locator.NewHandle[Miner](registry, MinerService),
		external: external,
		seeds:    consensus.NewSeedHashCompute(),
		compiler: &Compiler{Path: options.SolcPath, Timeout: options.CompileTimeout},
		signer:   ethtypes.LatestSignerForChainID(options.ChainID),
		options:  options,
	}
}

// resolve fetches the service behind h, mapping a missing one to the
// service unavailable error.
func resolve[T any](h locator.Handle[T]) (T, error) {
	service, err := h.Get()
	if errors.Is(err, locator.ErrServiceUnavailable) {
		return service, rpc.ServiceUnavailable(h.Name())
	}
	return service, err
}

// active resolves the chain and signals client activity to it. Every method
// starts with it.
func (c *EthClient) active() (ChainClient, error) {
	chain, err := resolve(c.chain)
	if err != nil {
		return nil, err
	}
	chain.KeepAlive()
	return chain, nil
}

func (c *EthClient) withMiner() (ChainClient, Miner, error) {
	chain, err := c.active()
	if err != nil {
		return nil, nil, err
	}
	miner, err := resolve(c.miner)
	if err != nil {
		return nil, nil, err
	}
	return chain, miner, nil
}

// RegisterAPI registers the eth namespace on server.
func (c *EthClient) RegisterAPI(server *rpc.Server) {
	block := rpc.Opt("block", types.LatestBlock)
	server.RegisterName("eth",
		rpc.Func0("protocolVersion", c.ProtocolVersion),
		rpc.Func0("syncing", c.Syncing),
		rpc.Func0("coinbase", c.Coinbase),
		rpc.Func0("mining", c.Mining),
		rpc.Func0("hashrate", c.Hashrate),
		rpc.Func0("gasPrice", c.GasPrice),
		rpc.Func0("accounts", c.Accounts),
		rpc.Func0("blockNumber", c.BlockNumber),

		rpc.Func2("getBalance", rpc.Req[common.Address]("address"), block, c.GetBalance),
		rpc.Func3("getStorageAt", rpc.Req[common.Address]("address"), rpc.Req[hexutil.Big]("position"), block, c.GetStorageAt),
		rpc.Func2("getTransactionCount", rpc.Req[common.Address]("address"), block, c.GetTransactionCount),
		rpc.Func2("getCode", rpc.Req[common.Address]("address"), block, c.GetCode),

		rpc.Func1("getBlockTransactionCountByHash", rpc.Req[common.Hash]("hash"), c.GetBlockTransactionCountByHash),
		rpc.Func1("getBlockTransactionCountByNumber", rpc.Req[types.BlockID]("block"), c.GetBlockTransactionCountByNumber),
		rpc.Func1("getUncleCountByBlockHash", rpc.Req[common.Hash]("hash"), c.GetUncleCountByBlockHash),
		rpc.Func1("getUncleCountByBlockNumber", rpc.Req[types.BlockID]("block"), c.GetUncleCountByBlockNumber),
		rpc.Func2("getBlockByHash", rpc.Req[common.Hash]("hash"), rpc.Req[bool]("fullTx"), c.GetBlockByHash),
		rpc.Func2("getBlockByNumber", rpc.Req[types.BlockID]("block"), rpc.Req[bool]("fullTx"), c.GetBlockByNumber),

		rpc.Func1("getTransactionByHash", rpc.Req[common.Hash]("hash"), c.GetTransactionByHash),
		rpc.Func2("getTransactionByBlockHashAndIndex", rpc.Req[common.Hash]("hash"), rpc.Req[hexutil.Uint64]("index"), c.GetTransactionByBlockHashAndIndex),
		rpc.Func2("getTransactionByBlockNumberAndIndex", rpc.Req[types.BlockID]("block"), rpc.Req[hexutil.Uint64]("index"), c.GetTransactionByBlockNumberAndIndex),
		rpc.Func1("getTransactionReceipt", rpc.Req[common.Hash]("hash"), c.GetTransactionReceipt),
		rpc.Func2("getUncleByBlockHashAndIndex", rpc.Req[common.Hash]("hash"), rpc.Req[hexutil.Uint64]("index"), c.GetUncleByBlockHashAndIndex),
		rpc.Func2("getUncleByBlockNumberAndIndex", rpc.Req[types.BlockID]("block"), rpc.Req[hexutil.Uint64]("index"), c.GetUncleByBlockNumberAndIndex),

		rpc.Func0("getCompilers", c.GetCompilers),
		rpc.Func1("compileLLL", rpc.Req[string]("source"), c.CompileLLL),
		rpc.Func1("compileSolidity", rpc.Req[string]("source"), c.CompileSolidity),
		rpc.Func1("compileSerpent", rpc.Req[string]("source"), c.CompileSerpent),

		rpc.Func1("getLogs", rpc.Req[FilterArgs]("filter"), c.GetLogs),

		rpc.Func1("getWork", rpc.Opt[Seconds]("timeout", 0), c.GetWork),
		rpc.Func3("submitWork", rpc.Req[types.BlockNonce]("nonce"), rpc.Req[common.Hash]("powHash"), rpc.Req[common.Hash]("mixHash"), c.SubmitWork),
		rpc.Func2("submitHashrate", rpc.Req[hexutil.Big]("rate"), rpc.Req[common.Hash]("id"), c.SubmitHashrate),

		rpc.Func1("sendRawTransaction", rpc.Req[hexutil.Bytes]("data"), c.SendRawTransaction),
		rpc.Func2("call", rpc.Req[CallArgs]("args"), block, c.Call),
		rpc.Func2("estimateGas", rpc.Req[CallArgs]("args"), block, c.EstimateGas),
	)
}
