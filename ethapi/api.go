package ethapi

import (
	"context"
	"math/big"
	"strconv"

	"github.com/DOIDFoundation/ethnode/rpc"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

func (c *EthClient) ProtocolVersion(context.Context) (string, error) {
	if _, err := c.active(); err != nil {
		return "", err
	}
	sync, err := resolve(c.sync)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(uint64(sync.Status().ProtocolVersion), 10), nil
}

// Syncing returns false, or the sync progress while the node is more than a
// few blocks behind the best known block.
func (c *EthClient) Syncing(context.Context) (interface{}, error) {
	chain, err := c.active()
	if err != nil {
		return nil, err
	}
	sync, err := resolve(c.sync)
	if err != nil {
		return nil, err
	}
	status := sync.Status()
	if status.State == types.SyncIdle {
		return false, nil
	}
	current := chain.ChainInfo().BestBlockNumber
	highest := status.StartBlock
	if status.HighestBlock != nil {
		highest = *status.HighestBlock
	}
	if highest <= current+syncReportDistance {
		return false, nil
	}
	return &SyncInfoView{
		StartingBlock: hexutil.Uint64(status.StartBlock),
		CurrentBlock:  hexutil.Uint64(current),
		HighestBlock:  hexutil.Uint64(highest),
	}, nil
}

func (c *EthClient) Coinbase(context.Context) (common.Address, error) {
	_, miner, err := c.withMiner()
	if err != nil {
		return common.Address{}, err
	}
	return miner.Author(), nil
}

func (c *EthClient) Mining(context.Context) (bool, error) {
	_, miner, err := c.withMiner()
	if err != nil {
		return false, err
	}
	return miner.IsSealing(), nil
}

func (c *EthClient) Hashrate(context.Context) (*hexutil.Big, error) {
	if _, err := c.active(); err != nil {
		return nil, err
	}
	return (*hexutil.Big)(c.external.Hashrate()), nil
}

// defaultGasPrice is the median price of recent blocks, falling back to the
// miner's estimate.
func defaultGasPrice(chain ChainClient, miner Miner) *big.Int {
	if price := chain.GasPriceMedian(gasPriceBlocks); price != nil {
		return price
	}
	return miner.SensibleGasPrice()
}

func (c *EthClient) GasPrice(context.Context) (*hexutil.Big, error) {
	chain, miner, err := c.withMiner()
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(defaultGasPrice(chain, miner)), nil
}

func (c *EthClient) Accounts(context.Context) ([]common.Address, error) {
	if _, err := c.active(); err != nil {
		return nil, err
	}
	accounts, err := resolve(c.accounts)
	if err != nil {
		return nil, err
	}
	list := accounts.Accounts()
	if list == nil {
		list = []common.Address{}
	}
	return list, nil
}

func (c *EthClient) BlockNumber(context.Context) (hexutil.Uint64, error) {
	chain, err := c.active()
	if err != nil {
		return 0, err
	}
	return hexutil.Uint64(chain.ChainInfo().BestBlockNumber), nil
}

func (c *EthClient) GetBalance(_ context.Context, addr common.Address, block types.BlockID) (*hexutil.Big, error) {
	chain, miner, err := c.withMiner()
	if err != nil {
		return nil, err
	}
	if block.IsPending() {
		return (*hexutil.Big)(miner.Balance(addr)), nil
	}
	balance, ok := chain.Balance(addr, block)
	if !ok {
		return nil, rpc.StatePruned()
	}
	return (*hexutil.Big)(balance), nil
}

func (c *EthClient) GetStorageAt(_ context.Context, addr common.Address, position hexutil.Big, block types.BlockID) (common.Hash, error) {
	chain, miner, err := c.withMiner()
	if err != nil {
		return common.Hash{}, err
	}
	slot := common.BigToHash(position.ToInt())
	if block.IsPending() {
		return miner.StorageAt(addr, slot), nil
	}
	value, ok := chain.StorageAt(addr, slot, block)
	if !ok {
		return common.Hash{}, rpc.StatePruned()
	}
	return value, nil
}

func (c *EthClient) GetTransactionCount(_ context.Context, addr common.Address, block types.BlockID) (hexutil.Uint64, error) {
	chain, miner, err := c.withMiner()
	if err != nil {
		return 0, err
	}
	if block.IsPending() {
		return hexutil.Uint64(miner.Nonce(addr)), nil
	}
	nonce, ok := chain.Nonce(addr, block)
	if !ok {
		return 0, rpc.StatePruned()
	}
	return hexutil.Uint64(nonce), nil
}

func (c *EthClient) GetCode(_ context.Context, addr common.Address, block types.BlockID) (hexutil.Bytes, error) {
	chain, miner, err := c.withMiner()
	if err != nil {
		return nil, err
	}
	if block.IsPending() {
		return hexutil.Bytes(miner.Code(addr)), nil
	}
	code, ok := chain.Code(addr, block)
	if !ok {
		return nil, rpc.StatePruned()
	}
	return code, nil
}

func count(n int) *hexutil.Uint {
	c := hexutil.Uint(n)
	return &c
}

func (c *EthClient) GetBlockTransactionCountByHash(_ context.Context, hash common.Hash) (*hexutil.Uint, error) {
	chain, err := c.active()
	if err != nil {
		return nil, err
	}
	if block := chain.Block(types.BlockIDFromHash(hash)); block != nil {
		return count(len(block.Transactions())), nil
	}
	return nil, nil
}

func (c *EthClient) GetBlockTransactionCountByNumber(_ context.Context, id types.BlockID) (*hexutil.Uint, error) {
	chain, err := c.active()
	if err != nil {
		return nil, err
	}
	if id.IsPending() {
		miner, err := resolve(c.miner)
		if err != nil {
			return nil, err
		}
		return count(miner.Status().TransactionsInPendingBlock), nil
	}
	if block := chain.Block(id); block != nil {
		return count(len(block.Transactions())), nil
	}
	return nil, nil
}

func (c *EthClient) GetUncleCountByBlockHash(_ context.Context, hash common.Hash) (*hexutil.Uint, error) {
	chain, err := c.active()
	if err != nil {
		return nil, err
	}
	if block := chain.Block(types.BlockIDFromHash(hash)); block != nil {
		return count(len(block.Uncles())), nil
	}
	return nil, nil
}

// GetUncleCountByBlockNumber reports zero for the pending block, it never
// includes uncles.
func (c *EthClient) GetUncleCountByBlockNumber(_ context.Context, id types.BlockID) (*hexutil.Uint, error) {
	chain, err := c.active()
	if err != nil {
		return nil, err
	}
	if id.IsPending() {
		return count(0), nil
	}
	if block := chain.Block(id); block != nil {
		return count(len(block.Uncles())), nil
	}
	return nil, nil
}

func (c *EthClient) block(chain ChainClient, id types.BlockID, fullTx bool) *BlockView {
	block := chain.Block(id)
	if block == nil {
		return nil
	}
	td := chain.BlockTotalDifficulty(types.BlockIDFromHash(block.Hash()))
	if td == nil {
		return nil
	}
	return NewBlockView(block, td, fullTx, c.signer)
}

func (c *EthClient) GetBlockByHash(_ context.Context, hash common.Hash, fullTx bool) (*BlockView, error) {
	chain, err := c.active()
	if err != nil {
		return nil, err
	}
	return c.block(chain, types.BlockIDFromHash(hash), fullTx), nil
}

func (c *EthClient) GetBlockByNumber(_ context.Context, id types.BlockID, fullTx bool) (*BlockView, error) {
	chain, err := c.active()
	if err != nil {
		return nil, err
	}
	return c.block(chain, id, fullTx), nil
}

func transaction(chain ChainClient, id types.TransactionID) *TransactionView {
	if tx := chain.Transaction(id); tx != nil {
		return NewTransactionView(tx)
	}
	return nil
}

// GetTransactionByHash looks in the chain first and then in the pool.
func (c *EthClient) GetTransactionByHash(_ context.Context, hash common.Hash) (*TransactionView, error) {
	chain, miner, err := c.withMiner()
	if err != nil {
		return nil, err
	}
	if view := transaction(chain, types.TransactionIDFromHash(hash)); view != nil {
		return view, nil
	}
	if tx := miner.Transaction(chain.ChainInfo().BestBlockNumber, hash); tx != nil {
		return NewTransactionView(tx), nil
	}
	return nil, nil
}

func (c *EthClient) GetTransactionByBlockHashAndIndex(_ context.Context, hash common.Hash, index hexutil.Uint64) (*TransactionView, error) {
	chain, err := c.active()
	if err != nil {
		return nil, err
	}
	return transaction(chain, types.TransactionIDFromLocation(types.BlockIDFromHash(hash), uint64(index))), nil
}

func (c *EthClient) GetTransactionByBlockNumberAndIndex(_ context.Context, id types.BlockID, index hexutil.Uint64) (*TransactionView, error) {
	chain, err := c.active()
	if err != nil {
		return nil, err
	}
	return transaction(chain, types.TransactionIDFromLocation(id, uint64(index))), nil
}

// GetTransactionReceipt returns the committed receipt, or the pending one
// when pending receipt queries are allowed.
func (c *EthClient) GetTransactionReceipt(_ context.Context, hash common.Hash) (*ReceiptView, error) {
	chain, miner, err := c.withMiner()
	if err != nil {
		return nil, err
	}
	if receipt := chain.TransactionReceipt(types.TransactionIDFromHash(hash)); receipt != nil {
		return NewReceiptView(receipt, false), nil
	}
	if !c.options.AllowPendingReceiptQuery {
		return nil, nil
	}
	if receipt := miner.PendingReceipt(chain.ChainInfo().BestBlockNumber, hash); receipt != nil {
		return NewReceiptView(receipt, true), nil
	}
	return nil, nil
}

// uncle projects an uncle with its total difficulty, the uncle difficulty
// on top of its parent's.
func (c *EthClient) uncle(chain ChainClient, id types.UncleID) *BlockView {
	uncle := chain.Uncle(id)
	if uncle == nil {
		return nil
	}
	parentTd := chain.BlockTotalDifficulty(types.BlockIDFromHash(uncle.ParentHash))
	if parentTd == nil {
		return nil
	}
	return NewUncleView(uncle, new(big.Int).Add(uncle.Difficulty, parentTd))
}

func (c *EthClient) GetUncleByBlockHashAndIndex(_ context.Context, hash common.Hash, index hexutil.Uint64) (*BlockView, error) {
	chain, err := c.active()
	if err != nil {
		return nil, err
	}
	return c.uncle(chain, types.UncleID{Block: types.BlockIDFromHash(hash), Position: uint64(index)}), nil
}

func (c *EthClient) GetUncleByBlockNumberAndIndex(_ context.Context, id types.BlockID, index hexutil.Uint64) (*BlockView, error) {
	chain, err := c.active()
	if err != nil {
		return nil, err
	}
	return c.uncle(chain, types.UncleID{Block: id, Position: uint64(index)}), nil
}

func (c *EthClient) GetCompilers(ctx context.Context) ([]string, error) {
	if _, err := c.active(); err != nil {
		return nil, err
	}
	compilers := []string{}
	if c.compiler.Available(ctx) {
		compilers = append(compilers, "solidity")
	}
	return compilers, nil
}

func (c *EthClient) CompileLLL(context.Context, string) (hexutil.Bytes, error) {
	if _, err := c.active(); err != nil {
		return nil, err
	}
	return nil, rpc.Unimplemented()
}

func (c *EthClient) CompileSerpent(context.Context, string) (hexutil.Bytes, error) {
	if _, err := c.active(); err != nil {
		return nil, err
	}
	return nil, rpc.Unimplemented()
}

func (c *EthClient) CompileSolidity(ctx context.Context, source string) (hexutil.Bytes, error) {
	if _, err := c.active(); err != nil {
		return nil, err
	}
	return c.compiler.Compile(ctx, source)
}

// GetLogs returns the matching committed logs in chain order. With a pending
// upper bound the logs of the pending block follow, and the combined list
// keeps its most recent entries when over the limit.
func (c *EthClient) GetLogs(_ context.Context, args FilterArgs) ([]*LogView, error) {
	chain, err := c.active()
	if err != nil {
		return nil, err
	}
	filter := args.toFilter()
	logs := []*LogView{}
	for _, log := range chain.Logs(filter) {
		logs = append(logs, NewLogView(log))
	}
	if filter.ToBlock.IsPending() {
		miner, err := resolve(c.miner)
		if err != nil {
			return nil, err
		}
		for _, receipt := range miner.PendingReceipts(chain.ChainInfo().BestBlockNumber) {
			for _, log := range receipt.Logs {
				if filter.Matches(log) {
					logs = append(logs, NewPendingLogView(log, receipt.TxHash))
				}
			}
		}
	}
	return types.LimitLogs(logs, filter.Limit), nil
}

// SendRawTransaction imports an rlp encoded signed transaction. Undecodable
// input yields the zero hash rather than an error.
func (c *EthClient) SendRawTransaction(_ context.Context, data hexutil.Bytes) (common.Hash, error) {
	_, miner, err := c.withMiner()
	if err != nil {
		return common.Hash{}, err
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(data); err != nil {
		c.logger.Debug("undecodable raw transaction", "err", err)
		return common.Hash{}, nil
	}
	if err := miner.ImportOwnTransaction(tx); err != nil {
		c.logger.Debug("raw transaction rejected", "hash", tx.Hash(), "err", err)
		return common.Hash{}, rpc.Transaction(err)
	}
	return tx.Hash(), nil
}

func (c *EthClient) execute(args CallArgs, block types.BlockID) (*types.Executed, error) {
	chain, miner, err := c.withMiner()
	if err != nil {
		return nil, err
	}
	call := args.toCall(chain.LatestNonce, func() *big.Int {
		return defaultGasPrice(chain, miner)
	})
	var executed *types.Executed
	if block.IsPending() {
		executed, err = miner.Call(call)
	} else {
		executed, err = chain.Call(call, block)
	}
	if err != nil {
		c.logger.Debug("call failed", "block", block, "err", err)
		return nil, nil
	}
	return executed, nil
}

// Call returns the output of executing args read-only, empty if execution
// fails.
func (c *EthClient) Call(_ context.Context, args CallArgs, block types.BlockID) (hexutil.Bytes, error) {
	executed, err := c.execute(args, block)
	if err != nil {
		return nil, err
	}
	if executed == nil {
		return hexutil.Bytes{}, nil
	}
	return executed.Output, nil
}

// EstimateGas returns the gas used plus refunded by executing args, zero if
// execution fails.
func (c *EthClient) EstimateGas(_ context.Context, args CallArgs, block types.BlockID) (hexutil.Uint64, error) {
	executed, err := c.execute(args, block)
	if err != nil {
		return 0, err
	}
	if executed == nil {
		return 0, nil
	}
	return hexutil.Uint64(executed.GasUsed + executed.Refunded), nil
}
