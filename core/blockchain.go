package core

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DOIDFoundation/ethnode/consensus"
	"github.com/DOIDFoundation/ethnode/events"
	"github.com/DOIDFoundation/ethnode/store"
	"github.com/DOIDFoundation/ethnode/transactor"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"
)

var (
	ErrUnknownAncestor = errors.New("unknown ancestor")
	ErrQueueFull       = errors.New("import queue is full")
)

// keepAliveInterval is the minimum time between two recorded keep alives.
var keepAliveInterval = 30 * time.Second

type BlockChain struct {
	service.BaseService
	config     Config
	blockStore *store.BlockStore
	stateStore *store.StateStore
	hc         *HeaderChain
	signer     ethtypes.Signer
	genesis    *types.Block

	mu          sync.RWMutex // held for writing across a whole block import
	latestBlock *types.Block
	td          *big.Int

	queue     chan *types.Block
	stop      chan struct{}
	verifying atomic.Int32
	syncing   atomic.Bool
	highest   atomic.Uint64
	wg        sync.WaitGroup

	keepAlive  *rate.Limiter
	lastActive atomic.Int64
}

func NewBlockChain(cfg Config, logger log.Logger) (*BlockChain, error) {
	blockStore, err := store.NewBlockStore(logger)
	if err != nil {
		return nil, err
	}
	stateStore, err := store.NewStateStore(cfg.StateKeep, logger)
	if err != nil {
		blockStore.Close()
		return nil, err
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}

	bc := &BlockChain{
		config:     cfg,
		blockStore: blockStore,
		stateStore: stateStore,
		hc:         newHeaderChain(blockStore, logger),
		signer:     ethtypes.LatestSignerForChainID(cfg.ChainID),
		queue:      make(chan *types.Block, cfg.QueueSize),
		keepAlive:  rate.NewLimiter(rate.Every(keepAliveInterval), 1),
	}
	bc.BaseService = *service.NewBaseService(logger.With("module", "blockchain"), "BlockChain", bc)

	if err := bc.loadHead(); err != nil {
		bc.Close()
		return nil, err
	}
	return bc, nil
}

// loadHead restores the head block, writing the genesis block into an empty
// database.
func (bc *BlockChain) loadHead() error {
	if bc.stateStore.Version() == 0 {
		root, err := bc.stateStore.Commit(0, genesisState(bc.config.Alloc).Writes())
		if err != nil {
			return err
		}
		genesis := GenesisBlock(bc.config, root)
		bc.hc.writeGenesis(genesis)
		bc.blockStore.WriteHashByNumber(0, genesis.Hash())
		bc.blockStore.WriteHeadBlockHash(genesis.Hash())
		bc.Logger.Info("wrote genesis block", "hash", genesis.Hash(), "root", root)
	}

	bc.genesis = bc.hc.GetBlock(0, bc.blockStore.ReadHashByNumber(0))
	block := bc.blockStore.ReadHeadBlock()
	if bc.genesis == nil || block == nil {
		return errors.New("missing head block in db")
	}
	if version := bc.stateStore.Version(); version != store.VersionOf(block.NumberU64()) {
		bc.Logger.Error("version mismatch", "stateVersion", version, "latestBlock", block.NumberU64())
		return errors.New("bad state version in db")
	}
	bc.latestBlock = block
	bc.td = bc.hc.GetTd(block.NumberU64(), block.Hash())
	bc.Logger.Info("found head block", "number", block.NumberU64(), "hash", block.Hash(), "td", bc.td)
	return nil
}

func (bc *BlockChain) OnStart() error {
	bc.stop = make(chan struct{})
	bc.wg.Add(1)
	go bc.importLoop()
	return nil
}

// OnStop ends the import loop, waiting for a block under import, and closes
// the stores. Quit is only closed after OnStop returns, so the loop watches
// its own channel.
func (bc *BlockChain) OnStop() {
	close(bc.stop)
	bc.wg.Wait()
	bc.Close()
}

func (bc *BlockChain) Close() {
	if err := bc.stateStore.Close(); err != nil {
		bc.Logger.Error("error closing state store", "err", err)
	}
	if err := bc.blockStore.Close(); err != nil {
		bc.Logger.Error("error closing block store", "err", err)
	}
}

func (bc *BlockChain) Config() Config {
	return bc.config
}

func (bc *BlockChain) Signer() ethtypes.Signer {
	return bc.signer
}

func (bc *BlockChain) Genesis() *types.Block {
	return bc.genesis
}

// LatestBlock retrieves the latest head block of the canonical chain.
func (bc *BlockChain) LatestBlock() *types.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.latestBlock
}

// GetTd returns the total difficulty of the head block.
func (bc *BlockChain) GetTd() *big.Int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return new(big.Int).Set(bc.td)
}

func (bc *BlockChain) head() (*types.Block, *big.Int) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.latestBlock, bc.td
}

// stateAt opens the state after block number.
func (bc *BlockChain) stateAt(number uint64) (*transactor.State, error) {
	tree, err := bc.stateStore.At(number)
	if err != nil {
		return nil, err
	}
	return transactor.NewState(tree), nil
}

// LatestState opens the state of the head block.
func (bc *BlockChain) LatestState() (*transactor.State, *types.Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	state, err := bc.stateAt(bc.latestBlock.NumberU64())
	return state, bc.latestBlock, err
}

// Simulate executes txs and uncles in a block with header on top of the head
// without committing anything. The returned state holds the post state.
func (bc *BlockChain) Simulate(header *types.Header, txs types.Transactions, uncles []*types.Header) (*transactor.ExecutionResult, *transactor.State, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	if header.ParentHash != bc.latestBlock.Hash() {
		return nil, nil, fmt.Errorf("%w: head %v, parent %v", types.ErrNotContiguous, bc.latestBlock.Hash(), header.ParentHash)
	}
	return bc.execute(bc.latestBlock.NumberU64(), header, txs, uncles)
}

func (bc *BlockChain) execute(parent uint64, header *types.Header, txs types.Transactions, uncles []*types.Header) (*transactor.ExecutionResult, *transactor.State, error) {
	state, err := bc.stateAt(parent)
	if err != nil {
		return nil, nil, err
	}
	result, err := transactor.ApplyTxs(state, header, txs, bc.signer)
	if err != nil {
		return nil, nil, err
	}
	transactor.Finalize(state, header, uncles)
	if result.StateRoot, err = bc.stateStore.Hash(state.Writes()); err != nil {
		return nil, nil, err
	}
	return result, state, nil
}

// InsertBlock verifies block against the head and makes it the new head.
func (bc *BlockChain) InsertBlock(block *types.Block) error {
	bc.mu.Lock()
	head := bc.latestBlock
	number, hash := block.NumberU64(), block.Hash()
	if number != head.NumberU64()+1 || block.ParentHash() != head.Hash() {
		bc.mu.Unlock()
		return fmt.Errorf("%w, latest %d %v, new block %d parent %v", types.ErrNotContiguous, head.NumberU64(), head.Hash(), number, block.ParentHash())
	}
	td, err := bc.insertBlock(block)
	if err != nil {
		bc.mu.Unlock()
		return err
	}
	bc.latestBlock, bc.td = block, td
	bc.mu.Unlock()

	bc.Logger.Info("new head block", "number", number, "hash", hash, "txs", len(block.Transactions()), "td", td)
	events.NewChainHead.Send(block)
	return nil
}

func (bc *BlockChain) insertBlock(block *types.Block) (*big.Int, error) {
	header := block.Header()
	if err := consensus.VerifySeal(header); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidSeal, err)
	}
	result, state, err := bc.execute(bc.latestBlock.NumberU64(), header, block.Transactions(), block.Uncles())
	if err != nil {
		return nil, err
	}
	switch {
	case len(result.Rejected) > 0:
		return nil, fmt.Errorf("%w: transaction %d rejected, %s", types.ErrInvalidBlock, result.Rejected[0].Index, result.Rejected[0].Err)
	case result.TxRoot != header.TxHash:
		return nil, fmt.Errorf("%w: tx root mismatch, block %v, got %v", types.ErrInvalidBlock, header.TxHash, result.TxRoot)
	case result.ReceiptRoot != header.ReceiptHash:
		return nil, fmt.Errorf("%w: receipt root mismatch, block %v, got %v", types.ErrInvalidBlock, header.ReceiptHash, result.ReceiptRoot)
	case result.GasUsed != header.GasUsed:
		return nil, fmt.Errorf("%w: gas used mismatch, block %d, got %d", types.ErrInvalidBlock, header.GasUsed, result.GasUsed)
	case result.StateRoot != header.Root:
		return nil, fmt.Errorf("%w: state hash mismatch, block root %v, got %v", types.ErrInvalidBlock, header.Root, result.StateRoot)
	}

	td, err := bc.hc.AppendBlock(block)
	if err != nil {
		return nil, err
	}
	if _, err := bc.stateStore.Commit(block.NumberU64(), state.Writes()); err != nil {
		return nil, err
	}
	bc.blockStore.WriteReceipts(block.NumberU64(), block.Hash(), result.Receipts)
	bc.blockStore.WriteTxLookups(block)
	bc.blockStore.WriteHashByNumber(block.NumberU64(), block.Hash())
	bc.blockStore.WriteHeadBlockHash(block.Hash())
	return td, nil
}

// QueueBlock schedules block for import by the import loop.
func (bc *BlockChain) QueueBlock(block *types.Block) error {
	select {
	case bc.queue <- block:
	default:
		return ErrQueueFull
	}
	number := block.NumberU64()
	for {
		highest := bc.highest.Load()
		if number <= highest || bc.highest.CompareAndSwap(highest, number) {
			break
		}
	}
	if len(bc.queue) > 1 && bc.syncing.CompareAndSwap(false, true) {
		events.SyncStarted.Send(bc.highest.Load())
	}
	return nil
}

func (bc *BlockChain) importLoop() {
	defer bc.wg.Done()
	for {
		select {
		case block := <-bc.queue:
			bc.verifying.Store(1)
			if err := bc.InsertBlock(block); err != nil {
				bc.Logger.Error("failed to import block", "number", block.NumberU64(), "hash", block.Hash(), "err", err)
			}
			bc.verifying.Store(0)
			if len(bc.queue) == 0 && bc.syncing.CompareAndSwap(true, false) {
				events.SyncFinished.Send(bc.LatestBlock().NumberU64())
			}
		case <-bc.stop:
			return
		}
	}
}

// QueueInfo reports the blocks waiting for and under import.
func (bc *BlockChain) QueueInfo() types.QueueInfo {
	return types.QueueInfo{
		Unverified: len(bc.queue),
		Verifying:  int(bc.verifying.Load()),
	}
}

// KeepAlive records client activity, at most once per keepAliveInterval.
func (bc *BlockChain) KeepAlive() {
	if !bc.keepAlive.Allow() {
		return
	}
	bc.lastActive.Store(time.Now().Unix())
	bc.Logger.Debug("client activity")
}

// LastActive returns the time KeepAlive was last recorded.
func (bc *BlockChain) LastActive() time.Time {
	if ts := bc.lastActive.Load(); ts != 0 {
		return time.Unix(ts, 0)
	}
	return time.Time{}
}
