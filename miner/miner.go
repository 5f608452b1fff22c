package miner

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/DOIDFoundation/ethnode/consensus"
	"github.com/DOIDFoundation/ethnode/core"
	"github.com/DOIDFoundation/ethnode/events"
	"github.com/DOIDFoundation/ethnode/mempool"
	"github.com/DOIDFoundation/ethnode/transactor"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	ErrNoWork      = errors.New("no sealing work")
	ErrUnknownWork = errors.New("unknown work")
	ErrInvalidSeal = errors.New("invalid seal")
)

// pendingBlock is the block under construction on top of the head.
type pendingBlock struct {
	block    *types.Block
	state    *transactor.State
	receipts types.Receipts
}

// Miner keeps a pending block assembled from the mempool on top of the chain
// head, hands it out for sealing and imports sealed results.
type Miner struct {
	service.BaseService
	config Config
	chain  *core.BlockChain
	pool   *mempool.Mempool
	sealer *consensus.Sealer

	updating sync.Mutex // serializes pending block rebuilds
	mu       sync.RWMutex
	pending  *pendingBlock
}

func NewMiner(config Config, chain *core.BlockChain, pool *mempool.Mempool, logger log.Logger) *Miner {
	m := &Miner{
		config: config,
		chain:  chain,
		pool:   pool,
	}
	m.BaseService = *service.NewBaseService(logger.With("module", "miner"), "Miner", m)
	if config.Enabled {
		m.sealer = consensus.NewSealer(m, config.Threads, config.Recommit, logger)
	}
	return m
}

func (m *Miner) OnStart() error {
	m.update()
	events.NewChainHead.Subscribe(m.String(), func(*types.Block) { m.update() })
	events.NewPendingTxs.Subscribe(m.String(), func(types.Transactions) { m.update() })
	if m.sealer != nil {
		return m.sealer.Start()
	}
	return nil
}

func (m *Miner) OnStop() {
	events.NewChainHead.Unsubscribe(m.String()).Wait()
	events.NewPendingTxs.Unsubscribe(m.String()).Wait()
	if m.sealer != nil && m.sealer.IsRunning() {
		m.sealer.Stop()
		m.sealer.Wait()
	}
}

// update rebuilds the pending block from the executable pool transactions.
func (m *Miner) update() {
	m.updating.Lock()
	defer m.updating.Unlock()

	parent := m.chain.LatestBlock()
	header := &types.Header{
		ParentHash: parent.Hash(),
		UncleHash:  types.EmptyUncleHash,
		Coinbase:   m.config.Author,
		Number:     new(big.Int).Add(parent.Number(), common.Big1),
		GasLimit:   parent.GasLimit(),
		Time:       uint64(time.Now().Unix()),
	}
	if header.Time <= parent.Time() {
		header.Time = parent.Time() + 1
	}
	header.Difficulty = consensus.CalcDifficulty(header.Time, parent.Header())

	result, state, err := m.chain.Simulate(header, m.pool.Pending(), nil)
	if errors.Is(err, types.ErrNotContiguous) {
		m.Logger.Debug("head moved while building pending block", "parent", parent.Hash())
		return
	}
	if err != nil {
		m.Logger.Error("failed to build pending block", "err", err)
		return
	}
	for _, rejected := range result.Rejected {
		m.Logger.Debug("transaction left out of pending block", "index", rejected.Index, "err", rejected.Err)
	}
	header.Root = result.StateRoot
	header.TxHash = result.TxRoot
	header.ReceiptHash = result.ReceiptRoot
	header.Bloom = result.Bloom
	header.GasUsed = result.GasUsed
	block := types.NewBlockWithHeader(header).WithBody(types.Body{Transactions: result.Txs})

	m.mu.Lock()
	m.pending = &pendingBlock{block: block, state: state, receipts: result.Receipts}
	m.mu.Unlock()
	m.Logger.Debug("pending block updated", "number", header.Number, "txs", len(result.Txs), "sealHash", consensus.SealHash(header))
}

func (m *Miner) current() *pendingBlock {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pending
}

// Author returns the beneficiary of sealed blocks.
func (m *Miner) Author() common.Address {
	return m.config.Author
}

// IsSealing reports whether local sealing threads are running.
func (m *Miner) IsSealing() bool {
	return m.sealer != nil && m.sealer.IsRunning()
}

// SealingBlock returns the pending block, nil before the first one is built.
func (m *Miner) SealingBlock() *types.Block {
	if p := m.current(); p != nil {
		return p.block
	}
	return nil
}

// SubmitSeal seals the pending block whose seal hash is powHash with seal,
// the rlp encoded mix digest and nonce, and queues it for import.
func (m *Miner) SubmitSeal(powHash common.Hash, seal [][]byte) error {
	p := m.current()
	if p == nil {
		return ErrNoWork
	}
	header := p.block.Header()
	if hash := consensus.SealHash(header); hash != powHash {
		return fmt.Errorf("%w: %v, pending %v", ErrUnknownWork, powHash, hash)
	}
	if len(seal) != 2 {
		return fmt.Errorf("%w: %d fields", ErrInvalidSeal, len(seal))
	}
	if err := rlp.DecodeBytes(seal[0], &header.MixDigest); err != nil {
		return fmt.Errorf("%w: mix digest: %v", ErrInvalidSeal, err)
	}
	if err := rlp.DecodeBytes(seal[1], &header.Nonce); err != nil {
		return fmt.Errorf("%w: nonce: %v", ErrInvalidSeal, err)
	}
	if err := consensus.VerifySeal(header); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSeal, err)
	}
	block := p.block.WithSeal(header)
	if err := m.chain.QueueBlock(block); err != nil {
		return err
	}
	m.Logger.Info("sealed block queued", "number", block.NumberU64(), "hash", block.Hash(), "txs", len(block.Transactions()))
	events.NewMinedBlock.Send(block)
	return nil
}

// pendingState returns a private copy of the pending state, or of the head
// state before a pending block exists.
func (m *Miner) pendingState() (*transactor.State, error) {
	if p := m.current(); p != nil {
		return p.state.Copy(), nil
	}
	state, _, err := m.chain.LatestState()
	return state, err
}

func (m *Miner) Balance(addr common.Address) *big.Int {
	state, err := m.pendingState()
	if err != nil {
		m.Logger.Error("failed to open pending state", "err", err)
		return new(big.Int)
	}
	return state.Balance(addr)
}

func (m *Miner) Nonce(addr common.Address) uint64 {
	state, err := m.pendingState()
	if err != nil {
		m.Logger.Error("failed to open pending state", "err", err)
		return 0
	}
	return state.Nonce(addr)
}

func (m *Miner) Code(addr common.Address) []byte {
	state, err := m.pendingState()
	if err != nil {
		m.Logger.Error("failed to open pending state", "err", err)
		return nil
	}
	return state.Code(addr)
}

func (m *Miner) StorageAt(addr common.Address, slot common.Hash) common.Hash {
	state, err := m.pendingState()
	if err != nil {
		m.Logger.Error("failed to open pending state", "err", err)
		return common.Hash{}
	}
	return state.Storage(addr, slot)
}

// Call executes call read-only against the pending state.
func (m *Miner) Call(call *types.Call) (*types.Executed, error) {
	state, err := m.pendingState()
	if err != nil {
		return nil, err
	}
	return transactor.Call(state, call)
}

// Status counts pooled transactions and those in the pending block.
func (m *Miner) Status() types.MinerStatus {
	pending, queued := m.pool.Stats()
	status := types.MinerStatus{
		TransactionsInPendingQueue: pending,
		TransactionsInFutureQueue:  queued,
	}
	if p := m.current(); p != nil {
		status.TransactionsInPendingBlock = len(p.block.Transactions())
	}
	return status
}

// Transaction returns a transaction known to the pool, without chain
// position. It is nil unless the pending block builds on best.
func (m *Miner) Transaction(best uint64, hash common.Hash) *types.LocalizedTransaction {
	if !m.buildsOn(best) {
		return nil
	}
	tx := m.pool.Get(hash)
	if tx == nil {
		if p := m.current(); p != nil {
			tx = p.block.Transaction(hash)
		}
	}
	if tx == nil {
		return nil
	}
	from, err := ethtypes.Sender(m.chain.Signer(), tx)
	if err != nil {
		return nil
	}
	return &types.LocalizedTransaction{Transaction: tx, From: from}
}

// PendingReceipt returns the receipt of hash in the pending block built on
// best.
func (m *Miner) PendingReceipt(best uint64, hash common.Hash) *types.Receipt {
	for _, receipt := range m.PendingReceipts(best) {
		if receipt.TxHash == hash {
			return receipt
		}
	}
	return nil
}

// PendingReceipts returns the receipts of the pending block built on best.
func (m *Miner) PendingReceipts(best uint64) types.Receipts {
	p := m.current()
	if p == nil || p.block.NumberU64() != best+1 {
		return nil
	}
	return p.receipts
}

func (m *Miner) buildsOn(best uint64) bool {
	p := m.current()
	return p == nil || p.block.NumberU64() == best+1
}

// ImportOwnTransaction adds a locally submitted transaction to the pool.
func (m *Miner) ImportOwnTransaction(tx *types.Transaction) error {
	return m.pool.AddLocal(tx)
}

// SensibleGasPrice is the median gas price of pooled transactions, or the
// configured price if the pool is empty.
func (m *Miner) SensibleGasPrice() *big.Int {
	prices := m.pool.GasPrices()
	if len(prices) == 0 {
		return new(big.Int).Set(m.config.GasPrice)
	}
	sort.Slice(prices, func(i, j int) bool {
		return prices[i].Cmp(prices[j]) < 0
	})
	return new(big.Int).Set(prices[len(prices)/2])
}
