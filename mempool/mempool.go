package mempool

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/DOIDFoundation/ethnode/core"
	"github.com/DOIDFoundation/ethnode/events"
	"github.com/DOIDFoundation/ethnode/transactor"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

const (
	// maxSlots bounds the transactions held by the pool.
	maxSlots = 4096
)

var (
	evictionInterval = time.Minute   // Time interval to check for evictable transactions
	lifetime         = 3 * time.Hour // Maximum amount of time transactions are pooled
)

var (
	ErrAlreadyKnown      = errors.New("already known")
	ErrTxPoolOverflow    = errors.New("txpool is full")
	ErrInvalidSender     = errors.New("invalid sender")
	ErrNonceTooLow       = transactor.ErrNonceTooLow
	ErrIntrinsicGas      = transactor.ErrIntrinsicGas
	ErrInsufficientFunds = transactor.ErrInsufficientFunds
	ErrGasLimit          = errors.New("exceeds block gas limit")
)

type Mempool struct {
	service.BaseService
	chain *core.BlockChain
	mu    sync.RWMutex

	all *txLookup // All transactions to allow lookups
	wg  sync.WaitGroup
}

func NewMempool(chain *core.BlockChain, logger log.Logger) *Mempool {
	pool := &Mempool{
		chain: chain,
		all:   newTxLookup(),
	}
	pool.BaseService = *service.NewBaseService(logger.With("module", "mempool"), "mempool", pool)
	return pool
}

func (pool *Mempool) OnStart() error {
	pool.reset()

	events.NewChainHead.Subscribe(pool.String(), func(block *types.Block) {
		pool.reset()
	})
	pool.wg.Add(1)
	go pool.loop()
	return nil
}

func (pool *Mempool) OnStop() {
	events.NewChainHead.Unsubscribe(pool.String())
}

func (pool *Mempool) Wait() {
	pool.wg.Wait()
}

// Stats returns the number of executable and queued transactions.
func (pool *Mempool) Stats() (int, int) {
	pending := len(pool.Pending())
	return pending, pool.all.Count() - pending
}

func (pool *Mempool) loop() {
	defer pool.wg.Done()

	evict := time.NewTicker(evictionInterval)
	defer evict.Stop()

	for {
		select {
		case <-evict.C:
			pool.mu.Lock()
			var evicted int
			pool.all.Range(func(hash common.Hash, tx *types.Transaction, added time.Time) bool {
				if time.Since(added) > lifetime {
					pool.all.Remove(hash)
					evicted++
				}
				return true
			})
			pool.mu.Unlock()
			if evicted > 0 {
				pool.Logger.Info("evicted stale transactions", "count", evicted)
			}
		case <-pool.Quit():
			return
		}
	}
}

// reset drops the transactions the head state has made obsolete.
func (pool *Mempool) reset() {
	state, head, err := pool.chain.LatestState()
	if err != nil {
		pool.Logger.Error("failed to open head state", "err", err)
		return
	}
	signer := pool.chain.Signer()

	pool.mu.Lock()
	defer pool.mu.Unlock()
	var dropped int
	pool.all.Range(func(hash common.Hash, tx *types.Transaction, _ time.Time) bool {
		from, _ := ethtypes.Sender(signer, tx)
		if tx.Nonce() < state.Nonce(from) {
			pool.all.Remove(hash)
			dropped++
		}
		return true
	})
	if dropped > 0 {
		pool.Logger.Debug("dropped included transactions", "count", dropped, "head", head.NumberU64())
	}
}

// validateTx checks a transaction against the head state.
func (pool *Mempool) validateTx(tx *types.Transaction) error {
	from, err := ethtypes.Sender(pool.chain.Signer(), tx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSender, err)
	}
	state, head, err := pool.chain.LatestState()
	if err != nil {
		return err
	}
	if tx.Gas() > head.GasLimit() {
		return ErrGasLimit
	}
	if nonce := state.Nonce(from); tx.Nonce() < nonce {
		return fmt.Errorf("%w: address %v, tx %d state %d", ErrNonceTooLow, from, tx.Nonce(), nonce)
	}
	if gas := transactor.IntrinsicGas(tx.Data(), tx.To() == nil); tx.Gas() < gas {
		return fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, tx.Gas(), gas)
	}
	if state.Balance(from).Cmp(tx.Cost()) < 0 {
		return fmt.Errorf("%w: address %v", ErrInsufficientFunds, from)
	}
	return nil
}

func (pool *Mempool) AddLocal(tx *types.Transaction) error {
	return pool.AddLocals(types.Transactions{tx})[0]
}

// AddLocals validates and queues txs, returning one error slot per
// transaction.
func (pool *Mempool) AddLocals(txs types.Transactions) []error {
	var (
		errs  = make([]error, len(txs))
		added = make(types.Transactions, 0, len(txs))
	)
	pool.mu.Lock()
	for i, tx := range txs {
		if errs[i] = pool.add(tx); errs[i] == nil {
			added = append(added, tx)
		}
	}
	pool.mu.Unlock()

	if len(added) > 0 {
		events.NewPendingTxs.Send(added)
	}
	return errs
}

func (pool *Mempool) add(tx *types.Transaction) error {
	if pool.all.Get(tx.Hash()) != nil {
		return ErrAlreadyKnown
	}
	if err := pool.validateTx(tx); err != nil {
		pool.Logger.Debug("discarding invalid transaction", "hash", tx.Hash(), "err", err)
		return err
	}
	if pool.all.Count() >= maxSlots {
		return ErrTxPoolOverflow
	}
	pool.all.Add(tx)
	pool.Logger.Debug("pooled new transaction", "hash", tx.Hash(), "nonce", tx.Nonce())
	return nil
}

// Get returns a pooled transaction, nil if unknown.
func (pool *Mempool) Get(hash common.Hash) *types.Transaction {
	return pool.all.Get(hash)
}

// Pending returns the executable transactions, grouped by sender in nonce
// order starting from the head state nonce.
func (pool *Mempool) Pending() types.Transactions {
	state, _, err := pool.chain.LatestState()
	if err != nil {
		pool.Logger.Error("failed to open head state", "err", err)
		return nil
	}
	signer := pool.chain.Signer()

	pool.mu.RLock()
	bySender := make(map[common.Address]types.Transactions)
	pool.all.Range(func(_ common.Hash, tx *types.Transaction, _ time.Time) bool {
		from, _ := ethtypes.Sender(signer, tx)
		bySender[from] = append(bySender[from], tx)
		return true
	})
	pool.mu.RUnlock()

	senders := make([]common.Address, 0, len(bySender))
	for from := range bySender {
		senders = append(senders, from)
	}
	sort.Slice(senders, func(i, j int) bool {
		return senders[i].Cmp(senders[j]) < 0
	})

	pending := types.Transactions{}
	for _, from := range senders {
		txs := bySender[from]
		sort.Sort(ethtypes.TxByNonce(txs))
		next := state.Nonce(from)
		for _, tx := range txs {
			if tx.Nonce() != next {
				break
			}
			pending = append(pending, tx)
			next++
		}
	}
	return pending
}

// PendingNonce returns the next nonce of addr counting executable pooled
// transactions.
func (pool *Mempool) PendingNonce(addr common.Address) uint64 {
	nonce := pool.chain.LatestNonce(addr)
	signer := pool.chain.Signer()
	for _, tx := range pool.Pending() {
		if from, _ := ethtypes.Sender(signer, tx); from == addr && tx.Nonce() >= nonce {
			nonce = tx.Nonce() + 1
		}
	}
	return nonce
}

// GasPrices returns the gas prices of all pooled transactions.
func (pool *Mempool) GasPrices() []*big.Int {
	var prices []*big.Int
	pool.all.Range(func(_ common.Hash, tx *types.Transaction, _ time.Time) bool {
		prices = append(prices, tx.GasPrice())
		return true
	})
	return prices
}

// txLookup is used internally by Mempool to track transactions while allowing
// lookup without mutex contention.
type txLookup struct {
	lock  sync.RWMutex
	txs   map[common.Hash]*types.Transaction
	added map[common.Hash]time.Time
}

// newTxLookup returns a new txLookup structure.
func newTxLookup() *txLookup {
	return &txLookup{
		txs:   make(map[common.Hash]*types.Transaction),
		added: make(map[common.Hash]time.Time),
	}
}

// Range calls f on each transaction with the time it was added. The
// callback returns whether the iteration should continue. f must not call
// back into the lookup except for Remove.
func (t *txLookup) Range(f func(hash common.Hash, tx *types.Transaction, added time.Time) bool) {
	t.lock.RLock()
	snapshot := make(map[common.Hash]*types.Transaction, len(t.txs))
	for hash, tx := range t.txs {
		snapshot[hash] = tx
	}
	added := make(map[common.Hash]time.Time, len(t.added))
	for hash, at := range t.added {
		added[hash] = at
	}
	t.lock.RUnlock()

	for hash, tx := range snapshot {
		if !f(hash, tx, added[hash]) {
			return
		}
	}
}

// Get returns a transaction if it exists in the lookup, or nil if not found.
func (t *txLookup) Get(hash common.Hash) *types.Transaction {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.txs[hash]
}

// Count returns the current number of transactions in the lookup.
func (t *txLookup) Count() int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return len(t.txs)
}

// Add adds a transaction to the lookup.
func (t *txLookup) Add(tx *types.Transaction) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.txs[tx.Hash()] = tx
	t.added[tx.Hash()] = time.Now()
}

// Remove removes a transaction from the lookup.
func (t *txLookup) Remove(hash common.Hash) {
	t.lock.Lock()
	defer t.lock.Unlock()

	delete(t.txs, hash)
	delete(t.added, hash)
}
