package ethapi_test

import (
	"errors"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/DOIDFoundation/ethnode/types"
	"github.com/ethereum/go-ethereum/common"
)

var errFake = errors.New("fake failure")

// fakeChain serves a fixed canonical chain. State exists for blocks at or
// above prunedBelow, the balance of every account there is 100 per block.
type fakeChain struct {
	mu          sync.Mutex
	blocks      []*types.Block
	tds         map[common.Hash]*big.Int
	receipts    map[common.Hash]*types.Receipt
	logs        []*types.Log
	prunedBelow uint64
	median      *big.Int
	executed    *types.Executed
	lastCall    *types.Call
	lastFilter  *types.Filter
	afterBlock  func()

	queue      atomic.Int32
	drainQueue bool
	keepAlives atomic.Int32
}

func (c *fakeChain) resolve(id types.BlockID) (*types.Block, bool) {
	switch id.Tag {
	case types.TagLatest, types.TagPending:
		return c.blocks[len(c.blocks)-1], true
	case types.TagEarliest:
		return c.blocks[0], true
	case types.TagHash:
		for _, b := range c.blocks {
			if b.Hash() == id.Hash {
				return b, true
			}
		}
		return nil, false
	default:
		if id.Number >= uint64(len(c.blocks)) {
			return nil, false
		}
		return c.blocks[id.Number], true
	}
}

func (c *fakeChain) Block(id types.BlockID) *types.Block {
	b, _ := c.resolve(id)
	if c.afterBlock != nil {
		c.afterBlock()
	}
	return b
}

func (c *fakeChain) BlockTotalDifficulty(id types.BlockID) *big.Int {
	b, ok := c.resolve(id)
	if !ok {
		return nil
	}
	return c.tds[b.Hash()]
}

func (c *fakeChain) Uncle(id types.UncleID) *types.Header {
	b, ok := c.resolve(id.Block)
	if !ok || id.Position >= uint64(len(b.Uncles())) {
		return nil
	}
	return b.Uncles()[id.Position]
}

func (c *fakeChain) Transaction(id types.TransactionID) *types.LocalizedTransaction {
	for _, b := range c.blocks {
		if id.Hash == nil {
			if want, ok := c.resolve(id.Block); !ok || want != b {
				continue
			}
		}
		for i, tx := range b.Transactions() {
			if (id.Hash != nil && tx.Hash() == *id.Hash) || (id.Hash == nil && uint64(i) == id.Index) {
				var (
					hash   = b.Hash()
					number = b.NumberU64()
					index  = uint64(i)
				)
				return &types.LocalizedTransaction{Transaction: tx, From: sender, BlockHash: &hash, BlockNumber: &number, Index: &index}
			}
		}
	}
	return nil
}

func (c *fakeChain) TransactionReceipt(id types.TransactionID) *types.Receipt {
	if id.Hash == nil {
		return nil
	}
	return c.receipts[*id.Hash]
}

func (c *fakeChain) Logs(filter *types.Filter) []*types.Log {
	c.mu.Lock()
	c.lastFilter = filter
	c.mu.Unlock()
	logs := []*types.Log{}
	for _, log := range c.logs {
		if filter.Matches(log) {
			logs = append(logs, log)
		}
	}
	return types.LimitLogs(logs, filter.Limit)
}

func (c *fakeChain) ChainInfo() types.ChainInfo {
	head := c.blocks[len(c.blocks)-1]
	return types.ChainInfo{
		TotalDifficulty: c.tds[head.Hash()],
		GenesisHash:     c.blocks[0].Hash(),
		BestBlockHash:   head.Hash(),
		BestBlockNumber: head.NumberU64(),
	}
}

func (c *fakeChain) QueueInfo() types.QueueInfo {
	n := c.queue.Load()
	if c.drainQueue && n > 0 {
		c.queue.Add(-1)
	}
	return types.QueueInfo{Unverified: int(n)}
}

func (c *fakeChain) state(id types.BlockID) (uint64, bool) {
	b, ok := c.resolve(id)
	if !ok || b.NumberU64() < c.prunedBelow {
		return 0, false
	}
	return b.NumberU64(), true
}

func (c *fakeChain) Balance(addr common.Address, id types.BlockID) (*big.Int, bool) {
	number, ok := c.state(id)
	if !ok {
		return nil, false
	}
	return big.NewInt(int64(100 * (number + 1))), true
}

func (c *fakeChain) Nonce(addr common.Address, id types.BlockID) (uint64, bool) {
	number, ok := c.state(id)
	return number, ok
}

func (c *fakeChain) Code(addr common.Address, id types.BlockID) ([]byte, bool) {
	_, ok := c.state(id)
	if !ok {
		return nil, false
	}
	return []byte{0xc0, 0xde}, true
}

func (c *fakeChain) StorageAt(addr common.Address, slot common.Hash, id types.BlockID) (common.Hash, bool) {
	_, ok := c.state(id)
	if !ok {
		return common.Hash{}, false
	}
	return slot, true
}

func (c *fakeChain) LatestNonce(common.Address) uint64 {
	return 5
}

func (c *fakeChain) Call(call *types.Call, id types.BlockID) (*types.Executed, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastCall = call
	if _, ok := c.state(id); !ok || c.executed == nil {
		return nil, errFake
	}
	return c.executed, nil
}

func (c *fakeChain) GasPriceMedian(int) *big.Int {
	return c.median
}

func (c *fakeChain) KeepAlive() {
	c.keepAlives.Add(1)
}

// fakeMiner holds a pending block with one receipt per pending transaction.
type fakeMiner struct {
	author    common.Address
	block     *types.Block
	receipts  types.Receipts
	pending   map[common.Hash]*types.LocalizedTransaction
	sealErr   error
	importErr error
	imported  []*types.Transaction
	seal      [][]byte
	executed  *types.Executed
	lastCall  *types.Call
}

func (m *fakeMiner) Author() common.Address { return m.author }
func (m *fakeMiner) IsSealing() bool        { return true }

func (m *fakeMiner) Balance(common.Address) *big.Int {
	return big.NewInt(999)
}

func (m *fakeMiner) Nonce(common.Address) uint64 {
	return 9
}

func (m *fakeMiner) Code(common.Address) []byte {
	return []byte{0xbe, 0xef}
}

func (m *fakeMiner) StorageAt(common.Address, common.Hash) common.Hash {
	return common.Hash{9}
}

func (m *fakeMiner) Call(call *types.Call) (*types.Executed, error) {
	m.lastCall = call
	if m.executed == nil {
		return nil, errFake
	}
	return m.executed, nil
}

func (m *fakeMiner) Status() types.MinerStatus {
	return types.MinerStatus{TransactionsInPendingBlock: 3}
}

func (m *fakeMiner) Transaction(best uint64, hash common.Hash) *types.LocalizedTransaction {
	return m.pending[hash]
}

func (m *fakeMiner) PendingReceipt(best uint64, hash common.Hash) *types.Receipt {
	for _, r := range m.receipts {
		if r.TxHash == hash {
			return r
		}
	}
	return nil
}

func (m *fakeMiner) PendingReceipts(uint64) types.Receipts {
	return m.receipts
}

func (m *fakeMiner) SealingBlock() *types.Block {
	return m.block
}

func (m *fakeMiner) SubmitSeal(powHash common.Hash, seal [][]byte) error {
	m.seal = seal
	return m.sealErr
}

func (m *fakeMiner) ImportOwnTransaction(tx *types.Transaction) error {
	if m.importErr != nil {
		return m.importErr
	}
	m.imported = append(m.imported, tx)
	return nil
}

func (m *fakeMiner) SensibleGasPrice() *big.Int {
	return big.NewInt(42)
}

// fakeSync behaves like a service that can be stopped.
type fakeSync struct {
	status types.SyncStatus
	quit   chan struct{}
}

func (s *fakeSync) Status() types.SyncStatus {
	return s.status
}

func (s *fakeSync) Quit() <-chan struct{} {
	return s.quit
}
