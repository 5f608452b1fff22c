package mempool_test

import (
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/DOIDFoundation/ethnode/consensus"
	"github.com/DOIDFoundation/ethnode/core"
	"github.com/DOIDFoundation/ethnode/events"
	"github.com/DOIDFoundation/ethnode/flags"
	"github.com/DOIDFoundation/ethnode/mempool"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	key, _   = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	sender   = crypto.PubkeyToAddress(key.PublicKey)
	receiver = common.HexToAddress("0xbeef")
)

func newMempool(t *testing.T) (*mempool.Mempool, *core.BlockChain) {
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout))
	viper.SetDefault(flags.DB_Engine, "memdb")
	cfg := core.DefaultConfig()
	cfg.Alloc = map[common.Address]*big.Int{sender: big.NewInt(1e18)}
	chain, err := core.NewBlockChain(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(chain.Close)
	p := mempool.NewMempool(chain, logger)
	require.NotNil(t, p)
	return p, chain
}

func transfer(t *testing.T, chain *core.BlockChain, nonce uint64, value int64) *types.Transaction {
	tx, err := ethtypes.SignNewTx(key, chain.Signer(), &ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &receiver,
		Value:    big.NewInt(value),
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})
	require.NoError(t, err)
	return tx
}

func buildBlock(t *testing.T, chain *core.BlockChain, txs types.Transactions, time uint64) *types.Block {
	parent := chain.LatestBlock()
	header := &types.Header{
		ParentHash: parent.Hash(),
		Number:     new(big.Int).Add(parent.Number(), common.Big1),
		Difficulty: big.NewInt(1),
		GasLimit:   parent.GasLimit(),
		UncleHash:  types.EmptyUncleHash,
		Time:       time,
	}
	result, _, err := chain.Simulate(header, txs, nil)
	require.NoError(t, err)
	header.Root = result.StateRoot
	header.TxHash = result.TxRoot
	header.ReceiptHash = result.ReceiptRoot
	header.Bloom = result.Bloom
	header.GasUsed = result.GasUsed
	mix, _ := consensus.Hashimoto(consensus.SeedHash(header.Number.Uint64()), consensus.SealHash(header), 0)
	header.MixDigest = mix
	return types.NewBlockWithHeader(header).WithBody(types.Body{Transactions: result.Txs})
}

func TestAddLocal(t *testing.T) {
	p, c := newMempool(t)
	tx := transfer(t, c, 0, 1)
	assert.NoError(t, p.AddLocal(tx))
	assert.ErrorIs(t, p.AddLocal(tx), mempool.ErrAlreadyKnown)
	assert.Equal(t, tx.Hash(), p.Get(tx.Hash()).Hash())
	assert.Nil(t, p.Get(common.Hash{1}))

	assert.ErrorIs(t, p.AddLocal(transfer(t, c, 1, 2e18)), mempool.ErrInsufficientFunds)

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	unfunded, err := ethtypes.SignNewTx(other, c.Signer(), &ethtypes.LegacyTx{To: &receiver, Gas: 21000, GasPrice: big.NewInt(1)})
	require.NoError(t, err)
	assert.ErrorIs(t, p.AddLocal(unfunded), mempool.ErrInsufficientFunds)

	lowGas, err := ethtypes.SignNewTx(key, c.Signer(), &ethtypes.LegacyTx{Nonce: 1, To: &receiver, Gas: 20000, GasPrice: big.NewInt(1)})
	require.NoError(t, err)
	assert.ErrorIs(t, p.AddLocal(lowGas), mempool.ErrIntrinsicGas)

	wrongChain, err := ethtypes.SignNewTx(key, ethtypes.LatestSignerForChainID(big.NewInt(1)), &ethtypes.LegacyTx{Nonce: 1, To: &receiver, Gas: 21000, GasPrice: big.NewInt(1)})
	require.NoError(t, err)
	assert.ErrorIs(t, p.AddLocal(wrongChain), mempool.ErrInvalidSender)
}

func TestPending(t *testing.T) {
	p, c := newMempool(t)
	errs := p.AddLocals(types.Transactions{transfer(t, c, 1, 1), transfer(t, c, 0, 1), transfer(t, c, 3, 1)})
	for _, err := range errs {
		assert.NoError(t, err)
	}
	pending := p.Pending()
	require.Len(t, pending, 2)
	assert.EqualValues(t, 0, pending[0].Nonce())
	assert.EqualValues(t, 1, pending[1].Nonce())
	assert.EqualValues(t, 2, p.PendingNonce(sender))
	executable, queued := p.Stats()
	assert.Equal(t, 2, executable)
	assert.Equal(t, 1, queued)
	assert.Len(t, p.GasPrices(), 3)
}

func TestMempool(t *testing.T) {
	p, c := newMempool(t)
	require.NoError(t, p.AddLocal(transfer(t, c, 0, 1)))
	require.NoError(t, p.AddLocal(transfer(t, c, 1, 1)))
	require.NoError(t, p.Start())
	t.Cleanup(func() { p.Stop(); p.Wait() })

	heads := make(chan struct{}, 1)
	events.NewChainHead.Subscribe(t.Name(), func(*types.Block) { heads <- struct{}{} })
	defer events.NewChainHead.Unsubscribe(t.Name())

	require.NoError(t, c.InsertBlock(buildBlock(t, c, p.Pending(), 1)))
	<-heads
	assert.Eventually(t, func() bool {
		_, queued := p.Stats()
		return queued == 0 && len(p.Pending()) == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, p.AddLocal(transfer(t, c, 0, 1)), mempool.ErrNonceTooLow)
}

func TestNewPendingTxsEvent(t *testing.T) {
	p, c := newMempool(t)
	got := make(chan types.Transactions, 1)
	events.NewPendingTxs.Subscribe(t.Name(), func(txs types.Transactions) { got <- txs })
	defer events.NewPendingTxs.Unsubscribe(t.Name())

	tx := transfer(t, c, 0, 1)
	require.NoError(t, p.AddLocal(tx))
	select {
	case txs := <-got:
		require.Len(t, txs, 1)
		assert.Equal(t, tx.Hash(), txs[0].Hash())
	case <-time.After(5 * time.Second):
		t.Fatal("no pending transactions event")
	}
}
