package ethapi

import (
	"context"
	"errors"
	"time"

	"github.com/DOIDFoundation/ethnode/consensus"
	"github.com/DOIDFoundation/ethnode/rpc"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
)

// waitForQueue polls until the import queue is empty, the drain timeout
// passes or ctx is done.
func waitForQueue(ctx context.Context, chain ChainClient) error {
	if chain.QueueInfo().IsEmpty() {
		return nil
	}
	timeout := time.NewTimer(queueDrainTimeout)
	defer timeout.Stop()
	ticker := time.NewTicker(queueDrainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if chain.QueueInfo().IsEmpty() {
				return nil
			}
		case <-timeout.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// stale reports whether a block stamped sealed is more than timeout seconds
// older than now.
func stale(sealed, now uint64, timeout Seconds) bool {
	return timeout > 0 && now > sealed && now-sealed > uint64(timeout)
}

// GetWork returns the work package of the pending block. A non-zero timeout
// rejects a pending block older than that many seconds.
func (c *EthClient) GetWork(ctx context.Context, timeout Seconds) (*WorkView, error) {
	chain, err := c.active()
	if err != nil {
		return nil, err
	}
	if chain.QueueInfo().TotalQueueSize() > maxQueueSizeToMineOn {
		c.logger.Debug("syncing, cannot give any work")
		return nil, rpc.NoWork()
	}
	if err := waitForQueue(ctx, chain); err != nil {
		return nil, err
	}

	miner, err := resolve(c.miner)
	if err != nil {
		return nil, err
	}
	if miner.Author() == (common.Address{}) {
		c.logger.Info("cannot give work package, no author is configured")
		return nil, rpc.NoAuthor()
	}
	block := miner.SealingBlock()
	if block == nil {
		return nil, rpc.Internal(errors.New("no sealing work"))
	}
	header := block.Header()
	if stale(header.Time, uint64(time.Now().Unix()), timeout) {
		return nil, rpc.NoNewWork()
	}
	work := &WorkView{
		PowHash:  consensus.SealHash(header),
		SeedHash: c.seeds.Get(header.Number.Uint64()),
		Target:   consensus.DifficultyToBoundary(header.Difficulty),
	}
	if c.options.SendBlockNumberInGetWork {
		number := header.Number.Uint64()
		work.Number = &number
	}
	return work, nil
}

// SubmitWork reports whether the solution sealed the pending block. The
// rejection reason is only logged.
func (c *EthClient) SubmitWork(_ context.Context, nonce types.BlockNonce, powHash, mixHash common.Hash) (bool, error) {
	_, miner, err := c.withMiner()
	if err != nil {
		return false, err
	}
	c.logger.Debug("submit work", "nonce", nonce, "powHash", powHash, "mixHash", mixHash)
	encMix, err := rlp.EncodeToBytes(mixHash)
	if err != nil {
		return false, rpc.Internal(err)
	}
	encNonce, err := rlp.EncodeToBytes(nonce)
	if err != nil {
		return false, rpc.Internal(err)
	}
	if err := miner.SubmitSeal(powHash, [][]byte{encMix, encNonce}); err != nil {
		c.logger.Debug("submitted work rejected", "powHash", powHash, "err", err)
		return false, nil
	}
	return true, nil
}

func (c *EthClient) SubmitHashrate(_ context.Context, rate hexutil.Big, id common.Hash) (bool, error) {
	if _, err := c.active(); err != nil {
		return false, err
	}
	c.external.SubmitHashrate(rate.ToInt(), id)
	return true, nil
}
