package consensus

import (
	crand "crypto/rand"
	"math"
	"math/big"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/DOIDFoundation/ethnode/events"
	"github.com/DOIDFoundation/ethnode/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// Work is the source of blocks to seal and the sink of found seals.
type Work interface {
	SealingBlock() *types.Block
	SubmitSeal(powHash common.Hash, seal [][]byte) error
}

// Sealer searches nonces for the block currently offered by Work on local
// CPU threads.
type Sealer struct {
	service.BaseService
	wg       sync.WaitGroup
	work     Work
	threads  int
	recommit time.Duration
	taskCh   chan *types.Block
	resultCh chan *types.Block

	mu      sync.Mutex
	current common.Hash // seal hash of the block being searched
}

// NewSealer creates a sealer using threads goroutines, zero means one per
// logical CPU. Work is refreshed every recommit and on every new chain head.
func NewSealer(work Work, threads int, recommit time.Duration, logger log.Logger) *Sealer {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if recommit <= 0 {
		recommit = time.Second
	}
	sealer := &Sealer{
		work:     work,
		threads:  threads,
		recommit: recommit,
		taskCh:   make(chan *types.Block),
		resultCh: make(chan *types.Block),
	}
	sealer.BaseService = *service.NewBaseService(logger.With("module", "consensus"), "Sealer", sealer)
	return sealer
}

func (s *Sealer) OnStart() error {
	s.mu.Lock()
	s.current = common.Hash{}
	s.mu.Unlock()
	s.wg.Add(3)
	go s.mainLoop()
	go s.resultLoop()
	go s.newWorkLoop()
	events.NewChainHead.Subscribe(s.String(), func(*types.Block) {
		s.commitWork()
	})
	return nil
}

func (s *Sealer) OnStop() {
	events.NewChainHead.Unsubscribe(s.String())
}

func (s *Sealer) OnReset() error {
	s.Wait()
	return nil
}

func (s *Sealer) Wait() {
	s.wg.Wait()
}

// the main mining loop
func (s *Sealer) mainLoop() {
	defer s.wg.Done()
	var stopCh chan struct{}
	for {
		select {
		case block := <-s.taskCh:
			if stopCh != nil {
				close(stopCh)
				stopCh = nil
			}
			stopCh = make(chan struct{})
			if err := s.startMine(block, stopCh); err != nil {
				s.Logger.Error("block sealing failed", "err", err)
			}
		case <-s.Quit():
			if stopCh != nil {
				close(stopCh)
				stopCh = nil
			}
			return
		}
	}
}

// start a multi thread nonce search
func (s *Sealer) startMine(block *types.Block, stop chan struct{}) error {
	abort := make(chan struct{})
	found := make(chan *types.Block)
	seed, err := crand.Int(crand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return err
	}
	rand := rand.New(rand.NewSource(seed.Int64()))
	s.Logger.Info("start a new mine round", "threads", s.threads, "number", block.Number(), "difficulty", block.Difficulty())
	var pend sync.WaitGroup
	for i := 0; i < s.threads; i++ {
		pend.Add(1)
		go func(id int, nonce uint64) {
			defer pend.Done()
			s.mine(id, block, nonce, abort, found)
		}(i, uint64(rand.Int63()))
	}

	// Wait until sealing is terminated or a nonce is found
	go func() {
		var result *types.Block
		select {
		case <-stop:
			// Outside abort, stop all miner threads
			close(abort)
		case result = <-found:
			// One of the threads found a block, abort all others
			select {
			case s.resultCh <- result:
			default:
				s.Logger.Info("result is not read by sealer", "number", result.Number(), "hash", result.Hash())
			}
			close(abort)
		case <-s.Quit():
			// Outside abort, stop all miner threads
			close(abort)
		}
		// Wait for all miners to terminate
		pend.Wait()
	}()
	return nil
}

// actual mining function
func (s *Sealer) mine(id int, block *types.Block, start uint64, abort chan struct{}, found chan *types.Block) {
	var (
		header   = block.Header()
		sealHash = SealHash(header)
		seed     = SeedHash(header.Number.Uint64())
		target   = DifficultyToBoundary(header.Difficulty).Big()
		attempts = int64(0)
		nonce    = start
		logger   = s.Logger.With("miner", id)
	)

	logger.Debug("started search for new nonces", "seed", start, "target", target.Text(16))

search:
	for {
		select {
		case <-abort:
			logger.Debug("nonce search aborted", "attempts", nonce-start)
			break search

		default:
			attempts++
			if (attempts % (1 << 15)) == 0 {
				logger.Debug("nonce searching", "attempts", nonce-start)
				attempts = 0
			}
			mix, result := Hashimoto(seed, sealHash, nonce)
			if result.Big().Cmp(target) <= 0 {
				header.Nonce = types.EncodeNonce(nonce)
				header.MixDigest = mix
				select {
				case found <- block.WithSeal(header):
					logger.Debug("nonce found and reported", "attempts", nonce-start, "nonce", nonce)
				case <-abort:
					logger.Debug("nonce found but discarded", "attempts", nonce-start, "nonce", nonce)
				}
				break search
			}
			nonce++
		}
	}
}

// waiting for mining results
func (s *Sealer) resultLoop() {
	defer s.wg.Done()
	for {
		select {
		case block := <-s.resultCh:
			if err := s.submit(block); err != nil {
				s.Logger.Error("error submitting found seal", "number", block.Number(), "err", err)
			}
		case <-s.Quit():
			return
		}
	}
}

func (s *Sealer) submit(block *types.Block) error {
	mix, err := rlp.EncodeToBytes(block.MixDigest())
	if err != nil {
		return err
	}
	nonce, err := rlp.EncodeToBytes(types.EncodeNonce(block.Nonce()))
	if err != nil {
		return err
	}
	return s.work.SubmitSeal(SealHash(block.Header()), [][]byte{mix, nonce})
}

// waiting for submitting new works
func (s *Sealer) newWorkLoop() {
	defer s.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			s.commitWork()
			timer.Reset(s.recommit)
		case <-s.Quit():
			return
		}
	}
}

func (s *Sealer) commitWork() {
	block := s.work.SealingBlock()
	if block == nil {
		return
	}
	sealHash := SealHash(block.Header())

	s.mu.Lock()
	defer s.mu.Unlock()
	if sealHash == s.current {
		return
	}

	select {
	case s.taskCh <- block:
		s.current = sealHash
	case <-s.Quit():
		s.Logger.Info("exiting, work not committed")
	}
}
