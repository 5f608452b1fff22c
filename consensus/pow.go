package consensus

import (
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	"github.com/DOIDFoundation/ethnode/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// EpochLength is the number of blocks sharing one seed hash.
const EpochLength = 30000

var (
	ErrInvalidMixDigest = errors.New("invalid mix digest")
	ErrInvalidPoW       = errors.New("invalid proof-of-work")
)

var (
	// two256 is a big integer representing 2^256
	two256 = new(big.Int).Exp(big.NewInt(2), big.NewInt(256), big.NewInt(0))
	// maxUint256 is the largest 256 bit value
	maxUint256 = new(big.Int).Sub(two256, common.Big1)
)

// DifficultyToBoundary converts a difficulty to the 256 bit boundary a
// proof-of-work result must not exceed. Higher difficulties give smaller
// boundaries, difficulties up to one give the maximum value.
func DifficultyToBoundary(difficulty *big.Int) common.Hash {
	if difficulty == nil || difficulty.Cmp(common.Big1) <= 0 {
		return common.BigToHash(maxUint256)
	}
	return common.BigToHash(new(big.Int).Div(two256, difficulty))
}

// SeedHash computes the seed hash of the epoch containing number from
// scratch.
func SeedHash(number uint64) common.Hash {
	return resumeSeedHash(common.Hash{}, number/EpochLength)
}

func resumeSeedHash(seed common.Hash, epochs uint64) common.Hash {
	for i := uint64(0); i < epochs; i++ {
		seed = crypto.Keccak256Hash(seed[:])
	}
	return seed
}

// SeedHashCompute caches the last computed epoch so that consecutive lookups
// only hash forward from it.
type SeedHashCompute struct {
	mu    sync.Mutex
	epoch uint64
	seed  common.Hash
}

func NewSeedHashCompute() *SeedHashCompute {
	return &SeedHashCompute{}
}

// Get returns the seed hash for block number.
func (s *SeedHashCompute) Get(number uint64) common.Hash {
	epoch := number / EpochLength

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch < s.epoch {
		s.epoch, s.seed = 0, common.Hash{}
	}
	if epoch > s.epoch {
		s.seed = resumeSeedHash(s.seed, epoch-s.epoch)
		s.epoch = epoch
	}
	return s.seed
}

// SealHash returns the hash of a header prior to it being sealed, that is
// without mix digest and nonce.
func SealHash(header *types.Header) (hash common.Hash) {
	hasher := crypto.NewKeccakState()
	rlp.Encode(hasher, []interface{}{
		header.ParentHash,
		header.UncleHash,
		header.Coinbase,
		header.Root,
		header.TxHash,
		header.ReceiptHash,
		header.Bloom,
		header.Difficulty,
		header.Number,
		header.GasLimit,
		header.GasUsed,
		header.Time,
		header.Extra,
	})
	hasher.Read(hash[:])
	return hash
}

// Hashimoto computes the mix digest and the proof-of-work result of a nonce
// for a seal hash within the epoch given by seed.
func Hashimoto(seed, sealHash common.Hash, nonce uint64) (mix, result common.Hash) {
	var enc [8]byte
	binary.LittleEndian.PutUint64(enc[:], nonce)
	mix = crypto.Keccak256Hash(seed[:], sealHash[:], enc[:])
	result = crypto.Keccak256Hash(sealHash[:], mix[:])
	return mix, result
}

// VerifySeal checks the mix digest and nonce of a header against its
// difficulty.
func VerifySeal(header *types.Header) error {
	var (
		number = header.Number.Uint64()
		seed   = SeedHash(number)
	)
	mix, result := Hashimoto(seed, SealHash(header), header.Nonce.Uint64())
	if mix != header.MixDigest {
		return ErrInvalidMixDigest
	}
	if result.Big().Cmp(DifficultyToBoundary(header.Difficulty).Big()) > 0 {
		return ErrInvalidPoW
	}
	return nil
}
