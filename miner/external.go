package miner

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	hashrateWindow    = 2 * time.Second
	maxHashrateSource = 1024
)

// ExternalMiner aggregates the hash rates reported by remote miners. A sample
// counts until hashrateWindow has passed without a new report from its id.
type ExternalMiner struct {
	hashrates *expirable.LRU[common.Hash, *big.Int]
}

func NewExternalMiner() *ExternalMiner {
	return &ExternalMiner{
		hashrates: expirable.NewLRU[common.Hash, *big.Int](maxHashrateSource, nil, hashrateWindow),
	}
}

// SubmitHashrate records rate as the current hash rate of miner id.
func (m *ExternalMiner) SubmitHashrate(rate *big.Int, id common.Hash) {
	m.hashrates.Add(id, new(big.Int).Set(rate))
}

// Hashrate sums the live samples.
func (m *ExternalMiner) Hashrate() *big.Int {
	total := new(big.Int)
	for _, rate := range m.hashrates.Values() {
		total.Add(total, rate)
	}
	return total
}

// IsMining reports whether any remote miner reported recently.
func (m *ExternalMiner) IsMining() bool {
	return len(m.hashrates.Values()) > 0
}
