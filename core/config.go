package core

import (
	"fmt"
	"math/big"

	"github.com/DOIDFoundation/ethnode/flags"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/spf13/viper"
)

// Config of the block chain.
type Config struct {
	ChainID *big.Int
	// StateKeep is the number of state versions retained, zero keeps all.
	StateKeep int64
	// GasLimit of the genesis block, later blocks inherit it.
	GasLimit uint64
	// Alloc credits accounts in the genesis state.
	Alloc map[common.Address]*big.Int
	// QueueSize bounds the blocks waiting for import.
	QueueSize int
}

func DefaultConfig() Config {
	return Config{
		ChainID:   big.NewInt(1337),
		StateKeep: 0,
		GasLimit:  8000000,
		Alloc:     map[common.Address]*big.Int{},
		QueueSize: 256,
	}
}

// ConfigFromViper reads chain settings, falling back to DefaultConfig.
func ConfigFromViper() (Config, error) {
	cfg := DefaultConfig()
	if viper.IsSet(flags.Chain_ID) {
		cfg.ChainID = new(big.Int).SetUint64(viper.GetUint64(flags.Chain_ID))
	}
	if viper.IsSet(flags.State_Keep) {
		cfg.StateKeep = viper.GetInt64(flags.State_Keep)
	}
	for addr, balance := range viper.GetStringMapString(flags.Genesis_Alloc) {
		if !common.IsHexAddress(addr) {
			return cfg, fmt.Errorf("invalid genesis address %q", addr)
		}
		amount, ok := math.ParseBig256(balance)
		if !ok {
			return cfg, fmt.Errorf("invalid genesis balance %q of %s", balance, addr)
		}
		cfg.Alloc[common.HexToAddress(addr)] = amount
	}
	return cfg, nil
}
