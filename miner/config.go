package miner

import (
	"fmt"
	"math/big"
	"time"

	"github.com/DOIDFoundation/ethnode/flags"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/spf13/viper"
)

// Config of the block producer.
type Config struct {
	// Author receives block rewards, the zero address disables work packages.
	Author common.Address
	// Enabled starts local sealing threads.
	Enabled  bool
	Threads  int
	Recommit time.Duration
	// GasPrice is the floor reported when the pool has no price signal.
	GasPrice *big.Int
}

func DefaultConfig() Config {
	return Config{
		Threads:  0,
		Recommit: 3 * time.Second,
		GasPrice: big.NewInt(20_000_000_000),
	}
}

func ConfigFromViper() (Config, error) {
	cfg := DefaultConfig()
	if author := viper.GetString(flags.Mine_Author); author != "" {
		if !common.IsHexAddress(author) {
			return cfg, fmt.Errorf("invalid author address %q", author)
		}
		cfg.Author = common.HexToAddress(author)
	}
	cfg.Enabled = viper.GetBool(flags.Mine_Enabled)
	if viper.IsSet(flags.Mine_Threads) {
		cfg.Threads = viper.GetInt(flags.Mine_Threads)
	}
	if recommit := viper.GetDuration(flags.Mine_Recommit); recommit > 0 {
		cfg.Recommit = recommit
	}
	if price := viper.GetString(flags.Mine_GasPrice); price != "" {
		p, ok := math.ParseBig256(price)
		if !ok {
			return cfg, fmt.Errorf("invalid gas price %q", price)
		}
		cfg.GasPrice = p
	}
	if cfg.Enabled && cfg.Author == (common.Address{}) {
		return cfg, fmt.Errorf("%s requires %s", flags.Mine_Enabled, flags.Mine_Author)
	}
	return cfg, nil
}
