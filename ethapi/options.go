package ethapi

import (
	"math/big"
	"time"

	"github.com/DOIDFoundation/ethnode/flags"
	"github.com/spf13/viper"
)

type Options struct {
	// AllowPendingReceiptQuery answers receipt queries from the pending
	// block when the transaction is not committed yet.
	AllowPendingReceiptQuery bool
	// SendBlockNumberInGetWork appends the block number to work packages.
	SendBlockNumberInGetWork bool
	ChainID                  *big.Int
	SolcPath                 string
	CompileTimeout           time.Duration
}

func DefaultOptions() Options {
	return Options{
		AllowPendingReceiptQuery: true,
		SendBlockNumberInGetWork: true,
		ChainID:                  big.NewInt(1337),
		SolcPath:                 "solc",
		CompileTimeout:           30 * time.Second,
	}
}

func OptionsFromViper(chainID *big.Int) Options {
	opts := DefaultOptions()
	opts.ChainID = chainID
	if viper.IsSet(flags.Eth_PendingReceipts) {
		opts.AllowPendingReceiptQuery = viper.GetBool(flags.Eth_PendingReceipts)
	}
	if viper.IsSet(flags.Eth_WorkNumber) {
		opts.SendBlockNumberInGetWork = viper.GetBool(flags.Eth_WorkNumber)
	}
	if path := viper.GetString(flags.Solc_Path); path != "" {
		opts.SolcPath = path
	}
	if timeout := viper.GetDuration(flags.Solc_Timeout); timeout > 0 {
		opts.CompileTimeout = timeout
	}
	return opts
}
