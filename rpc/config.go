package rpc

import (
	"github.com/DOIDFoundation/ethnode/flags"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/spf13/viper"
)

// Defines the configuration options for the RPC server
type Config struct {
	// TCP address for the RPC server to listen on
	ListenAddress string `mapstructure:"laddr"`
	// HTTPTimeouts allows for customization of the timeout values used by the HTTP RPC
	// interface.
	HTTPTimeouts rpc.HTTPTimeouts
}

// DefaultConfig returns a default configuration for the RPC server
func DefaultConfig() Config {
	return Config{
		ListenAddress: "127.0.0.1:8545",
		HTTPTimeouts:  rpc.DefaultHTTPTimeouts,
	}
}

// ConfigFromViper overrides the defaults with configured values.
func ConfigFromViper() Config {
	cfg := DefaultConfig()
	if addr := viper.GetString(flags.RPC_Addr); addr != "" {
		cfg.ListenAddress = addr
	}
	return cfg
}
