// Package accounts lists the accounts the node reports as its own.
package accounts

import (
	"fmt"

	"github.com/DOIDFoundation/ethnode/flags"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Provider serves a fixed account list.
type Provider struct {
	accounts []common.Address
}

func NewProvider(accounts []common.Address) *Provider {
	return &Provider{accounts: append([]common.Address{}, accounts...)}
}

// NewProviderFromViper reads hex addresses from the accounts key.
func NewProviderFromViper() (*Provider, error) {
	var accounts []common.Address
	for _, s := range viper.GetStringSlice(flags.Accounts) {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid account address %q", s)
		}
		accounts = append(accounts, common.HexToAddress(s))
	}
	return NewProvider(accounts), nil
}

// Accounts returns a copy of the account list.
func (p *Provider) Accounts() []common.Address {
	return append([]common.Address{}, p.accounts...)
}
