package types

import "math/big"

// Call is an unsigned message executed read-only against some state.
type Call struct {
	From     Address
	To       *Address // nil creates a contract
	Nonce    uint64
	Gas      uint64
	GasPrice *big.Int
	Value    *big.Int
	Data     []byte
}

// Executed is the outcome of a read-only execution.
type Executed struct {
	Output          []byte
	GasUsed         uint64
	Refunded        uint64
	ContractAddress *Address
}
