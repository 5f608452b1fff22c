package transactor

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/DOIDFoundation/ethnode/types"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/holiman/uint256"
)

var (
	ErrNonceTooLow         = errors.New("nonce too low")
	ErrNonceTooHigh        = errors.New("nonce too high")
	ErrIntrinsicGas        = errors.New("intrinsic gas too low")
	ErrGasLimitReached     = errors.New("gas limit reached")
	ErrInsufficientFunds   = errors.New("insufficient funds for gas * price + value")
	ErrContractUnsupported = errors.New("contract execution is not supported")
)

// BlockReward is credited to the block author, uncle authors receive a share
// depending on their distance.
var BlockReward = uint256.NewInt(2e18)

// TransferTopic is the first topic of the log emitted for value transfers.
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

type rejectedTx struct {
	Index int    `json:"index"`
	Err   string `json:"error"`
}

type ExecutionResult struct {
	StateRoot   types.Hash         `json:"stateRoot"`
	TxRoot      types.Hash         `json:"txRoot"`
	ReceiptRoot types.Hash         `json:"receiptsRoot"`
	Bloom       types.Bloom        `json:"logsBloom"`
	GasUsed     uint64             `json:"gasUsed"`
	Txs         types.Transactions `json:"transactions"`
	Receipts    types.Receipts     `json:"receipts"`
	Rejected    []*rejectedTx      `json:"rejected,omitempty"`
}

// IntrinsicGas returns the gas charged for a transaction before execution.
func IntrinsicGas(data []byte, creation bool) uint64 {
	gas := params.TxGas
	if creation {
		gas = params.TxGasContractCreation
	}
	for _, b := range data {
		if b == 0 {
			gas += params.TxDataZeroGas
		} else {
			gas += params.TxDataNonZeroGasEIP2028
		}
	}
	return gas
}

// ApplyTxs executes txs in order on state under header. Transactions that
// fail validation are reported as rejected and leave the state untouched.
func ApplyTxs(state *State, header *types.Header, txs types.Transactions, signer ethtypes.Signer) (*ExecutionResult, error) {
	var (
		rejectedTxs []*rejectedTx
		includedTxs = make(types.Transactions, 0, len(txs))
		receipts    = make(types.Receipts, 0, len(txs))
		gasUsed     uint64
	)
	for i, tx := range txs {
		receipt, err := applyTx(state, header, tx, signer, gasUsed)
		if err != nil {
			rejectedTxs = append(rejectedTxs, &rejectedTx{i, err.Error()})
			continue
		}
		gasUsed = receipt.CumulativeGasUsed
		receipt.TransactionIndex = uint(len(includedTxs))
		includedTxs = append(includedTxs, tx)
		receipts = append(receipts, receipt)
	}
	if err := state.Error(); err != nil {
		return nil, err
	}
	return &ExecutionResult{
		TxRoot:      ethtypes.DeriveSha(includedTxs, trie.NewStackTrie(nil)),
		ReceiptRoot: ethtypes.DeriveSha(receipts, trie.NewStackTrie(nil)),
		Bloom:       types.MergeBloom(receipts),
		GasUsed:     gasUsed,
		Txs:         includedTxs,
		Receipts:    receipts,
		Rejected:    rejectedTxs,
	}, nil
}

func applyTx(state *State, header *types.Header, tx *types.Transaction, signer ethtypes.Signer, gasPool uint64) (*types.Receipt, error) {
	from, err := ethtypes.Sender(signer, tx)
	if err != nil {
		return nil, err
	}
	nonce := state.Nonce(from)
	switch {
	case tx.Nonce() < nonce:
		return nil, fmt.Errorf("%w: address %v, tx %d state %d", ErrNonceTooLow, from, tx.Nonce(), nonce)
	case tx.Nonce() > nonce:
		return nil, fmt.Errorf("%w: address %v, tx %d state %d", ErrNonceTooHigh, from, tx.Nonce(), nonce)
	}
	gas := IntrinsicGas(tx.Data(), tx.To() == nil)
	if tx.Gas() < gas {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, tx.Gas(), gas)
	}
	if gasPool+gas > header.GasLimit {
		return nil, ErrGasLimitReached
	}
	if tx.To() != nil && len(state.Code(*tx.To())) > 0 {
		return nil, ErrContractUnsupported
	}

	price, overflow := uint256.FromBig(tx.GasPrice())
	if overflow {
		return nil, ErrInsufficientFunds
	}
	value, overflow := uint256.FromBig(tx.Value())
	if overflow {
		return nil, ErrInsufficientFunds
	}
	fee := new(uint256.Int).Mul(price, uint256.NewInt(gas))
	cost := new(uint256.Int).Add(fee, value)
	if !state.SubBalance(from, cost) {
		return nil, fmt.Errorf("%w: address %v", ErrInsufficientFunds, from)
	}
	state.SetNonce(from, nonce+1)
	state.AddBalance(header.Coinbase, fee)

	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            ethtypes.ReceiptStatusSuccessful,
		CumulativeGasUsed: gasPool + gas,
		GasUsed:           gas,
		TxHash:            tx.Hash(),
		BlockNumber:       new(big.Int).Set(header.Number),
		Logs:              []*types.Log{},
	}
	var to common.Address
	if tx.To() == nil {
		to = crypto.CreateAddress(from, nonce)
		state.SetCode(to, tx.Data())
		receipt.ContractAddress = to
	} else {
		to = *tx.To()
	}
	if !value.IsZero() {
		state.AddBalance(to, value)
		receipt.Logs = append(receipt.Logs, transferLog(from, to, value))
	}
	receipt.Bloom = types.LogsBloom(receipt.Logs)
	return receipt, nil
}

func transferLog(from, to common.Address, value *uint256.Int) *types.Log {
	data := value.Bytes32()
	return &types.Log{
		Address: to,
		Topics:  []common.Hash{TransferTopic, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:    data[:],
	}
}

// Finalize credits the block and uncle rewards.
func Finalize(state *State, header *types.Header, uncles []*types.Header) {
	reward := new(uint256.Int).Set(BlockReward)
	r := new(uint256.Int)
	for _, uncle := range uncles {
		r.SetUint64(uncle.Number.Uint64() + 8 - header.Number.Uint64())
		r.Mul(r, BlockReward)
		r.Rsh(r, 3)
		state.AddBalance(uncle.Coinbase, r)

		r.Rsh(BlockReward, 5)
		reward.Add(reward, r)
	}
	state.AddBalance(header.Coinbase, reward)
}

// Call executes call on a copy of state. The sender is credited whatever
// balance it lacks to cover the call, so balance never fails a call.
func Call(state *State, call *types.Call) (*types.Executed, error) {
	state = state.Copy()
	gas := IntrinsicGas(call.Data, call.To == nil)
	if call.Gas < gas {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, call.Gas, gas)
	}
	if call.To != nil && len(state.Code(*call.To)) > 0 {
		return nil, ErrContractUnsupported
	}
	value := new(uint256.Int)
	if call.Value != nil {
		if v, overflow := uint256.FromBig(call.Value); !overflow {
			value = v
		}
	}
	price := new(uint256.Int)
	if call.GasPrice != nil {
		if p, overflow := uint256.FromBig(call.GasPrice); !overflow {
			price = p
		}
	}
	cost := new(uint256.Int).Mul(price, uint256.NewInt(call.Gas))
	cost.Add(cost, value)
	if balance, _ := uint256.FromBig(state.Balance(call.From)); balance.Lt(cost) {
		state.AddBalance(call.From, new(uint256.Int).Sub(cost, balance))
	}
	state.SubBalance(call.From, cost)

	executed := &types.Executed{
		GasUsed:  gas,
		Refunded: call.Gas - gas,
		Output:   []byte{},
	}
	var to common.Address
	if call.To == nil {
		to = crypto.CreateAddress(call.From, call.Nonce)
		executed.ContractAddress = &to
	} else {
		to = *call.To
	}
	state.AddBalance(to, value)
	if err := state.Error(); err != nil {
		return nil, err
	}
	return executed, nil
}
