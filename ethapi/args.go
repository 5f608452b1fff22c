package ethapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/DOIDFoundation/ethnode/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// callGas is the gas given to calls that do not set one.
const callGas = 50_000_000

// Seconds is a duration in seconds given either as a JSON number or as a hex
// quantity.
type Seconds uint64

func (s *Seconds) UnmarshalJSON(input []byte) error {
	if len(input) > 0 && input[0] == '"' {
		var v hexutil.Uint64
		if err := v.UnmarshalJSON(input); err != nil {
			return err
		}
		*s = Seconds(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(input, &v); err != nil {
		return err
	}
	*s = Seconds(v)
	return nil
}

// CallArgs describes a message for eth_call and eth_estimateGas. Omitted
// fields take defaults when the message is built.
type CallArgs struct {
	From     *common.Address `json:"from"`
	To       *common.Address `json:"to"`
	Gas      *hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Nonce    *hexutil.Uint64 `json:"nonce"`
	Data     *hexutil.Bytes  `json:"data"`
	Input    *hexutil.Bytes  `json:"input"`
}

func (args *CallArgs) data() []byte {
	if args.Input != nil {
		return *args.Input
	}
	if args.Data != nil {
		return *args.Data
	}
	return []byte{}
}

// FilterArgs is the filter object of eth_getLogs.
type FilterArgs struct {
	FromBlock *types.BlockID `json:"fromBlock"`
	ToBlock   *types.BlockID `json:"toBlock"`
	Address   addressList    `json:"address"`
	Topics    topicList      `json:"topics"`
	Limit     *int           `json:"limit"`
}

// toFilter converts args, both ends of the range default to latest.
func (args *FilterArgs) toFilter() *types.Filter {
	filter := &types.Filter{
		FromBlock: types.LatestBlock,
		ToBlock:   types.LatestBlock,
		Addresses: args.Address,
		Topics:    args.Topics,
	}
	if args.FromBlock != nil {
		filter.FromBlock = *args.FromBlock
	}
	if args.ToBlock != nil {
		filter.ToBlock = *args.ToBlock
	}
	if args.Limit != nil {
		filter.Limit = *args.Limit
	}
	return filter
}

// addressList accepts a single address or a list of them.
type addressList []common.Address

func (l *addressList) UnmarshalJSON(input []byte) error {
	if len(input) > 0 && input[0] == '[' {
		var addrs []common.Address
		if err := json.Unmarshal(input, &addrs); err != nil {
			return fmt.Errorf("invalid address list: %w", err)
		}
		*l = addrs
		return nil
	}
	if string(input) == "null" {
		*l = nil
		return nil
	}
	var addr common.Address
	if err := json.Unmarshal(input, &addr); err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	*l = addressList{addr}
	return nil
}

// topicList accepts positional topics where each position is null, a single
// topic, or a list of alternatives.
type topicList [][]common.Hash

func (l *topicList) UnmarshalJSON(input []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(input, &raw); err != nil {
		return errors.New("topics must be a list")
	}
	topics := make(topicList, len(raw))
	for i, position := range raw {
		switch {
		case string(position) == "null":
		case len(position) > 0 && position[0] == '[':
			var alternatives []*common.Hash
			if err := json.Unmarshal(position, &alternatives); err != nil {
				return fmt.Errorf("invalid topic %d: %w", i, err)
			}
			for _, topic := range alternatives {
				if topic == nil {
					topics[i] = nil
					break
				}
				topics[i] = append(topics[i], *topic)
			}
		default:
			var topic common.Hash
			if err := json.Unmarshal(position, &topic); err != nil {
				return fmt.Errorf("invalid topic %d: %w", i, err)
			}
			topics[i] = []common.Hash{topic}
		}
	}
	*l = topics
	return nil
}

// toCall builds the message of args with the defaults filled in.
func (args *CallArgs) toCall(nonce func(common.Address) uint64, gasPrice func() *big.Int) *types.Call {
	call := &types.Call{
		To:    args.To,
		Gas:   callGas,
		Value: new(big.Int),
		Data:  args.data(),
	}
	if args.From != nil {
		call.From = *args.From
	}
	if args.Nonce != nil {
		call.Nonce = uint64(*args.Nonce)
	} else {
		call.Nonce = nonce(call.From)
	}
	if args.Gas != nil {
		call.Gas = uint64(*args.Gas)
	}
	if args.GasPrice != nil {
		call.GasPrice = args.GasPrice.ToInt()
	} else {
		call.GasPrice = gasPrice()
	}
	if args.Value != nil {
		call.Value = args.Value.ToInt()
	}
	return call
}
