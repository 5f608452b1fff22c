package types

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/rpc"
)

// BlockTag tells how a BlockID selects its block.
type BlockTag uint8

const (
	TagNumber BlockTag = iota
	TagHash
	TagLatest
	TagEarliest
	TagPending
)

// BlockID selects a block by number, by hash, or by one of the latest,
// earliest and pending tags.
type BlockID struct {
	Tag    BlockTag
	Number uint64
	Hash   Hash
}

var (
	LatestBlock   = BlockID{Tag: TagLatest}
	EarliestBlock = BlockID{Tag: TagEarliest}
	PendingBlock  = BlockID{Tag: TagPending}
)

func BlockIDFromNumber(number uint64) BlockID {
	return BlockID{Tag: TagNumber, Number: number}
}

func BlockIDFromHash(hash Hash) BlockID {
	return BlockID{Tag: TagHash, Hash: hash}
}

func (id BlockID) IsPending() bool {
	return id.Tag == TagPending
}

// UnmarshalJSON accepts the selectors understood by
// [rpc.BlockNumberOrHash]. The safe and finalized tags carry no meaning on a
// proof-of-work chain and are rejected.
func (id *BlockID) UnmarshalJSON(input []byte) error {
	if string(input) == `"earliest"` {
		*id = EarliestBlock
		return nil
	}
	var bnh rpc.BlockNumberOrHash
	if err := bnh.UnmarshalJSON(input); err != nil {
		return err
	}
	if hash, ok := bnh.Hash(); ok {
		*id = BlockIDFromHash(hash)
		return nil
	}
	number, _ := bnh.Number()
	switch {
	case number == rpc.LatestBlockNumber:
		*id = LatestBlock
	case number == rpc.PendingBlockNumber:
		*id = PendingBlock
	case number < 0:
		return fmt.Errorf("unsupported block selector %s", string(input))
	default:
		*id = BlockIDFromNumber(uint64(number))
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (id BlockID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id BlockID) String() string {
	switch id.Tag {
	case TagHash:
		return id.Hash.Hex()
	case TagLatest:
		return "latest"
	case TagEarliest:
		return "earliest"
	case TagPending:
		return "pending"
	default:
		return "0x" + strconv.FormatUint(id.Number, 16)
	}
}

// TransactionID selects a transaction by hash, or by its block and index
// when Hash is nil.
type TransactionID struct {
	Hash  *Hash
	Block BlockID
	Index uint64
}

func TransactionIDFromHash(hash Hash) TransactionID {
	return TransactionID{Hash: &hash}
}

func TransactionIDFromLocation(block BlockID, index uint64) TransactionID {
	return TransactionID{Block: block, Index: index}
}

// UncleID selects an uncle by its including block and position.
type UncleID struct {
	Block    BlockID
	Position uint64
}
