package store

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

var (
	headerPrefix       = []byte("h") // headerPrefix + num (uint64 big endian) + hash -> header
	headerTDSuffix     = []byte("t") // headerPrefix + num (uint64 big endian) + hash + headerTDSuffix -> td
	headerHashPrefix   = []byte("n") // headerHashPrefix + num (uint64 big endian) -> canonical hash
	headerNumberPrefix = []byte("H") // headerNumberPrefix + hash -> num (uint64 big endian)
	bodyPrefix         = []byte("b") // bodyPrefix + num (uint64 big endian) + hash -> body
	receiptsPrefix     = []byte("r") // receiptsPrefix + num (uint64 big endian) + hash -> receipts
	txLookupPrefix     = []byte("l") // txLookupPrefix + tx hash -> canonical block number

	// headBlockKey tracks the latest known full block's hash.
	headBlockKey = []byte("LastBlock")
)

// encodeBlockNumber encodes a block number as big endian uint64
func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

func prefixed(prefix []byte, parts ...[]byte) []byte {
	key := append([]byte{}, prefix...)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

// headerKey = headerPrefix + num (uint64 big endian) + hash
func headerKey(number uint64, hash common.Hash) []byte {
	return prefixed(headerPrefix, encodeBlockNumber(number), hash.Bytes())
}

// headerTDKey = headerPrefix + num (uint64 big endian) + hash + headerTDSuffix
func headerTDKey(number uint64, hash common.Hash) []byte {
	return append(headerKey(number, hash), headerTDSuffix...)
}

// headerHashKey = headerHashPrefix + num (uint64 big endian)
func headerHashKey(number uint64) []byte {
	return prefixed(headerHashPrefix, encodeBlockNumber(number))
}

// headerNumberKey = headerNumberPrefix + hash
func headerNumberKey(hash common.Hash) []byte {
	return prefixed(headerNumberPrefix, hash.Bytes())
}

// bodyKey = bodyPrefix + num (uint64 big endian) + hash
func bodyKey(number uint64, hash common.Hash) []byte {
	return prefixed(bodyPrefix, encodeBlockNumber(number), hash.Bytes())
}

// receiptsKey = receiptsPrefix + num (uint64 big endian) + hash
func receiptsKey(number uint64, hash common.Hash) []byte {
	return prefixed(receiptsPrefix, encodeBlockNumber(number), hash.Bytes())
}

// txLookupKey = txLookupPrefix + hash
func txLookupKey(hash common.Hash) []byte {
	return prefixed(txLookupPrefix, hash.Bytes())
}
