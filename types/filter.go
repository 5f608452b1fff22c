package types

import "github.com/ethereum/go-ethereum/common"

// Filter selects logs within a block range by emitting address and topics.
type Filter struct {
	FromBlock BlockID
	ToBlock   BlockID
	// Addresses matches any of the listed emitters, empty matches all.
	Addresses []common.Address
	// Topics is positional, an empty position matches any topic and a
	// non-empty one matches any of its entries.
	Topics [][]common.Hash
	// Limit caps the result to the most recent entries, zero means no cap.
	Limit int
}

// Matches reports whether a log satisfies the address and topic predicate.
func (f *Filter) Matches(log *Log) bool {
	if len(f.Addresses) > 0 && !containsAddress(f.Addresses, log.Address) {
		return false
	}
	if len(f.Topics) > len(log.Topics) {
		for _, sub := range f.Topics[len(log.Topics):] {
			if len(sub) > 0 {
				return false
			}
		}
	}
	for i, sub := range f.Topics {
		if len(sub) == 0 || i >= len(log.Topics) {
			continue
		}
		if !containsHash(sub, log.Topics[i]) {
			return false
		}
	}
	return true
}

// MatchesBloom reports whether a bloom may contain logs matching the filter.
func (f *Filter) MatchesBloom(bloom Bloom) bool {
	if len(f.Addresses) > 0 {
		found := false
		for _, addr := range f.Addresses {
			if bloom.Test(addr.Bytes()) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, sub := range f.Topics {
		if len(sub) == 0 {
			continue
		}
		found := false
		for _, topic := range sub {
			if bloom.Test(topic.Bytes()) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// LimitLogs keeps the last limit entries of logs.
func LimitLogs[T any](logs []T, limit int) []T {
	if limit <= 0 || len(logs) <= limit {
		return logs
	}
	return logs[len(logs)-limit:]
}

func containsAddress(addrs []common.Address, addr common.Address) bool {
	for _, a := range addrs {
		if a == addr {
			return true
		}
	}
	return false
}

func containsHash(hashes []common.Hash, hash common.Hash) bool {
	for _, h := range hashes {
		if h == hash {
			return true
		}
	}
	return false
}
