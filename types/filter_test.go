package types_test

import (
	"testing"

	"github.com/DOIDFoundation/ethnode/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var (
	addr1  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	addr2  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	topicA = common.HexToHash("0xaa")
	topicB = common.HexToHash("0xbb")
	topicC = common.HexToHash("0xcc")
)

func TestFilterMatches(t *testing.T) {
	log := &types.Log{Address: addr1, Topics: []common.Hash{topicA, topicB}}
	tests := []struct {
		name   string
		filter types.Filter
		want   bool
	}{
		{"empty", types.Filter{}, true},
		{"address", types.Filter{Addresses: []common.Address{addr2, addr1}}, true},
		{"other address", types.Filter{Addresses: []common.Address{addr2}}, false},
		{"first topic", types.Filter{Topics: [][]common.Hash{{topicA}}}, true},
		{"wildcard then topic", types.Filter{Topics: [][]common.Hash{nil, {topicB}}}, true},
		{"alternatives", types.Filter{Topics: [][]common.Hash{{topicC, topicA}}}, true},
		{"wrong position", types.Filter{Topics: [][]common.Hash{{topicB}}}, false},
		{"too many topics", types.Filter{Topics: [][]common.Hash{nil, nil, {topicC}}}, false},
		{"trailing wildcard", types.Filter{Topics: [][]common.Hash{{topicA}, nil, nil}}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.filter.Matches(log), tt.name)
	}
}

func TestFilterMatchesBloom(t *testing.T) {
	bloom := types.LogsBloom([]*types.Log{{Address: addr1, Topics: []common.Hash{topicA}}})
	assert.True(t, (&types.Filter{Addresses: []common.Address{addr1}}).MatchesBloom(bloom))
	assert.True(t, (&types.Filter{Topics: [][]common.Hash{{topicC, topicA}}}).MatchesBloom(bloom))
	assert.False(t, (&types.Filter{Addresses: []common.Address{addr2}}).MatchesBloom(bloom))
}

func TestLimitLogs(t *testing.T) {
	logs := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{4, 5}, types.LimitLogs(logs, 2))
	assert.Equal(t, logs, types.LimitLogs(logs, 0))
	assert.Equal(t, logs, types.LimitLogs(logs, 10))
}
