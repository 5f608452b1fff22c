package mempool

import (
	"context"

	"github.com/DOIDFoundation/ethnode/rpc"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type API struct {
	pool *Mempool
}

// Status returns the number of pending and queued transaction in the pool.
func (s *API) Status(context.Context) (map[string]hexutil.Uint, error) {
	pending, queued := s.pool.Stats()
	return map[string]hexutil.Uint{
		"pending": hexutil.Uint(pending),
		"queued":  hexutil.Uint(queued),
	}, nil
}

func (pool *Mempool) RegisterAPI(server *rpc.Server) {
	api := &API{pool: pool}
	server.RegisterName("txpool",
		rpc.Func0("status", api.Status),
	)
}
