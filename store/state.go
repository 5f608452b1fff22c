package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/DOIDFoundation/ethnode/flags"
	"github.com/cometbft/cometbft/libs/log"
	cosmosdb "github.com/cosmos/cosmos-db"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// ErrStatePruned is returned for state versions no longer retained.
var ErrStatePruned = errors.New("state pruned")

// Write is a single key/value update of the state tree.
type Write struct {
	Key   []byte
	Value []byte
}

// StateStore keeps account state in a versioned iavl tree. Version n+1 holds
// the state after block n, as iavl versions start from one.
type StateStore struct {
	logger log.Logger
	db     cosmosdb.DB
	tree   *iavl.MutableTree
	keep   int64 // versions retained, zero keeps all
	mu     sync.RWMutex
}

func NewStateStore(keep int64, logger log.Logger) (*StateStore, error) {
	homeDir := viper.GetString(flags.Home)
	db, err := cosmosdb.NewDB("state", cosmosdb.BackendType(viper.GetString(flags.DB_Engine)), filepath.Join(homeDir, "data"))
	if err != nil {
		return nil, err
	}
	tree, err := iavl.NewMutableTree(db, 128, false)
	if err != nil {
		return nil, err
	}
	if _, err := tree.Load(); err != nil {
		return nil, err
	}
	return &StateStore{
		logger: logger.With("module", "stateStore"),
		db:     db,
		tree:   tree,
		keep:   keep,
	}, nil
}

// VersionOf returns the tree version holding the state after block number.
func VersionOf(number uint64) int64 {
	return int64(number) + 1
}

// Version returns the latest saved version, zero if nothing was saved.
func (s *StateStore) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Version()
}

// At returns a read-only view of the state after block number.
func (s *StateStore) At(number uint64) (*iavl.ImmutableTree, error) {
	version := VersionOf(number)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.tree.VersionExists(version) {
		return nil, fmt.Errorf("%w: block %d", ErrStatePruned, number)
	}
	return s.tree.GetImmutable(version)
}

// Hash returns the root hash the state would have after applying writes on
// top of the latest version, leaving the tree unchanged.
func (s *StateStore) Hash(writes []Write) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.tree.Rollback()
	if err := s.apply(writes); err != nil {
		return common.Hash{}, err
	}
	hash, err := s.tree.WorkingHash()
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(hash), nil
}

// Commit applies writes as the state after block number, which must follow
// the latest version, and prunes versions beyond the retention window.
func (s *StateStore) Commit(number uint64, writes []Write) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if want := VersionOf(number); s.tree.Version()+1 != want {
		return common.Hash{}, fmt.Errorf("state version mismatch, latest %d, committing %d", s.tree.Version(), want)
	}
	if err := s.apply(writes); err != nil {
		s.tree.Rollback()
		return common.Hash{}, err
	}
	hash, version, err := s.tree.SaveVersion()
	if err != nil {
		s.tree.Rollback()
		return common.Hash{}, err
	}
	if s.keep > 0 && version > s.keep {
		if old := version - s.keep; s.tree.VersionExists(old) {
			if err := s.tree.DeleteVersion(old); err != nil {
				s.logger.Error("failed to prune state", "version", old, "err", err)
			}
		}
	}
	return common.BytesToHash(hash), nil
}

func (s *StateStore) apply(writes []Write) error {
	for _, w := range writes {
		if _, err := s.tree.Set(w.Key, w.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *StateStore) Close() error {
	return s.db.Close()
}
