package store_test

import (
	"os"
	"testing"

	"github.com/DOIDFoundation/ethnode/flags"
	"github.com/DOIDFoundation/ethnode/store"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStateStore(t *testing.T, keep int64) *store.StateStore {
	viper.SetDefault(flags.DB_Engine, "memdb")
	s, err := store.NewStateStore(keep, log.NewTMLogger(log.NewSyncWriter(os.Stdout)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStateCommit(t *testing.T) {
	s := newStateStore(t, 0)
	assert.Equal(t, int64(0), s.Version())

	writes := []store.Write{{Key: []byte("a"), Value: []byte("1")}}
	predicted, err := s.Hash(writes)
	require.NoError(t, err)
	hash, err := s.Commit(0, writes)
	require.NoError(t, err)
	assert.Equal(t, predicted, hash)
	assert.Equal(t, store.VersionOf(0), s.Version())

	_, err = s.Commit(5, nil)
	assert.Error(t, err)

	_, err = s.Commit(1, []store.Write{{Key: []byte("a"), Value: []byte("2")}})
	require.NoError(t, err)

	old, err := s.At(0)
	require.NoError(t, err)
	value, err := old.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), value)

	latest, err := s.At(1)
	require.NoError(t, err)
	value, err = latest.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), value)

	_, err = s.At(2)
	assert.ErrorIs(t, err, store.ErrStatePruned)
}

func TestStatePruning(t *testing.T) {
	s := newStateStore(t, 2)
	for i := uint64(0); i < 4; i++ {
		_, err := s.Commit(i, []store.Write{{Key: []byte("k"), Value: []byte{byte(i)}}})
		require.NoError(t, err)
	}
	_, err := s.At(0)
	assert.ErrorIs(t, err, store.ErrStatePruned)
	_, err = s.At(1)
	assert.ErrorIs(t, err, store.ErrStatePruned)
	_, err = s.At(2)
	assert.NoError(t, err)
	_, err = s.At(3)
	assert.NoError(t, err)
}
