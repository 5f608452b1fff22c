package dapps

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(entries []Entry) []string {
	var keys []string
	for _, e := range entries {
		keys = append(keys, e.ID)
	}
	return keys
}

func newFetchingCache(keys ...string) *ContentCache {
	cache := NewContentCache(log.NewNopLogger())
	for _, key := range keys {
		cache.Insert(key, Fetching(NewFetchControl()))
	}
	return cache
}

func TestRemoveLeastRecentlyUsed(t *testing.T) {
	cache := newFetchingCache("a", "b", "c")
	removed := cache.ClearGarbage(2)
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, []string{"a"}, ids(removed))
	assert.True(t, removed[0].Status.Fetching.IsAborted())
	assert.Empty(t, cache.ClearGarbage(2))
}

func TestGetRefreshesRecency(t *testing.T) {
	cache := newFetchingCache("a", "b", "c")
	_, ok := cache.Get("a")
	require.True(t, ok)

	removed := cache.ClearGarbage(2)
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, []string{"b"}, ids(removed))
	assert.Equal(t, []string{"c", "a"}, cache.IDs())
}

func TestInsertAndRemove(t *testing.T) {
	cache := newFetchingCache("a")
	prev, ok := cache.Insert("a", Ready("/tmp/a"))
	require.True(t, ok)
	assert.NotNil(t, prev.Fetching)

	status, ok := cache.Remove("a")
	require.True(t, ok)
	assert.Equal(t, "/tmp/a", status.Ready.Path)
	_, ok = cache.Remove("a")
	assert.False(t, ok)
	assert.Zero(t, cache.Len())
}

func TestClearGarbageRemovesPages(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old")
	require.NoError(t, os.MkdirAll(filepath.Join(old, "assets"), 0o755))

	cache := NewContentCache(log.NewNopLogger())
	cache.Insert("old", Ready(old))
	cache.Insert("missing", Ready(filepath.Join(dir, "missing")))
	cache.Insert("new", Fetching(NewFetchControl()))

	removed := cache.ClearGarbage(1)
	assert.Equal(t, []string{"old", "missing"}, ids(removed))
	assert.NoDirExists(t, old)
	assert.Equal(t, []string{"new"}, cache.IDs())
}

func TestServiceLoadsContent(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	for i, id := range []string{"first", "second", "third"} {
		path := filepath.Join(dir, id)
		require.NoError(t, os.Mkdir(path, 0o755))
		at := now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, at, at))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray"), nil, 0o644))

	s := NewService(Config{Dir: dir, CacheSize: 2}, log.NewNopLogger())
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })

	assert.Equal(t, []string{"second", "third"}, s.Cache().IDs())
	assert.NoDirExists(t, filepath.Join(dir, "first"))
	assert.FileExists(t, filepath.Join(dir, "stray"))
}
