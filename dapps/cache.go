package dapps

import (
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/cometbft/cometbft/libs/log"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// FetchControl lets the cache abort a download in progress.
type FetchControl struct {
	aborted atomic.Bool
}

func NewFetchControl() *FetchControl {
	return &FetchControl{}
}

func (f *FetchControl) Abort() {
	f.aborted.Store(true)
}

func (f *FetchControl) IsAborted() bool {
	return f.aborted.Load()
}

// LocalPage is content unpacked into a directory.
type LocalPage struct {
	Path string
}

// ContentStatus is either a fetch in progress or a ready page, exactly one
// field is set.
type ContentStatus struct {
	Fetching *FetchControl
	Ready    *LocalPage
}

func Fetching(f *FetchControl) ContentStatus {
	return ContentStatus{Fetching: f}
}

func Ready(path string) ContentStatus {
	return ContentStatus{Ready: &LocalPage{Path: path}}
}

// Entry is a content id with its status.
type Entry struct {
	ID     string
	Status ContentStatus
}

// ContentCache tracks fetched content in least recently used order. It never
// evicts on its own, ClearGarbage does.
type ContentCache struct {
	logger log.Logger

	mu    sync.Mutex
	cache *simplelru.LRU[string, ContentStatus]
}

func NewContentCache(logger log.Logger) *ContentCache {
	cache, err := simplelru.NewLRU[string, ContentStatus](math.MaxInt, nil)
	if err != nil {
		panic(err)
	}
	return &ContentCache{logger: logger, cache: cache}
}

// Insert stores status under id and returns the status it replaced.
func (c *ContentCache) Insert(id string, status ContentStatus) (ContentStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, ok := c.cache.Peek(id)
	c.cache.Add(id, status)
	return prev, ok
}

// Get returns the status of id and marks it most recently used.
func (c *ContentCache) Get(id string) (ContentStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Get(id)
}

func (c *ContentCache) Remove(id string) (ContentStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status, ok := c.cache.Peek(id)
	if ok {
		c.cache.Remove(id)
	}
	return status, ok
}

func (c *ContentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// IDs lists the cached content, least recently used first.
func (c *ContentCache) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Keys()
}

// ClearGarbage evicts least recently used entries until at most expected
// remain. Evicted fetches are aborted and evicted pages are deleted from
// disk.
func (c *ContentCache) ClearGarbage(expected int) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []Entry
	for c.cache.Len() > expected {
		id, status, ok := c.cache.RemoveOldest()
		if !ok {
			break
		}
		switch {
		case status.Fetching != nil:
			c.logger.Debug("aborting fetch because of limit", "id", id)
			status.Fetching.Abort()
		case status.Ready != nil:
			c.logger.Debug("removing content because of limit", "id", id)
			if err := os.RemoveAll(status.Ready.Path); err != nil {
				c.logger.Error("unable to remove dapp", "id", id, "err", err)
			}
		}
		removed = append(removed, Entry{ID: id, Status: status})
	}
	return removed
}
