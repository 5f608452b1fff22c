package dapps

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/DOIDFoundation/ethnode/flags"
	"github.com/DOIDFoundation/ethnode/rpc"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	"github.com/spf13/viper"
)

type Config struct {
	// Dir holds one directory per unpacked content id.
	Dir string
	// CacheSize is the number of entries kept after garbage collection.
	CacheSize int
}

func DefaultConfig() Config {
	return Config{
		Dir:       filepath.Join(viper.GetString(flags.Home), "dapps"),
		CacheSize: 20,
	}
}

func ConfigFromViper() Config {
	cfg := DefaultConfig()
	if dir := viper.GetString(flags.Dapps_Dir); dir != "" {
		cfg.Dir = dir
	}
	if viper.IsSet(flags.Dapps_CacheSize) {
		cfg.CacheSize = viper.GetInt(flags.Dapps_CacheSize)
	}
	return cfg
}

// Service owns the content cache. On start it adopts the pages already
// unpacked in the content directory, oldest first, and trims them to the
// cache size.
type Service struct {
	service.BaseService
	config Config
	cache  *ContentCache
}

func NewService(config Config, logger log.Logger) *Service {
	logger = logger.With("module", "dapps")
	s := &Service{config: config, cache: NewContentCache(logger)}
	s.BaseService = *service.NewBaseService(logger, "Dapps", s)
	return s
}

func (s *Service) OnStart() error {
	if err := os.MkdirAll(s.config.Dir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(s.config.Dir)
	if err != nil {
		return err
	}
	type page struct {
		id      string
		modTime int64
	}
	var pages []page
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.Logger.Error("skipping unreadable content", "id", entry.Name(), "err", err)
			continue
		}
		pages = append(pages, page{id: entry.Name(), modTime: info.ModTime().UnixNano()})
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].modTime < pages[j].modTime })
	for _, p := range pages {
		s.cache.Insert(p.id, Ready(filepath.Join(s.config.Dir, p.id)))
	}
	removed := s.cache.ClearGarbage(s.config.CacheSize)
	s.Logger.Info("content cache loaded", "dir", s.config.Dir, "entries", s.cache.Len(), "removed", len(removed))
	return nil
}

func (s *Service) Cache() *ContentCache {
	return s.cache
}

// RegisterAPI registers the dapps namespace on server.
func (s *Service) RegisterAPI(server *rpc.Server) {
	server.RegisterName("dapps",
		rpc.Func0("contents", func(context.Context) ([]string, error) {
			return s.cache.IDs(), nil
		}),
	)
}
