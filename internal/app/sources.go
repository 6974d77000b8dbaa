package app

import (
	"fmt"
	"path/filepath"

	"github.com/vk/repobuild/internal/distsource"
)

// newDistSource assembles the configured source fetchers: the local dist
// directory first, then the object store, behind a shared LRU. It returns
// nil when nothing is configured.
func newDistSource(cfg *Config) (distsource.DistSource, error) {
	var chain distsource.Chain

	if cfg.DistDir != "" {
		dir := cfg.DistDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cfg.Root, dir)
		}
		chain = append(chain, &distsource.Local{Root: dir})
	}

	if cfg.ObjectStore.Endpoint != "" {
		storeCfg := cfg.ObjectStore
		if storeCfg.CacheDir == "" {
			storeCfg.CacheDir = filepath.Join(cfg.Root, cfg.ObjDir, ".dist")
		}
		store, err := distsource.NewObjectStore(storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure object store: %w", err)
		}
		chain = append(chain, store)
	}

	if len(chain) == 0 {
		return nil, nil
	}
	return distsource.NewCached(chain, cfg.SourceCacheSize)
}
