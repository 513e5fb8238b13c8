package analyzer

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/pbuild/internal/config"
	"github.com/vk/pbuild/internal/pathid"
)

// CachingLoader wraps a config.Loader with a small bounded cache of parsed
// ProjectConfigs. It exists for --watch sessions: a filesystem event that
// touches one project's source files shouldn't force every other project
// sharing the walk to be reparsed from disk, only re-analyzed.
//
// The cache is invalidated per-project, not wholesale, so a configuration
// file edit only pays for reparsing the one project that changed.
type CachingLoader struct {
	inner config.Loader
	cache *lru.Cache[string, *config.ProjectConfig]
}

// NewCachingLoader wraps inner with an LRU cache holding up to size parsed
// configs. size must be positive.
func NewCachingLoader(inner config.Loader, size int) (*CachingLoader, error) {
	cache, err := lru.New[string, *config.ProjectConfig](size)
	if err != nil {
		return nil, fmt.Errorf("creating config cache: %w", err)
	}
	return &CachingLoader{inner: inner, cache: cache}, nil
}

// Load returns the cached ProjectConfig for id if present, otherwise
// delegates to the wrapped Loader and caches the result.
func (c *CachingLoader) Load(ctx context.Context, id pathid.ID) (*config.ProjectConfig, error) {
	if cfg, ok := c.cache.Get(id.String()); ok {
		return cfg, nil
	}
	cfg, err := c.inner.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id.String(), cfg)
	return cfg, nil
}

// Invalidate discards id's cached configuration, if any, forcing the next
// Load to reparse it from disk. Callers evict the specific projects whose
// configuration files a watch event reported as changed.
func (c *CachingLoader) Invalidate(id pathid.ID) {
	c.cache.Remove(id.String())
}
