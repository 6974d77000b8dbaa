package distsource

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/repobuild/internal/ctxlog"
)

// Cached memoizes the paths returned by another DistSource. Failures are
// not cached.
type Cached struct {
	source DistSource
	paths  *lru.Cache[string, string]
}

// NewCached wraps source with an LRU of at most size entries.
func NewCached(source DistSource, size int) (*Cached, error) {
	paths, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("init source cache: %w", err)
	}
	return &Cached{source: source, paths: paths}, nil
}

// Fetch implements DistSource.
func (c *Cached) Fetch(ctx context.Context, id string) (string, error) {
	if dir, ok := c.paths.Get(id); ok {
		ctxlog.FromContext(ctx).Debug("Dist source cache hit.", "id", id)
		return dir, nil
	}
	dir, err := c.source.Fetch(ctx, id)
	if err != nil {
		return "", err
	}
	c.paths.Add(id, dir)
	return dir, nil
}
