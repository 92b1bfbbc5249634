package view

import (
	"container/list"
	"sync"

	"github.com/couchcryptid/climate-trend-etl/internal/domain"
)

// viewCache holds views built from one store version, evicting the least
// recently used config when full. Views from an older version can never be
// served again, so advancing the version empties the cache.
type viewCache struct {
	mu       sync.Mutex
	capacity int
	version  uint64
	order    *list.List // of *cachedView, most recently used first
	byConfig map[domain.ViewConfig]*list.Element
}

type cachedView struct {
	config domain.ViewConfig
	view   domain.View
}

func newViewCache(capacity int) *viewCache {
	return &viewCache{
		capacity: max(capacity, 1),
		order:    list.New(),
		byConfig: make(map[domain.ViewConfig]*list.Element),
	}
}

// get returns the view for cfg if it was built from version.
func (c *viewCache) get(version uint64, cfg domain.ViewConfig) (domain.View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version != c.version {
		return domain.View{}, false
	}
	el, ok := c.byConfig[cfg]
	if !ok {
		return domain.View{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cachedView).view, true
}

// put stores v for cfg at version. A view built from a snapshot older than
// the cached version is discarded.
func (c *viewCache) put(version uint64, cfg domain.ViewConfig, v domain.View) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case version < c.version:
		return
	case version > c.version:
		c.version = version
		c.order.Init()
		clear(c.byConfig)
	}

	if el, ok := c.byConfig[cfg]; ok {
		el.Value.(*cachedView).view = v
		c.order.MoveToFront(el)
		return
	}
	c.byConfig[cfg] = c.order.PushFront(&cachedView{config: cfg, view: v})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.byConfig, oldest.Value.(*cachedView).config)
	}
}

func (c *viewCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
