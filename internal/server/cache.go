package server

import (
	"container/list"
	"sync"

	"github.com/clanevents/bingosim/internal/snapshot"
)

// snapshotCache is a bounded LRU of parsed snapshots keyed by snapshot ID.
// Parsing and validating a large board on every batch launch is wasted work;
// evicting least-recently-used entries keeps memory flat when many snapshots
// accumulate.
type snapshotCache struct {
	mu    sync.Mutex
	cap   int
	order *list.List
	items map[string]*list.Element
}

type cacheEntry struct {
	id   string
	snap *snapshot.EventSnapshot
}

func newSnapshotCache(capacity int) *snapshotCache {
	if capacity < 1 {
		capacity = 1
	}
	return &snapshotCache{
		cap:   capacity,
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *snapshotCache) get(id string) (*snapshot.EventSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).snap, true
}

func (c *snapshotCache) put(id string, snap *snapshot.EventSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[id]; ok {
		el.Value.(*cacheEntry).snap = snap
		c.order.MoveToFront(el)
		return
	}
	c.items[id] = c.order.PushFront(&cacheEntry{id: id, snap: snap})

	if c.order.Len() > c.cap {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.items, last.Value.(*cacheEntry).id)
	}
}
