package relations

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/goalctl/internal/goal"
)

// FetchFunc loads the full relationship graph.
type FetchFunc func(ctx context.Context) ([]goal.Edge, error)

// Cache memoizes the relationship graph for a session.
//
// Thread-safety: all methods are safe for concurrent use. Concurrent Load
// calls before the first fetch completes share a single call to fetch.
type Cache struct {
	fetch FetchFunc
	group singleflight.Group

	mu     sync.Mutex
	loaded bool
	edges  EdgeSet
}

// NewCache creates a cache backed by fetch.
func NewCache(fetch FetchFunc) *Cache {
	return &Cache{fetch: fetch}
}

// Load returns the graph, fetching it on first use.
func (c *Cache) Load(ctx context.Context) (EdgeSet, error) {
	c.mu.Lock()
	if c.loaded {
		edges := c.edges.Clone()
		c.mu.Unlock()
		return edges, nil
	}
	c.mu.Unlock()

	v, err, shared := c.group.Do("edges", func() (interface{}, error) {
		c.mu.Lock()
		if c.loaded {
			edges := c.edges.Clone()
			c.mu.Unlock()
			return edges, nil
		}
		c.mu.Unlock()

		// Waiters share this fetch, so one caller's cancellation must not
		// fail the rest.
		edges, err := c.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		set := NewEdgeSet(edges...)

		c.mu.Lock()
		c.edges = set
		c.loaded = true
		c.mu.Unlock()

		slog.Debug("relationship graph loaded", "edges", len(set))
		return set.Clone(), nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		return v.(EdgeSet).Clone(), nil
	}
	return v.(EdgeSet), nil
}

// Loaded reports whether the graph has been fetched.
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Confirm records edges the store has confirmed as created.
func (c *Cache) Confirm(added ...goal.Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.edges == nil {
		c.edges = make(EdgeSet)
	}
	for _, e := range added {
		c.edges.Add(e)
	}
}

// ConfirmRemoved records edges the store has confirmed as deleted.
func (c *Cache) ConfirmRemoved(removed ...goal.Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range removed {
		c.edges.Remove(e)
	}
}

// Invalidate drops the memoized graph so the next Load fetches again.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.edges = nil
}
