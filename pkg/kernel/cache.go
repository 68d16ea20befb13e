package kernel

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// MeshCache memoizes meshes by key so a geometry that many instances share
// is meshed once. Get hands out clones; the cached mesh is never exposed.
// It is safe for concurrent use.
type MeshCache struct {
	mu     sync.RWMutex
	meshes map[string]*Mesh
	misses int

	inflight singleflight.Group
}

// NewMeshCache returns an empty cache.
func NewMeshCache() *MeshCache {
	return &MeshCache{meshes: make(map[string]*Mesh)}
}

// Get returns a clone of the mesh stored under key, calling build to
// populate the entry on first use. Concurrent misses on one key share a
// single build. A failed build is not cached.
func (c *MeshCache) Get(key string, build func() (*Mesh, error)) (*Mesh, error) {
	// Fast path: read lock
	c.mu.RLock()
	if m, ok := c.meshes[key]; ok {
		c.mu.RUnlock()
		return m.Clone(), nil
	}
	c.mu.RUnlock()

	// Slow path: one build per key; concurrent callers wait for it.
	v, err, _ := c.inflight.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		existing, ok := c.meshes[key]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}

		m, err := build()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.misses++
		c.meshes[key] = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Mesh).Clone(), nil
}

// Len returns the number of cached meshes.
func (c *MeshCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.meshes)
}

// Misses returns how many entries have been built.
func (c *MeshCache) Misses() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.misses
}
