// Package assets caches refined part assets. A refinement result depends
// only on the control topology and the refinement settings, never on the
// control positions, so parts that share a topology (mirrored limbs,
// instanced props) are refined once.
package assets

import (
	"encoding/binary"
	"hash/fnv"
	"sync"

	"github.com/Faultbox/figure-subdiv/pkg/subdiv"
	"github.com/Faultbox/figure-subdiv/pkg/topology"
)

// Key identifies a refinement. Topologies with equal hashes are compared
// in full on lookup.
type Key struct {
	Level           int
	Boundary        subdiv.BoundaryInterpolation
	DerivativesOnly bool
	hash            uint64
}

// KeyFor builds the cache key of refining topo with the given settings.
func KeyFor(topo topology.QuadTopology, level int, boundary subdiv.BoundaryInterpolation, derivativesOnly bool) Key {
	h := fnv.New64a()
	buf := make([]byte, 0, 8*(1+4*len(topo.Faces)))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(topo.VertexCount))
	for _, q := range topo.Faces {
		for _, v := range q {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
		}
	}
	h.Write(buf)

	return Key{
		Level:           level,
		Boundary:        boundary,
		DerivativesOnly: derivativesOnly,
		hash:            h.Sum64(),
	}
}

type entry struct {
	topo   topology.QuadTopology
	result subdiv.RefinementResult
}

// Cache is a concurrency-safe in-memory cache of refinement results.
type Cache struct {
	entries map[Key][]entry
	mu      sync.RWMutex

	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[Key][]entry),
	}
}

// Get retrieves the result of refining topo under key.
func (c *Cache) Get(key Key, topo topology.QuadTopology) (subdiv.RefinementResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries[key] {
		if topology.Equal(e.topo, topo) {
			c.hits++
			return e.result, true
		}
	}
	c.misses++
	return subdiv.RefinementResult{}, false
}

// Set stores the result of refining topo under key. Storing a topology
// that is already cached is a no-op.
func (c *Cache) Set(key Key, topo topology.QuadTopology, result subdiv.RefinementResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries[key] {
		if topology.Equal(e.topo, topo) {
			return
		}
	}
	owned := topology.QuadTopology{
		VertexCount: topo.VertexCount,
		Faces:       append([]topology.Quad(nil), topo.Faces...),
	}
	c.entries[key] = append(c.entries[key], entry{topo: owned, result: result})
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, es := range c.entries {
		n += len(es)
	}
	return n
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key][]entry)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
