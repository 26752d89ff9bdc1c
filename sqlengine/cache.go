package sqlengine

import (
	"fmt"
	"sync"

	"github.com/zeebo/xxh3"
)

// Cache stores read results by CacheKey. Implementations may be backed by external stores,
// which is why every operation can fail.
type Cache interface {
	ID() string
	Put(key CacheKey, value []any) error
	Get(key CacheKey) ([]any, bool, error)
	Remove(key CacheKey) error
	Clear() error
	Size() int
}

// CacheKey identifies one read: statement, result window, SQL and bound argument values.
type CacheKey struct {
	StatementID string
	Hash        uint64
	Parts       int
}

// String renders the key for logging.
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%016x:%d", k.StatementID, k.Hash, k.Parts)
}

// CacheKeyBuilder accumulates the parts of a CacheKey into an xxh3 hash.
type CacheKeyBuilder struct {
	statementID string
	hasher      *xxh3.Hasher
	parts       int
}

// NewCacheKeyBuilder starts a key for the given statement.
func NewCacheKeyBuilder(statementID string) *CacheKeyBuilder {
	b := &CacheKeyBuilder{
		statementID: statementID,
		hasher:      xxh3.New(),
	}
	b.Update(statementID)

	return b
}

// Update adds one part to the key.
func (b *CacheKeyBuilder) Update(part any) *CacheKeyBuilder {
	_, _ = fmt.Fprintf(b.hasher, "%T:%v|", part, part)
	b.parts++

	return b
}

// Build returns the finished key.
func (b *CacheKeyBuilder) Build() CacheKey {
	return CacheKey{
		StatementID: b.statementID,
		Hash:        b.hasher.Sum64(),
		Parts:       b.parts,
	}
}

// PerpetualCache is an unbounded in-memory Cache without eviction.
type PerpetualCache struct {
	id      string
	entries map[CacheKey][]any
	mu      sync.RWMutex
}

// NewPerpetualCache creates an empty PerpetualCache.
func NewPerpetualCache(id string) *PerpetualCache {
	return &PerpetualCache{
		id:      id,
		entries: make(map[CacheKey][]any),
	}
}

func (c *PerpetualCache) ID() string {
	return c.id
}

func (c *PerpetualCache) Put(key CacheKey, value []any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value

	return nil
}

func (c *PerpetualCache) Get(key CacheKey) ([]any, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.entries[key]

	return value, ok, nil
}

func (c *PerpetualCache) Remove(key CacheKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)

	return nil
}

func (c *PerpetualCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)

	return nil
}

func (c *PerpetualCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
