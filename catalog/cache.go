// Package catalog owns the in-memory book collection: a read-through
// cache with time-based invalidation, and the query, statistics, and
// prediction operations over the current snapshot.
package catalog

import (
	"sync"
	"time"

	"github.com/aluiziolira/go-books-api/models"
)

// Loader produces the full ordered book collection from the dataset source.
// A degenerate source yields an empty slice, never an error.
type Loader interface {
	Load() []models.Book
}

// Snapshot is an immutable, fully-loaded view of the catalog at one point
// in time. A reload produces a new snapshot; nothing mutates an existing one.
type Snapshot struct {
	Books      []models.Book
	LoadedAt   time.Time
	Generation uint64
}

// Len returns the number of books in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Books)
}

// Cache holds at most one snapshot and refreshes it from the loader once
// the configured TTL elapses. It is the only path that produces snapshots.
//
// Concurrency: the pointer and timestamp are mutex-guarded, but the load
// itself runs outside the lock. Concurrent callers hitting an expired TTL
// may each trigger a reload; the last store wins. That redundancy is
// accepted over serializing reloads, since a load is idempotent and cheap.
type Cache struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time

	mu   sync.Mutex
	snap *Snapshot
	gen  uint64
}

// NewCache builds a cache over loader with the given time-to-live.
func NewCache(loader Loader, ttl time.Duration) *Cache {
	return &Cache{
		loader: loader,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the configured snapshot time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Current returns the held snapshot while it is fresh, reloading it from
// the loader otherwise. Callers must take the snapshot once per operation
// and not re-fetch mid-operation.
func (c *Cache) Current() *Snapshot {
	c.mu.Lock()
	if snap := c.snap; snap != nil && c.now().Sub(snap.LoadedAt) < c.ttl {
		c.mu.Unlock()
		return snap
	}
	c.mu.Unlock()

	books := c.loader.Load()

	c.mu.Lock()
	c.gen++
	snap := &Snapshot{
		Books:      books,
		LoadedAt:   c.now(),
		Generation: c.gen,
	}
	c.snap = snap
	c.mu.Unlock()
	return snap
}

// Invalidate drops the held snapshot so the next Current call reloads
// regardless of elapsed time. Safe to call when nothing is held. A Current
// call already in flight may still return the pre-invalidation snapshot.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

// Valid reports whether a fresh snapshot is currently held, without
// triggering a reload.
func (c *Cache) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap != nil && c.now().Sub(c.snap.LoadedAt) < c.ttl
}
