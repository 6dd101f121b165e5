package catalog

import (
	"testing"
	"time"

	"github.com/aluiziolira/go-books-api/models"
)

type fakeLoader struct {
	books []models.Book
	calls int
}

func (l *fakeLoader) Load() []models.Book {
	l.calls++
	out := make([]models.Book, len(l.books))
	copy(out, l.books)
	for i := range out {
		out[i].ID = i + 1
	}
	return out
}

// fakeClock advances only when told to.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func sampleBooks() []models.Book {
	return []models.Book{
		{Title: "A Light in the Attic", Price: "£51.77", Rating: 3, Availability: "In stock", Category: "Poetry", ImageURL: "img/a.jpg"},
		{Title: "Sharp Objects", Price: "£47.82", Rating: 4, Availability: "In stock", Category: "Fiction", ImageURL: "img/b.jpg"},
	}
}

func newTestCache(books []models.Book, ttl time.Duration) (*Cache, *fakeLoader, *fakeClock) {
	loader := &fakeLoader{books: books}
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(loader, ttl)
	cache.now = clock.now
	return cache, loader, clock
}

func TestCacheReturnsSameSnapshotWhileFresh(t *testing.T) {
	cache, loader, clock := newTestCache(sampleBooks(), 10*time.Minute)

	first := cache.Current()
	clock.advance(10*time.Minute - time.Second)
	second := cache.Current()

	if first != second {
		t.Fatalf("snapshot reloaded before TTL elapsed")
	}
	if loader.calls != 1 {
		t.Fatalf("loader called %d times, want 1", loader.calls)
	}
}

func TestCacheReloadsAfterTTL(t *testing.T) {
	cache, loader, clock := newTestCache(sampleBooks(), 10*time.Minute)

	first := cache.Current()
	clock.advance(10*time.Minute + time.Second)
	second := cache.Current()

	if first == second {
		t.Fatalf("snapshot not reloaded after TTL elapsed")
	}
	if loader.calls != 2 {
		t.Fatalf("loader called %d times, want 2", loader.calls)
	}
	if second.Generation <= first.Generation {
		t.Fatalf("generation did not advance: %d -> %d", first.Generation, second.Generation)
	}
}

func TestCacheInvalidateForcesReload(t *testing.T) {
	cache, loader, _ := newTestCache(sampleBooks(), 10*time.Minute)

	cache.Current()
	cache.Invalidate()
	cache.Current()

	if loader.calls != 2 {
		t.Fatalf("loader called %d times after invalidate, want 2", loader.calls)
	}
}

func TestCacheInvalidateWithoutSnapshot(t *testing.T) {
	cache, _, _ := newTestCache(sampleBooks(), 10*time.Minute)

	// Must be a no-op when nothing is held.
	cache.Invalidate()
	cache.Invalidate()

	if snap := cache.Current(); snap.Len() != 2 {
		t.Fatalf("snapshot has %d books, want 2", snap.Len())
	}
}

func TestCacheEmptyLoadIsValidState(t *testing.T) {
	cache, _, _ := newTestCache(nil, 10*time.Minute)

	snap := cache.Current()
	if snap == nil {
		t.Fatalf("empty load must still produce a snapshot")
	}
	if snap.Len() != 0 {
		t.Fatalf("snapshot has %d books, want 0", snap.Len())
	}
	if !cache.Valid() {
		t.Fatalf("empty snapshot should still count as held and fresh")
	}
}

func TestCacheValid(t *testing.T) {
	cache, _, clock := newTestCache(sampleBooks(), 10*time.Minute)

	if cache.Valid() {
		t.Fatalf("Valid() true before first load")
	}
	cache.Current()
	if !cache.Valid() {
		t.Fatalf("Valid() false right after load")
	}
	clock.advance(11 * time.Minute)
	if cache.Valid() {
		t.Fatalf("Valid() true after TTL elapsed")
	}
}
