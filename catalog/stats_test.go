package catalog

import (
	"testing"
	"time"

	"github.com/aluiziolira/go-books-api/models"
)

func TestOverviewScenario(t *testing.T) {
	e := newTestEngine(sampleBooks())

	ov := e.Overview()
	if ov.TotalBooks != 2 {
		t.Fatalf("TotalBooks = %d, want 2", ov.TotalBooks)
	}
	if ov.MeanPrice != 49.80 {
		t.Fatalf("MeanPrice = %v, want 49.80", ov.MeanPrice)
	}
	if ov.MinPrice != 47.82 || ov.MaxPrice != 51.77 {
		t.Fatalf("price bounds = %v..%v, want 47.82..51.77", ov.MinPrice, ov.MaxPrice)
	}
	if ov.RatingHistogram["3"] != 1 || ov.RatingHistogram["4"] != 1 || len(ov.RatingHistogram) != 2 {
		t.Fatalf("RatingHistogram = %v, want {3:1 4:1}", ov.RatingHistogram)
	}
	if ov.TotalCategories != 2 {
		t.Fatalf("TotalCategories = %d, want 2", ov.TotalCategories)
	}
}

func TestOverviewConsistency(t *testing.T) {
	e := newTestEngine(catalogBooks())

	ov := e.Overview()
	if ov.TotalBooks != len(catalogBooks()) {
		t.Fatalf("TotalBooks = %d, want %d", ov.TotalBooks, len(catalogBooks()))
	}
	sum := 0
	for _, count := range ov.RatingHistogram {
		sum += count
	}
	if sum != ov.TotalBooks {
		t.Fatalf("histogram sums to %d, want %d", sum, ov.TotalBooks)
	}
}

func TestOverviewExcludesUnparseablePrices(t *testing.T) {
	e := newTestEngine([]models.Book{
		{Title: "Good", Price: "£10.00", Rating: 3, Category: "Fiction"},
		{Title: "Bad", Price: "N/A", Rating: 0, Category: "Fiction"},
	})

	ov := e.Overview()
	if ov.MeanPrice != 10.00 || ov.MinPrice != 10.00 || ov.MaxPrice != 10.00 {
		t.Fatalf("price stats = %v/%v/%v, want 10.00 across; unparseable must be excluded",
			ov.MeanPrice, ov.MinPrice, ov.MaxPrice)
	}
	if ov.RatingHistogram["0"] != 1 {
		t.Fatalf("rating 0 must still be counted, histogram = %v", ov.RatingHistogram)
	}
}

func TestOverviewEmptyCatalog(t *testing.T) {
	e := newTestEngine(nil)

	ov := e.Overview()
	if ov.TotalBooks != 0 || ov.MeanPrice != 0.0 || ov.MinPrice != 0.0 || ov.MaxPrice != 0.0 {
		t.Fatalf("empty catalog overview = %+v, want zeros", ov)
	}
	if len(ov.RatingHistogram) != 0 {
		t.Fatalf("empty catalog histogram = %v, want empty", ov.RatingHistogram)
	}
}

func TestCategoryStats(t *testing.T) {
	e := newTestEngine(catalogBooks())

	stats := e.CategoryStats()
	if len(stats) != 4 {
		t.Fatalf("got %d categories, want 4", len(stats))
	}

	// Sorted by count descending, ties in alphabetical order.
	for i := 0; i < len(stats)-1; i++ {
		if stats[i].TotalBooks < stats[i+1].TotalBooks {
			t.Fatalf("counts not descending at %d", i)
		}
		if stats[i].TotalBooks == stats[i+1].TotalBooks && stats[i].Category > stats[i+1].Category {
			t.Fatalf("tie at count %d not in category order: %q > %q",
				stats[i].TotalBooks, stats[i].Category, stats[i+1].Category)
		}
	}

	// Fiction: Sharp Objects £47.82 r4 + Broken Price (unparseable) r5.
	var fiction models.CategoryStat
	for _, s := range stats {
		if s.Category == "Fiction" {
			fiction = s
		}
	}
	if fiction.TotalBooks != 2 {
		t.Fatalf("Fiction count = %d, want 2", fiction.TotalBooks)
	}
	if fiction.MeanPrice != 47.82 {
		t.Fatalf("Fiction mean price = %v, want 47.82 (unparseable excluded)", fiction.MeanPrice)
	}
	if fiction.MeanRating != 4.5 {
		t.Fatalf("Fiction mean rating = %v, want 4.5 (all ratings included)", fiction.MeanRating)
	}
}

func TestStatsMemoInvalidatedByReload(t *testing.T) {
	loader := &fakeLoader{books: sampleBooks()}
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(loader, 10*time.Minute)
	cache.now = clock.now
	e := NewEngine(cache, nil)

	before := e.Overview()
	if before.TotalBooks != 2 {
		t.Fatalf("TotalBooks = %d, want 2", before.TotalBooks)
	}

	loader.books = append(loader.books, models.Book{Title: "New Arrival", Price: "£9.99", Rating: 2, Category: "Fiction"})
	cache.Invalidate()

	after := e.Overview()
	if after.TotalBooks != 3 {
		t.Fatalf("TotalBooks after reload = %d, want 3 (memo must not survive invalidation)", after.TotalBooks)
	}
}
