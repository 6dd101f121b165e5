package catalog

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/aluiziolira/go-books-api/models"
	"github.com/aluiziolira/go-books-api/parser"
)

// DatasetInfo is what the health report needs to know about the source file.
type DatasetInfo interface {
	Path() string
	Exists() bool
}

// Engine exposes the query, statistics, and prediction operations over the
// cached catalog. Every operation takes the current snapshot exactly once
// and is a pure function of it.
type Engine struct {
	cache   *Cache
	dataset DatasetInfo

	// Generation-keyed memo for the derived statistics views. Entries are
	// pure functions of one snapshot, so a hit is observably identical to
	// recomputing; the TTL only bounds how long dead generations linger.
	views *lru.LRU[string, any]
}

// NewEngine builds the query engine on top of cache. dataset may be nil
// when no file-level health detail is available.
func NewEngine(cache *Cache, dataset DatasetInfo) *Engine {
	return &Engine{
		cache:   cache,
		dataset: dataset,
		views:   lru.NewLRU[string, any](64, nil, cache.TTL()),
	}
}

// List returns books[offset : offset+limit] in source order. Bounds are
// validated at the HTTP boundary (limit 1..1000, offset >= 0).
func (e *Engine) List(limit, offset int) []models.Book {
	books := e.cache.Current().Books
	if offset >= len(books) {
		return []models.Book{}
	}
	end := offset + limit
	if end > len(books) {
		end = len(books)
	}
	out := make([]models.Book, end-offset)
	copy(out, books[offset:end])
	return out
}

// FindByID scans for the book with the given id. A linear scan is fine at
// this dataset size (about a thousand records).
func (e *Engine) FindByID(id int) (models.Book, bool) {
	for _, b := range e.cache.Current().Books {
		if b.ID == id {
			return b, true
		}
	}
	return models.Book{}, false
}

// SearchQuery holds the optional conjunctive filters for Search.
// Nil numeric fields mean "filter not provided".
type SearchQuery struct {
	Title     string
	Category  string
	MinRating *int
	MaxPrice  *float64
}

// Search applies every provided filter with AND semantics. Title and
// category match by case-insensitive substring. A price that fails to parse
// compares as 0.0 and therefore passes any max_price bound; that pass-through
// mirrors the source dataset's behavior and is kept for compatibility.
func (e *Engine) Search(q SearchQuery) []models.Book {
	books := e.cache.Current().Books
	out := make([]models.Book, 0, len(books))

	title := strings.ToLower(q.Title)
	category := strings.ToLower(q.Category)

	for _, b := range books {
		if title != "" && !strings.Contains(strings.ToLower(b.Title), title) {
			continue
		}
		if category != "" && !strings.Contains(strings.ToLower(b.Category), category) {
			continue
		}
		if q.MinRating != nil && b.Rating < *q.MinRating {
			continue
		}
		if q.MaxPrice != nil && parser.ParsePrice(b.Price) > *q.MaxPrice {
			continue
		}
		out = append(out, b)
	}
	return out
}

// TopRated returns up to limit books ordered by rating descending, ties
// broken by title ascending.
func (e *Engine) TopRated(limit int) []models.Book {
	books := e.cache.Current().Books
	out := make([]models.Book, len(books))
	copy(out, books)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].Title < out[j].Title
	})

	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

// ByPriceRange keeps books whose parsed price falls in [min, max], sorted
// ascending by parsed price. The boundary rejects min > max before this runs.
// Unparseable prices compare as 0.0 and pass any range starting at zero.
func (e *Engine) ByPriceRange(min, max float64) []models.Book {
	books := e.cache.Current().Books
	out := make([]models.Book, 0, len(books))
	for _, b := range books {
		if p := parser.ParsePrice(b.Price); p >= min && p <= max {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return parser.ParsePrice(out[i].Price) < parser.ParsePrice(out[j].Price)
	})
	return out
}

// Categories returns the distinct non-empty category names, sorted
// ascending with case-sensitive ordering.
func (e *Engine) Categories() []string {
	return categoriesOf(e.cache.Current().Books)
}

func categoriesOf(books []models.Book) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, b := range books {
		if b.Category == "" {
			continue
		}
		if _, ok := seen[b.Category]; ok {
			continue
		}
		seen[b.Category] = struct{}{}
		out = append(out, b.Category)
	}
	sort.Strings(out)
	return out
}

// Health reports the dataset connection state: connected means the current
// snapshot is non-empty.
func (e *Engine) Health() models.Health {
	snap := e.cache.Current()
	h := models.Health{
		Connected:  snap.Len() > 0,
		TotalBooks: snap.Len(),
		CacheValid: e.cache.Valid(),
	}
	if e.dataset != nil {
		h.FilePath = e.dataset.Path()
		h.FileExists = e.dataset.Exists()
	}
	return h
}

// Invalidate forces the next operation to reload the dataset.
func (e *Engine) Invalidate() {
	e.cache.Invalidate()
}
