package catalog

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/aluiziolira/go-books-api/models"
	"github.com/aluiziolira/go-books-api/parser"
)

// Overview computes collection-wide statistics over the current snapshot.
// Unparseable prices (parsed value 0.0) are excluded from the price
// aggregates; the rating histogram counts every record, including rating 0.
func (e *Engine) Overview() models.Overview {
	snap := e.cache.Current()
	key := fmt.Sprintf("overview@%d", snap.Generation)
	if v, ok := e.views.Get(key); ok {
		return v.(models.Overview)
	}

	ov := models.Overview{
		RatingHistogram: make(map[string]int),
	}
	ov.TotalBooks = snap.Len()
	ov.TotalCategories = len(categoriesOf(snap.Books))

	prices := make([]float64, 0, snap.Len())
	for _, b := range snap.Books {
		if p := parser.ParsePrice(b.Price); p > 0 {
			prices = append(prices, p)
		}
		ov.RatingHistogram[strconv.Itoa(b.Rating)]++
	}
	ov.MeanPrice, ov.MinPrice, ov.MaxPrice = priceStats(prices)

	e.views.Add(key, ov)
	return ov
}

// CategoryStats computes per-category statistics, sorted by book count
// descending. The sort is stable, so categories with equal counts keep the
// alphabetical order of Categories().
func (e *Engine) CategoryStats() []models.CategoryStat {
	snap := e.cache.Current()
	key := fmt.Sprintf("category_stats@%d", snap.Generation)
	if v, ok := e.views.Get(key); ok {
		return v.([]models.CategoryStat)
	}

	byCategory := make(map[string][]models.Book)
	for _, b := range snap.Books {
		if b.Category == "" {
			continue
		}
		byCategory[b.Category] = append(byCategory[b.Category], b)
	}

	categories := categoriesOf(snap.Books)
	stats := make([]models.CategoryStat, 0, len(categories))
	for _, category := range categories {
		books := byCategory[category]

		var prices []float64
		ratingSum := 0
		for _, b := range books {
			if p := parser.ParsePrice(b.Price); p > 0 {
				prices = append(prices, p)
			}
			ratingSum += b.Rating
		}

		stat := models.CategoryStat{
			Category:   category,
			TotalBooks: len(books),
		}
		stat.MeanPrice, stat.MinPrice, stat.MaxPrice = priceStats(prices)
		if len(books) > 0 {
			stat.MeanRating = round2(float64(ratingSum) / float64(len(books)))
		}
		stats = append(stats, stat)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalBooks > stats[j].TotalBooks
	})

	e.views.Add(key, stats)
	return stats
}

// priceStats returns the rounded mean, min, and max of prices, or zeros
// when no valid price remains.
func priceStats(prices []float64) (mean, min, max float64) {
	if len(prices) == 0 {
		return 0.0, 0.0, 0.0
	}
	sum := 0.0
	min, max = prices[0], prices[0]
	for _, p := range prices {
		sum += p
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return round2(sum / float64(len(prices))), round2(min), round2(max)
}

// round2 rounds to two decimals, ties away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
