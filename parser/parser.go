// Package parser provides tolerant field parsing for catalog records.
//
// Every function here is total: malformed input degrades to a documented
// default instead of an error, so a single bad row never fails a load.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-books-api/models"
)

// ValidateBook ensures the scraper captured the required fields.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title")
	}
	if strings.TrimSpace(b.Price) == "" {
		return fmt.Errorf("book missing price for %s", b.Title)
	}
	return nil
}

// NormalizePrice removes the currency symbol and surrounding whitespace.
// The site sometimes delivers the pound sign as the mojibake "Â£".
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	price = strings.ReplaceAll(price, "Â£", "")
	price = strings.ReplaceAll(price, "£", "")
	price = strings.ReplaceAll(price, ",", "")
	return strings.TrimSpace(price)
}

// ParsePrice extracts the numeric value from a currency-formatted price
// string. Returns 0.0 on any parse failure; callers treat 0.0 as "no valid
// price", not as an error.
func ParsePrice(price string) float64 {
	v, err := strconv.ParseFloat(NormalizePrice(price), 64)
	if err != nil {
		return 0.0
	}
	return v
}

// ParseRating converts a rating cell to an int in [0,5].
// Missing or non-numeric values become 0.
func ParseRating(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}

// InStock reports whether the availability text indicates a purchasable book.
func InStock(availability string) bool {
	return strings.Contains(strings.ToLower(availability), "in stock")
}

// NormalizeAvailability trims spacing from the availability text.
func NormalizeAvailability(text string) string {
	return strings.TrimSpace(text)
}

// RatingToNumeric converts the site's textual star rating to a numeric scale.
func RatingToNumeric(rating string) int {
	switch strings.TrimSpace(rating) {
	case "Zero":
		return 0
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}
