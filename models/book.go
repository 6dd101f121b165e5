// Package models defines the data structures shared by the scraper and the API.
package models

import "time"

// Book is one catalog entry. JSON keys match the original API contract,
// CSV columns match the dataset file layout.
type Book struct {
	ID           int    `csv:"-" json:"id"`
	Title        string `csv:"titulo" json:"titulo"`
	Price        string `csv:"preco" json:"preco"`
	Rating       int    `csv:"rating" json:"rating"`
	Availability string `csv:"disponibilidade" json:"disponibilidade"`
	Category     string `csv:"categoria" json:"categoria"`
	ImageURL     string `csv:"imagem" json:"imagem"`

	// Scrape-only fields, not persisted to the dataset file.
	URL       string    `csv:"-" json:"url,omitempty"`
	ScrapedAt time.Time `csv:"-" json:"scraped_at,omitempty"`
}

// Overview aggregates collection-wide statistics.
type Overview struct {
	TotalBooks      int            `json:"total_livros"`
	MeanPrice       float64        `json:"preco_medio"`
	MinPrice        float64        `json:"preco_minimo"`
	MaxPrice        float64        `json:"preco_maximo"`
	RatingHistogram map[string]int `json:"distribuicao_ratings"`
	TotalCategories int            `json:"total_categorias"`
}

// CategoryStat aggregates statistics for a single category.
type CategoryStat struct {
	Category   string  `json:"categoria"`
	TotalBooks int     `json:"total_livros"`
	MeanPrice  float64 `json:"preco_medio"`
	MinPrice   float64 `json:"preco_minimo"`
	MaxPrice   float64 `json:"preco_maximo"`
	MeanRating float64 `json:"rating_medio"`
}

// Prediction is the result of the rule-based rating predictor.
type Prediction struct {
	PredictedRating int                `json:"rating_previsto"`
	Confidence      float64            `json:"confianca"`
	FeaturesUsed    map[string]float64 `json:"features_usadas"`
	Timestamp       string             `json:"timestamp"`
}

// BookFeatures is one row of the ML feature view.
type BookFeatures struct {
	ID              int     `json:"id"`
	NumericPrice    float64 `json:"preco_numerico"`
	Rating          int     `json:"rating"`
	CategoryEncoded int     `json:"categoria_encoded"`
	CategoryName    string  `json:"categoria_nome"`
	InStock         bool    `json:"em_estoque"`
	TitleLength     int     `json:"titulo_length"`
}

// FeatureSet is the full ML feature view of the catalog.
type FeatureSet struct {
	TotalRecords    int            `json:"total_registros"`
	Features        []BookFeatures `json:"features"`
	CategoryMapping map[string]int `json:"categorias_mapping"`
}

// TrainingData is the catalog formatted as a supervised learning dataset.
type TrainingData struct {
	X            [][]float64 `json:"X"`
	Y            []int       `json:"y"`
	FeatureNames []string    `json:"feature_names"`
	TotalSamples int         `json:"total_samples"`
}

// Health reports the dataset connection state.
type Health struct {
	Connected  bool   `json:"connected"`
	TotalBooks int    `json:"total_books"`
	FilePath   string `json:"file_path"`
	FileExists bool   `json:"file_exists"`
	CacheValid bool   `json:"cache_valid"`
}

// ScraperResult holds the overall result of a scraping operation
type ScraperResult struct {
	Books        []*Book
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
	RetryCount   int
	RequestCount int
	PageCount    int
}
