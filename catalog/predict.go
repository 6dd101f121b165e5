package catalog

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/aluiziolira/go-books-api/models"
	"github.com/aluiziolira/go-books-api/parser"
)

// featureNames is the column order of the training matrix.
var featureNames = []string{"preco", "categoria_encoded", "em_estoque", "titulo_length"}

// Predict estimates a rating for a hypothetical book with a fixed
// deterministic rule. It is a pure function of the current snapshot's
// category set plus the inputs; there is no model behind it.
func (e *Engine) Predict(title string, price float64, category string) models.Prediction {
	mapping := categoryMapping(categoriesOf(e.cache.Current().Books))

	base := 3.0
	if price > 50 {
		base += 1
	} else if price < 20 {
		base -= 1
	}
	if category == "Classics" || category == "Poetry" {
		base += 0.5
	}

	// math.Round ties away from zero, so a base of 4.5 predicts 5.
	predicted := int(math.Round(base))
	if predicted < 1 {
		predicted = 1
	} else if predicted > 5 {
		predicted = 5
	}

	return models.Prediction{
		PredictedRating: predicted,
		Confidence:      0.75,
		FeaturesUsed: map[string]float64{
			"preco_numerico":    price,
			"categoria_encoded": float64(mapping[category]),
			"titulo_length":     float64(utf8.RuneCountInString(title)),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// Features returns the catalog as one numeric feature row per book plus the
// category index mapping used to encode them.
func (e *Engine) Features() models.FeatureSet {
	snap := e.cache.Current()
	key := fmt.Sprintf("features@%d", snap.Generation)
	if v, ok := e.views.Get(key); ok {
		return v.(models.FeatureSet)
	}

	mapping := categoryMapping(categoriesOf(snap.Books))
	features := make([]models.BookFeatures, 0, snap.Len())
	for _, b := range snap.Books {
		features = append(features, models.BookFeatures{
			ID:              b.ID,
			NumericPrice:    parser.ParsePrice(b.Price),
			Rating:          b.Rating,
			CategoryEncoded: mapping[b.Category],
			CategoryName:    b.Category,
			InStock:         parser.InStock(b.Availability),
			TitleLength:     utf8.RuneCountInString(b.Title),
		})
	}

	fs := models.FeatureSet{
		TotalRecords:    len(features),
		Features:        features,
		CategoryMapping: mapping,
	}
	e.views.Add(key, fs)
	return fs
}

// TrainingData returns the catalog as a feature matrix X and rating
// targets y, ready for a supervised learner.
func (e *Engine) TrainingData() models.TrainingData {
	snap := e.cache.Current()
	key := fmt.Sprintf("training_data@%d", snap.Generation)
	if v, ok := e.views.Get(key); ok {
		return v.(models.TrainingData)
	}

	mapping := categoryMapping(categoriesOf(snap.Books))
	td := models.TrainingData{
		X:            make([][]float64, 0, snap.Len()),
		Y:            make([]int, 0, snap.Len()),
		FeatureNames: featureNames,
	}
	for _, b := range snap.Books {
		inStock := 0.0
		if parser.InStock(b.Availability) {
			inStock = 1.0
		}
		td.X = append(td.X, []float64{
			parser.ParsePrice(b.Price),
			float64(mapping[b.Category]),
			inStock,
			float64(utf8.RuneCountInString(b.Title)),
		})
		td.Y = append(td.Y, b.Rating)
	}
	td.TotalSamples = len(td.X)

	e.views.Add(key, td)
	return td
}

// categoryMapping assigns each sorted category its index. Categories absent
// from the mapping (including the empty one) encode as 0.
func categoryMapping(categories []string) map[string]int {
	mapping := make(map[string]int, len(categories))
	for i, c := range categories {
		mapping[c] = i
	}
	return mapping
}
