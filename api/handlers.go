package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aluiziolira/go-books-api/catalog"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError emits the {"detail": ...} error shape the original clients expect.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// intQuery parses an optional integer query parameter, falling back to def
// when absent. A present-but-malformed value is an error.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be an integer", name)
	}
	return v, nil
}

// floatQuery parses an optional float query parameter. The returned pointer
// is nil when the parameter is absent.
func floatQuery(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("parameter %q must be a number", name)
	}
	return &v, nil
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", s.cfg.DefaultPageLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit < 1 || limit > s.cfg.MaxPageLimit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", s.cfg.MaxPageLimit))
		return
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if offset < 0 {
		writeError(w, http.StatusBadRequest, "offset cannot be negative")
		return
	}

	writeJSON(w, http.StatusOK, s.engine.List(limit, offset))
}

func (s *Server) handleSearchBooks(w http.ResponseWriter, r *http.Request) {
	q := catalog.SearchQuery{
		Title:    r.URL.Query().Get("title"),
		Category: r.URL.Query().Get("category"),
	}

	if raw := r.URL.Query().Get("min_rating"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, `parameter "min_rating" must be an integer`)
			return
		}
		if v < 0 || v > 5 {
			writeError(w, http.StatusBadRequest, "min_rating must be between 0 and 5")
			return
		}
		q.MinRating = &v
	}

	maxPrice, err := floatQuery(r, "max_price")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if maxPrice != nil && *maxPrice < 0 {
		writeError(w, http.StatusBadRequest, "max_price cannot be negative")
		return
	}
	q.MaxPrice = maxPrice

	writeJSON(w, http.StatusOK, s.engine.Search(q))
}

func (s *Server) handleTopRated(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit < 1 || limit > 100 {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	writeJSON(w, http.StatusOK, s.engine.TopRated(limit))
}

func (s *Server) handlePriceRange(w http.ResponseWriter, r *http.Request) {
	min, err := floatQuery(r, "min")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	max, err := floatQuery(r, "max")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if min == nil || max == nil {
		writeError(w, http.StatusBadRequest, `parameters "min" and "max" are required`)
		return
	}
	if *min < 0 || *max < 0 {
		writeError(w, http.StatusBadRequest, "prices cannot be negative")
		return
	}
	if *min > *max {
		writeError(w, http.StatusBadRequest, "minimum price cannot exceed maximum price")
		return
	}

	writeJSON(w, http.StatusOK, s.engine.ByPriceRange(*min, *max))
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "book id must be an integer")
		return
	}

	book, ok := s.engine.FindByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("book %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories := s.engine.Categories()
	writeJSON(w, http.StatusOK, map[string]any{
		"total":      len(categories),
		"categorias": categories,
	})
}

func (s *Server) handleStatsOverview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Overview())
}

func (s *Server) handleStatsCategories(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.CategoryStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_categorias": len(stats),
		"estatisticas":     stats,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.engine.Health()

	status := "healthy"
	if !health.Connected {
		status = "unhealthy"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"database":  health,
	})
}

func (s *Server) handleMLFeatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Features())
}

func (s *Server) handleMLTrainingData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.TrainingData())
}

type predictionRequest struct {
	Title    string   `json:"titulo"`
	Price    *float64 `json:"preco"`
	Category string   `json:"categoria"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, `field "titulo" is required`)
		return
	}
	if req.Price == nil {
		writeError(w, http.StatusBadRequest, `field "preco" is required`)
		return
	}
	if *req.Price < 0 {
		writeError(w, http.StatusBadRequest, "price cannot be negative")
		return
	}

	writeJSON(w, http.StatusOK, s.engine.Predict(req.Title, *req.Price, req.Category))
}

func (s *Server) handleScrapingTrigger(w http.ResponseWriter, r *http.Request) {
	if s.scrape == nil {
		writeError(w, http.StatusServiceUnavailable, "scraper is not configured")
		return
	}

	maxPages, err := intQuery(r, "max_pages", 3)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if maxPages < 1 || maxPages > 50 {
		writeError(w, http.StatusBadRequest, "max_pages must be between 1 and 50")
		return
	}

	user, _ := claimsFrom(r.Context())
	s.log.Info("scraping triggered", "user", user, "max_pages", maxPages)

	count, err := s.scrape(r.Context(), maxPages)
	if err != nil {
		s.log.Error("scraping failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("scraping failed: %v", err))
		return
	}

	s.engine.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   fmt.Sprintf("scraping finished: %d books written", count),
		"status":    "success",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleScrapingReload(w http.ResponseWriter, r *http.Request) {
	s.engine.Invalidate()
	total := s.engine.Health().TotalBooks

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   fmt.Sprintf("dataset reloaded: %d books", total),
		"status":    "success",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
