// Package api exposes the catalog engine over HTTP: the versioned REST
// routes, JWT-protected admin endpoints, and the Prometheus scrape handler.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-books-api/auth"
	"github.com/aluiziolira/go-books-api/catalog"
	"github.com/aluiziolira/go-books-api/config"
)

const (
	serviceName    = "books-scraper-api"
	serviceVersion = "2.0.0"
	apiPrefix      = "/api/v1"
)

// ScrapeFunc runs a crawl of up to maxPages listing pages and returns how
// many books it wrote to the dataset file.
type ScrapeFunc func(ctx context.Context, maxPages int) (int, error)

// Server is the HTTP front of the service.
type Server struct {
	router  *chi.Mux
	engine  *catalog.Engine
	tokens  *auth.Manager
	users   auth.Users
	cfg     *config.Config
	log     *slog.Logger
	metrics *Metrics
	scrape  ScrapeFunc
}

// Options collects the dependencies of New. Scrape may be nil when the
// process has no crawler wired in; the trigger endpoint then responds 503.
type Options struct {
	Engine *catalog.Engine
	Tokens *auth.Manager
	Users  auth.Users
	Cfg    *config.Config
	Logger *slog.Logger
	Scrape ScrapeFunc
}

// New builds the server and its route tree.
func New(opts Options) *Server {
	s := &Server{
		engine:  opts.Engine,
		tokens:  opts.Tokens,
		users:   opts.Users,
		cfg:     opts.Cfg,
		log:     opts.Logger,
		metrics: NewAPIMetrics(),
		scrape:  opts.Scrape,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.users == nil {
		s.users = auth.DefaultUsers()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(s.cors)
	r.Use(s.instrument)

	r.Get("/", s.handleRoot)

	r.Route(apiPrefix, func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		r.Get("/books", s.handleListBooks)
		r.Get("/books/search", s.handleSearchBooks)
		r.Get("/books/top-rated", s.handleTopRated)
		r.Get("/books/price-range", s.handlePriceRange)
		r.Get("/books/{bookID}", s.handleGetBook)

		r.Get("/categories", s.handleCategories)
		r.Get("/stats/overview", s.handleStatsOverview)
		r.Get("/stats/categories", s.handleStatsCategories)
		r.Get("/health", s.handleHealth)
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

		r.Get("/ml/features", s.handleMLFeatures)
		r.Get("/ml/training-data", s.handleMLTrainingData)
		r.Post("/ml/predictions", s.handlePredict)

		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(auth.RoleAdmin))
			r.Post("/scraping/trigger", s.handleScrapingTrigger)
			r.Post("/scraping/reload", s.handleScrapingReload)
		})
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    serviceName,
		"version": serviceVersion,
		"health":  apiPrefix + "/health",
		"metrics": apiPrefix + "/metrics",
	})
}
