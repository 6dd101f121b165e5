package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-books-api/api"
	"github.com/aluiziolira/go-books-api/auth"
	"github.com/aluiziolira/go-books-api/catalog"
	"github.com/aluiziolira/go-books-api/config"
	"github.com/aluiziolira/go-books-api/pipeline"
	"github.com/aluiziolira/go-books-api/scraper"
	"github.com/aluiziolira/go-books-api/store"
)

func main() {
	defaultCfg := config.DefaultConfig()

	addrDefault := defaultCfg.ListenAddr
	if value, ok := config.EnvString("API_ADDR"); ok {
		addrDefault = value
	}
	dataDefault := defaultCfg.DataFile
	if value, ok := config.EnvString("API_DATA_FILE"); ok {
		dataDefault = value
	}
	ttlDefault := defaultCfg.CacheTTL
	if value, ok, err := config.EnvDuration("API_CACHE_TTL"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid API_CACHE_TTL: %v\n", err)
		os.Exit(1)
	} else if ok {
		ttlDefault = value
	}
	secretDefault := defaultCfg.JWTSecret
	if value, ok := config.EnvString("API_JWT_SECRET"); ok {
		secretDefault = value
	}

	addr := flag.String("addr", addrDefault, "HTTP listen address")
	dataFile := flag.String("data", dataDefault, "Dataset file path (.csv, .json, or .jsonl)")
	cacheTTL := flag.Duration("cache-ttl", ttlDefault, "Snapshot time-to-live before a reload")
	jwtSecret := flag.String("jwt-secret", secretDefault, "HMAC secret for JWT signing")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Base URL for triggered scrapes")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.ListenAddr = *addr
	cfg.DataFile = *dataFile
	cfg.CacheTTL = *cacheTTL
	cfg.JWTSecret = *jwtSecret
	cfg.BaseURL = *baseURL
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	dataset := store.NewFileStore(cfg.DataFile)
	cache := catalog.NewCache(dataset, cfg.CacheTTL)
	engine := catalog.NewEngine(cache, dataset)
	tokens := auth.NewManager([]byte(cfg.JWTSecret), cfg.AccessExpiry, cfg.RefreshExpiry)

	server := api.New(api.Options{
		Engine: engine,
		Tokens: tokens,
		Users:  auth.DefaultUsers(),
		Cfg:    cfg,
		Logger: logger,
		Scrape: scrapeFunc(cfg),
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", slog.Any("error", err))
		}
	}()

	slog.Info("starting api",
		slog.String("addr", cfg.ListenAddr),
		slog.String("data_file", cfg.DataFile),
		slog.Duration("cache_ttl", cfg.CacheTTL),
		slog.Int("books", engine.Health().TotalBooks),
	)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("api stopped")
}

// scrapeFunc builds the in-process crawl used by the admin trigger
// endpoint. Each call runs a fresh scraper writing to the dataset file.
func scrapeFunc(cfg *config.Config) api.ScrapeFunc {
	return func(ctx context.Context, maxPages int) (int, error) {
		runCfg := *cfg
		runCfg.MaxPages = maxPages

		s, err := scraper.NewScraper(&runCfg)
		if err != nil {
			return 0, fmt.Errorf("initialising scraper: %w", err)
		}

		writer, err := pipeline.NewCSVWriter(runCfg.DataFile)
		if err != nil {
			return 0, fmt.Errorf("creating writer: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, runCfg.ScrapeTimeout)
		defer cancel()

		p := pipeline.NewPipeline(writer)
		p.Start(runCfg.Parallelism)

		result, err := s.Run(runCtx, p)
		if err != nil {
			_ = p.Close()
			_ = writer.Close()
			return 0, err
		}
		if err := p.Close(); err != nil {
			_ = writer.Close()
			return 0, fmt.Errorf("pipeline shutdown: %w", err)
		}
		if err := writer.Validate(); err != nil {
			_ = writer.Close()
			return 0, fmt.Errorf("output validation: %w", err)
		}
		if err := writer.Close(); err != nil {
			return 0, fmt.Errorf("close writer: %w", err)
		}

		return result.TotalCount, nil
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
