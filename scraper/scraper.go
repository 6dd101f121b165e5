// Package scraper crawls the demo bookstore and streams complete records,
// category included, through the pipeline into the dataset file.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-books-api/config"
	"github.com/aluiziolira/go-books-api/models"
	"github.com/aluiziolira/go-books-api/parser"
	"github.com/aluiziolira/go-books-api/pipeline"
)

// Scraper drives two collectors: one walks the catalogue listing pages,
// the other visits each product page for its breadcrumb category.
type Scraper struct {
	cfg     *config.Config
	listing *colly.Collector
	detail  *colly.Collector
	retry   *retryManager
	Metrics *Metrics

	requestCount int64
	pageCount    int64
	errorCount   int64

	mu           sync.Mutex
	pending      map[string]*models.Book
	failedURLs   []string
	errorsByType map[string]int

	handlersOnce sync.Once
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	listing := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
	)

	listing.SetRequestTimeout(cfg.Timeout)
	listing.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	listing.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := listing.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	detail := listing.Clone()

	s := &Scraper{
		cfg:          cfg,
		listing:      listing,
		detail:       detail,
		pending:      make(map[string]*models.Book),
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}
	s.retry = newRetryManager(s.visit, cfg, s.Metrics)
	return s, nil
}

// Run starts the crawl and streams items through the pipeline.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.retry.SetContext(ctx)
	s.configureHandlers(ctx, p)

	start := time.Now()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.listing.Wait()
			s.detail.Wait()
			s.retry.Stop()
		case <-done:
		}
	}()

	if err := s.listing.Visit(s.cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("initial visit: %w", err)
	}

	s.listing.Wait()
	s.detail.Wait()
	s.retry.Stop()

	result := &models.ScraperResult{
		StartTime:    start,
		EndTime:      time.Now(),
		TotalCount:   int(p.Processed()),
		ErrorCount:   int(atomic.LoadInt64(&s.errorCount)),
		FailedURLs:   s.snapshotFailedURLs(),
		ErrorsByType: s.snapshotErrors(),
		RetryCount:   s.retry.TotalRetries(),
		RequestCount: int(atomic.LoadInt64(&s.requestCount)),
		PageCount:    int(atomic.LoadInt64(&s.pageCount)),
	}
	return result, nil
}

func (s *Scraper) configureHandlers(ctx context.Context, p *pipeline.Pipeline) {
	s.handlersOnce.Do(func() {
		for _, c := range []*colly.Collector{s.listing, s.detail} {
			c.OnRequest(func(r *colly.Request) {
				r.Ctx.Put("start", time.Now())
				current := atomic.AddInt64(&s.requestCount, 1)
				s.Metrics.IncRequest("started")
				if current%50 == 0 {
					slog.Debug("scraper request progress",
						slog.Int64("requests", current),
						slog.Int64("pages", atomic.LoadInt64(&s.pageCount)),
						slog.String("url", r.URL.String()),
					)
				}
			})

			c.OnResponse(func(r *colly.Response) {
				if r.StatusCode >= http.StatusBadRequest {
					slog.Error("non-200 response",
						slog.Int("status", r.StatusCode),
						slog.String("url", r.Request.URL.String()),
					)
				}
				if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
					s.Metrics.ObserveDuration(time.Since(start))
				}
			})

			c.OnError(s.handleError)
		}

		s.listing.OnHTML("article.product_pod", func(e *colly.HTMLElement) {
			book := extractBook(e)
			if book == nil {
				return
			}
			s.Metrics.IncItems()

			s.mu.Lock()
			s.pending[book.URL] = book
			s.mu.Unlock()

			if ctx.Err() != nil {
				return
			}
			if err := s.detail.Visit(book.URL); err != nil {
				// Already-visited URLs surface here; the listing walk can
				// produce the same product twice.
				s.dropPending(book.URL)
				slog.Debug("detail visit skipped", slog.String("url", book.URL), slog.Any("error", err))
			}
		})

		s.listing.OnHTML("li.next a", func(e *colly.HTMLElement) {
			currentPage := atomic.AddInt64(&s.pageCount, 1)
			if currentPage >= int64(s.cfg.MaxPages) {
				return
			}
			if ctx.Err() != nil {
				return
			}
			link := e.Attr("href")
			abs := e.Request.AbsoluteURL(link)
			s.listing.Visit(abs)
		})

		s.detail.OnHTML("ul.breadcrumb", func(e *colly.HTMLElement) {
			category := extractCategory(e)
			if category == "" {
				return
			}
			s.mu.Lock()
			if book, ok := s.pending[e.Request.URL.String()]; ok {
				book.Category = category
			}
			s.mu.Unlock()
		})

		s.detail.OnScraped(func(r *colly.Response) {
			book := s.takePending(r.Request.URL.String())
			if book == nil {
				return
			}
			if book.Category == "" {
				book.Category = "Unknown"
			}
			if err := p.Process(book); err != nil && err != pipeline.ErrPipelineClosed {
				slog.Error("pipeline process error", slog.Any("error", err))
			}
		})
	})
}

func (s *Scraper) handleError(r *colly.Response, err error) {
	atomic.AddInt64(&s.errorCount, 1)
	statusCode := 0
	if r != nil {
		statusCode = r.StatusCode
	}
	kind := classifyError(err, statusCode)

	s.mu.Lock()
	s.errorsByType[kind.String()]++
	s.mu.Unlock()

	failedURL := ""
	if r != nil && r.Request != nil && r.Request.URL != nil {
		failedURL = r.Request.URL.String()
	}
	slog.Error("request error",
		slog.String("url", failedURL),
		slog.Any("error", &ScrapeError{Kind: kind, Err: err}),
	)
	s.Metrics.IncError(kind.String())

	if !s.retry.Schedule(failedURL) {
		s.dropPending(failedURL)
		s.mu.Lock()
		s.failedURLs = append(s.failedURLs, failedURL)
		s.mu.Unlock()
	}
}

// visit routes a retried URL to the collector that owns it.
func (s *Scraper) visit(url string) error {
	s.mu.Lock()
	_, isDetail := s.pending[url]
	s.mu.Unlock()
	if isDetail {
		return s.detail.Visit(url)
	}
	return s.listing.Visit(url)
}

func (s *Scraper) takePending(url string) *models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.pending[url]
	if !ok {
		return nil
	}
	delete(s.pending, url)
	return book
}

func (s *Scraper) dropPending(url string) {
	s.mu.Lock()
	delete(s.pending, url)
	s.mu.Unlock()
}

func extractBook(e *colly.HTMLElement) *models.Book {
	title := strings.TrimSpace(e.ChildAttr("h3 a", "title"))
	if title == "" {
		return nil
	}

	href := e.ChildAttr("h3 a", "href")
	if href == "" {
		return nil
	}

	bookURL := e.Request.AbsoluteURL(href)
	priceText := strings.TrimSpace(e.ChildText("p.price_color"))

	ratingClass := e.ChildAttr("p.star-rating", "class")
	ratingText := ""
	if ratingClass != "" {
		parts := strings.Fields(ratingClass)
		if len(parts) > 1 {
			ratingText = parts[1]
		}
	}

	availability := strings.TrimSpace(e.ChildText("p.instock.availability"))
	if availability == "" {
		availability = strings.TrimSpace(e.ChildText("p.availability"))
	}

	imageURL := e.Request.AbsoluteURL(e.ChildAttr("img", "src"))

	return &models.Book{
		Title:        title,
		Price:        priceText,
		Rating:       parser.RatingToNumeric(ratingText),
		Availability: availability,
		ImageURL:     imageURL,
		URL:          bookURL,
		ScrapedAt:    time.Now(),
	}
}

// extractCategory reads the product's category from its breadcrumb trail:
// Home > Books > <category> > <title>.
func extractCategory(e *colly.HTMLElement) string {
	links := e.ChildTexts("li a")
	if len(links) < 3 {
		return ""
	}
	return strings.TrimSpace(links[2])
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}
