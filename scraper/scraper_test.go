package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-books-api/config"
	"github.com/aluiziolira/go-books-api/models"
	"github.com/aluiziolira/go-books-api/pipeline"
)

func TestRetryManagerScheduleRespectsLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Hour
	cfg.RetryBackoffMax = time.Hour

	rm := newRetryManager(func(string) error { return nil }, cfg, NewMetrics())

	if !rm.Schedule("http://example.com/page") {
		t.Fatalf("first retry should be scheduled")
	}
	if !rm.Schedule("http://example.com/page") {
		t.Fatalf("second retry should be scheduled")
	}
	if rm.Schedule("http://example.com/page") {
		t.Fatalf("third retry should not be scheduled")
	}

	rm.Stop()
	if got := rm.TotalRetries(); got != 2 {
		t.Fatalf("total retries = %d, want 2", got)
	}
}

func TestRetryManagerIgnoresEmptyURL(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxRetries = 2

	rm := newRetryManager(func(string) error { return nil }, cfg, NewMetrics())
	defer rm.Stop()

	if rm.Schedule("") {
		t.Fatalf("empty URL should not be scheduled")
	}
}

func TestRetryManagerBackoffCapped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RetryBackoff = 200 * time.Millisecond
	cfg.RetryBackoffMax = 500 * time.Millisecond

	rm := newRetryManager(func(string) error { return nil }, cfg, NewMetrics())

	delay := rm.backoff(4)
	if delay > cfg.RetryBackoffMax {
		t.Fatalf("delay %v exceeds max %v", delay, cfg.RetryBackoffMax)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err, tt.statusCode).String(); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestScrapeErrorWraps(t *testing.T) {
	base := errors.New("boom")
	err := &ScrapeError{Kind: kindTimeout, Err: base}

	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to match the cause")
	}
	if got := err.Error(); got != "timeout: boom" {
		t.Fatalf("Error() = %q, want %q", got, "timeout: boom")
	}
}

type collectingWriter struct {
	mu    sync.Mutex
	books []*models.Book
}

func (cw *collectingWriter) Write(books []*models.Book) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.books = append(cw.books, books...)
	return nil
}

func (cw *collectingWriter) Close() error {
	return nil
}

func (cw *collectingWriter) Validate() error {
	return nil
}

func (cw *collectingWriter) Count() int {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return len(cw.books)
}

func (cw *collectingWriter) All() []*models.Book {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	out := make([]*models.Book, len(cw.books))
	copy(out, cw.books)
	return out
}

func TestScraperHTTPStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusForbidden, expected: "forbidden"},
		{status: http.StatusNotFound, expected: "not_found"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.BaseURL = "http://example.test/"
			cfg.MaxPages = 1
			cfg.Parallelism = 1
			cfg.MaxRetries = 0

			transport := httpmock.NewMockTransport()
			responder := httpmock.NewStringResponder(tt.status, "")
			transport.RegisterResponder("GET", cfg.BaseURL, responder)
			transport.RegisterResponder("GET", strings.TrimSuffix(cfg.BaseURL, "/"), responder)

			s, err := NewScraper(cfg)
			if err != nil {
				t.Fatalf("new scraper: %v", err)
			}
			s.listing.WithTransport(transport)
			s.detail.WithTransport(transport)

			writer := &collectingWriter{}
			p := pipeline.NewPipeline(writer)
			p.Start(1)

			result, err := s.Run(context.Background(), p)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if err := p.Close(); err != nil {
				t.Fatalf("close pipeline: %v", err)
			}

			if got := result.ErrorsByType[tt.expected]; got == 0 {
				t.Fatalf("expected %q classification for status %d", tt.expected, tt.status)
			}
		})
	}
}

func TestScraper_Integration(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test/"
	cfg.MaxPages = 2
	cfg.Parallelism = 4

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.BaseURL, htmlResponder(buildCatalogPage(1, true)))
	transport.RegisterResponder("GET", strings.TrimSuffix(cfg.BaseURL, "/"), htmlResponder(buildCatalogPage(1, true)))
	transport.RegisterResponder("GET", cfg.BaseURL+"page-2.html", htmlResponder(buildCatalogPage(2, false)))
	for page := 1; page <= 2; page++ {
		for i := 1; i <= booksPerPage; i++ {
			id := (page-1)*booksPerPage + i
			url := fmt.Sprintf("%scatalogue/book-%d/index.html", cfg.BaseURL, id)
			transport.RegisterResponder("GET", url, htmlResponder(buildDetailPage(id)))
		}
	}

	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.listing.WithTransport(transport)
	s.detail.WithTransport(transport)

	writer := &collectingWriter{}
	p := pipeline.NewPipeline(writer)
	p.Start(2)

	result, err := s.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}

	if got := writer.Count(); got != 2*booksPerPage {
		t.Fatalf("books=%d, want %d (requests=%d errors=%d failed=%v)",
			got, 2*booksPerPage, result.RequestCount, result.ErrorCount, result.FailedURLs)
	}

	var sample *models.Book
	for _, book := range writer.All() {
		if book.URL == "http://example.test/catalogue/book-1/index.html" {
			sample = book
			break
		}
	}
	if sample == nil {
		t.Fatalf("expected book-1 in output")
	}
	if sample.Title != "Book 1" {
		t.Fatalf("title=%q, want %q", sample.Title, "Book 1")
	}
	if sample.Price != "£1.00" {
		t.Fatalf("price=%q, want raw %q", sample.Price, "£1.00")
	}
	if sample.Rating != 2 {
		t.Fatalf("rating=%d, want 2", sample.Rating)
	}
	if sample.Category != "Poetry" {
		t.Fatalf("category=%q, want Poetry from the breadcrumb", sample.Category)
	}
}

const booksPerPage = 6

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func buildCatalogPage(page int, hasNext bool) string {
	var builder strings.Builder
	builder.WriteString("<html><body><section class=\"products\">")

	for i := 1; i <= booksPerPage; i++ {
		id := (page-1)*booksPerPage + i
		builder.WriteString("<article class=\"product_pod\">")
		fmt.Fprintf(&builder, "<h3><a href=\"catalogue/book-%d/index.html\" title=\"Book %d\">Book %d</a></h3>", id, id, id)
		fmt.Fprintf(&builder, "<p class=\"price_color\">&pound;%0.2f</p>", float64(id))
		builder.WriteString("<p class=\"star-rating Two\"></p>")
		builder.WriteString("<p class=\"instock availability\">In stock</p>")
		fmt.Fprintf(&builder, "<img src=\"media/cache/book-%d.jpg\" />", id)
		builder.WriteString("</article>")
	}

	if hasNext {
		fmt.Fprintf(&builder, "<li class=\"next\"><a href=\"page-%d.html\">next</a></li>", page+1)
	}

	builder.WriteString("</section></body></html>")
	return builder.String()
}

func buildDetailPage(id int) string {
	return fmt.Sprintf(`<html><body>
<ul class="breadcrumb">
<li><a href="/">Home</a></li>
<li><a href="/catalogue/category/books_1/index.html">Books</a></li>
<li><a href="/catalogue/category/books/poetry_23/index.html">Poetry</a></li>
<li class="active">Book %d</li>
</ul>
<article class="product_page"></article>
</body></html>`, id)
}
