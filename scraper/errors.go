package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// errorKind classifies request failures for metrics and retry accounting.
type errorKind int

const (
	kindOther errorKind = iota
	kindTimeout
	kindConnection
	kindForbidden
	kindNotFound
	kindRateLimited
)

func (k errorKind) String() string {
	switch k {
	case kindTimeout:
		return "timeout"
	case kindConnection:
		return "connection"
	case kindForbidden:
		return "forbidden"
	case kindNotFound:
		return "not_found"
	case kindRateLimited:
		return "rate_limited"
	default:
		return "other"
	}
}

// ScrapeError wraps a request failure with its classification.
type ScrapeError struct {
	Kind errorKind
	Err  error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// classifyError buckets an error (and optional HTTP status) into a kind.
func classifyError(err error, statusCode int) errorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return kindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return kindTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return kindConnection
	}

	switch statusCode {
	case http.StatusForbidden:
		return kindForbidden
	case http.StatusNotFound:
		return kindNotFound
	case http.StatusTooManyRequests:
		return kindRateLimited
	}
	return kindOther
}
