// Package fetcher downloads pages and feeds from arbitrary hosts with
// per-host rate limiting and bounded retries.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote resources.
type Fetcher interface {
	// Download returns the response body of a successful GET. The caller
	// closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// FetchPage downloads and buffers a page up to the configured size limit.
	FetchPage(ctx context.Context, url string) (*Page, error)
}

// Page is a buffered HTTP response.
type Page struct {
	URL         string // final URL after redirects
	StatusCode  int
	ContentType string
	Body        []byte
}
