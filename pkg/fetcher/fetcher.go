// Package fetcher is the HTTP client shared by the index-page fetch and
// the chapter downloads. It classifies responses into the error taxonomy
// the retry policy dispatches on.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Response classification. ErrNotFound is terminal for a chapter; the
// others are retryable with different cooldowns.
var (
	ErrNotFound    = errors.New("fetcher: resource not found")
	ErrRateLimited = errors.New("fetcher: rate limited by upstream")
	ErrServer      = errors.New("fetcher: upstream server error")
)

// Options configures the client.
type Options struct {
	// UserAgent identifies the tool to the exchange.
	UserAgent string

	// Timeout bounds each request: connect, write and read. Exceeding it
	// is treated like any other transport failure.
	Timeout time.Duration
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		UserAgent: "ipofetch/1.0.0 (research tool)",
		Timeout:   30 * time.Second,
	}
}

// Client wraps http.Client with the response classification.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a client with the given options.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	return &Client{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// GetBytes fetches a URL and returns the whole body. Used for index pages,
// which are small.
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("fetcher: failed to read response body: %w", err)
	}
	return data, nil
}

// GetDocument fetches a URL and parses it with goquery.
func (c *Client) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	data, err := c.GetBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("fetcher: failed to parse HTML: %w", err)
	}
	return doc, nil
}

// Open starts a download and hands the body to the caller, who owns
// closing it. The status code has already been classified.
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	return c.get(ctx, url)
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: create request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: request failed: %w", err)
	}

	if err := classifyStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("%w (GET %s)", err, url)
	}
	return resp.Body, nil
}

// classifyStatus maps a status code onto the retry taxonomy.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code >= 500:
		return fmt.Errorf("%w: status %d", ErrServer, code)
	default:
		return fmt.Errorf("fetcher: unexpected status code %d", code)
	}
}
