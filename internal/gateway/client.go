// Package gateway fetches passages from BibleGateway and cleans the returned
// HTML. It is the only package that knows the upstream URL layout and markup.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"derrclan.com/bible-passage/internal/reference"
)

const (
	// DefaultBaseURL is the BibleGateway passage lookup page.
	DefaultBaseURL = "https://www.biblegateway.com/passage/"
	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout = 10 * time.Second

	defaultUserAgent = "Mozilla/5.0 (compatible; bible-passage/1.0)"
	maxPageSize      = 4 << 20
)

// Failure classes. Every error returned by Client.Passage wraps exactly one.
var (
	ErrTimeout     = errors.New("timeout")
	ErrNotFound    = errors.New("not_found")
	ErrUnavailable = errors.New("upstream_error")
	ErrFormat      = errors.New("unexpected upstream page structure")
)

// Class returns the failure class reported to callers for err.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return ErrTimeout.Error()
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	default:
		return ErrUnavailable.Error()
	}
}

// Client looks up passages on BibleGateway. It issues exactly one request per
// lookup and never retries.
type Client struct {
	baseURL    string
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for upstream requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent header sent upstream.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for baseURL. Zero values select DefaultBaseURL
// and DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:   baseURL,
		timeout:   timeout,
		userAgent: defaultUserAgent,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c
}

// Passage fetches ref in the given translation and returns the cleaned text.
func (c *Client) Passage(ctx context.Context, ref reference.Reference, translation string) (string, error) {
	page, err := c.fetchPage(ctx, ref.String(), translation)
	if err != nil {
		return "", err
	}
	text, err := Clean(page)
	if err != nil {
		return "", fmt.Errorf("%w: %s (%s): %w", ErrUnavailable, ref, translation, err)
	}
	return text, nil
}

// PassageURL returns the upstream URL for a lookup.
func (c *Client) PassageURL(search, translation string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", c.baseURL, err)
	}
	params := u.Query()
	params.Set("search", search)
	params.Set("version", translation)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func (c *Client) fetchPage(ctx context.Context, search, translation string) (string, error) {
	apiURL, err := c.PassageURL(search, translation)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %w", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: fetch %q: %w", ErrTimeout, search, err)
		}
		return "", fmt.Errorf("%w: fetch %q: %w", ErrUnavailable, search, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("upstream response",
		zap.String("search", search),
		zap.String("version", translation),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: upstream returned status %d for %q", ErrNotFound, resp.StatusCode, search)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("%w: upstream returned status %d for %q", ErrUnavailable, resp.StatusCode, search)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: read %q: %w", ErrTimeout, search, err)
		}
		return "", fmt.Errorf("%w: read %q: %w", ErrUnavailable, search, err)
	}
	return string(body), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
