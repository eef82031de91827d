package client

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3

	initialBackoff   = 200 * time.Millisecond
	maxBackoff       = 3 * time.Second
	retryableMinCode = http.StatusInternalServerError

	acceptValue         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguageValue = "en-US,en;q=0.5"
)

// defaultTransport is a tuned HTTP transport reused across clients.
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ResponseHeaderTimeout: 10 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// Config holds optional client parameters. Zero values use defaults.
type Config struct {
	Timeout   time.Duration
	Retries   int
	UserAgent string

	// Referer is sent with every request unless overridden per call.
	Referer string
}

// Client wraps http.Client with retry/backoff and the browser-like
// headers the embed host expects.
type Client struct {
	HTTPClient *http.Client
	Retries    int
	UserAgent  string
	Referer    string
}

// New creates a client with the provided config. Zero values use defaults.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetries
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: defaultTransport,
		},
		Retries:   retries,
		UserAgent: cfg.UserAgent,
		Referer:   cfg.Referer,
	}
}

// Get performs a GET request with the default headers and a simple retry
// policy for transient errors (HTTP 5xx or network failures).
func (c *Client) Get(url string) (*http.Response, error) {
	return c.GetWithReferer(url, c.Referer)
}

// GetWithReferer performs a GET with an explicit referer, used during
// playlist verification where the embed page itself is the referer.
func (c *Client) GetWithReferer(url, referer string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", acceptValue)
	req.Header.Set("Accept-Language", acceptLanguageValue)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	retries := c.Retries
	if retries < 1 {
		retries = 1
	}
	var resp *http.Response
	backoff := initialBackoff
	for attempt := 0; attempt < retries; attempt++ {
		resp, err = c.HTTPClient.Do(req)
		if err == nil && resp.StatusCode < retryableMinCode {
			return resp, nil
		}
		// The last attempt's outcome goes to the caller as-is, with the
		// body still readable.
		if attempt == retries-1 {
			break
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBody fetches url and returns the response body, enforcing a 2xx
// status. The body is fully read so the connection can be reused.
func (c *Client) GetBody(url string) ([]byte, error) {
	resp, err := c.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
