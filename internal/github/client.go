// Package github talks to the GitHub Classroom and Actions REST APIs.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/dkoosis/gradefetch/internal/version"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com"

const (
	apiVersion     = "2022-11-28"
	defaultTimeout = 2 * time.Minute
	maxErrorBody   = 500
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	RateLimit  float64 // requests per second; <= 0 disables limiting
	Burst      int
	RetryMax   int
	Timeout    time.Duration
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Client is a GitHub REST client. It is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// NotFound reports whether the response was a 404.
func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// New creates a client. Transient failures (429, 5xx, connection errors)
// are retried with backoff honouring Retry-After; every attempt waits on
// the rate limiter.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	c := &Client{
		baseURL: strings.TrimRight(firstNonEmpty(opts.BaseURL, DefaultBaseURL), "/"),
		token:   opts.Token,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	if opts.RetryMax > 0 {
		rc.RetryMax = opts.RetryMax
	}
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = logger
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	rc.HTTPClient = httpClient
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if err := c.limiter.Wait(req.Context()); err != nil {
			logger.Debug("rate limiter wait aborted", "url", req.URL.String(), "attempt", attempt, "err", err)
		}
	}
	// Hand the final response back so non-2xx bodies surface as APIError.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.http = rc
	return c
}

// get decodes the JSON body of GET path into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	body, err := c.getRaw(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w (body: %s)", path, err, truncate(string(body), maxErrorBody))
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + path
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", "gradefetch/"+version.Version)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	c.logger.Debug("github request", "url", url, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, URL: url, Body: truncate(string(body), maxErrorBody)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
