// Package httpclient provides the HTTP fetcher used by collector plugins:
// retries with backoff, a shared rate limit and a circuit breaker per host.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
	"reconbus/internal/platform/logx"
	"reconbus/internal/platform/resilience"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "reconbus/1.0"

// Config holds the configuration for the HTTP client.
type Config struct {
	// Timeout is the per-attempt request timeout.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts.
	// Default: 3
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled on each retry.
	// Default: 1 second
	RetryBackoff time.Duration

	// MaxRetryBackoff caps the backoff between retries.
	// Default: 30 seconds
	MaxRetryBackoff time.Duration

	// UserAgent is the User-Agent header value.
	UserAgent string

	// RateLimit is the maximum requests per second across all hosts.
	// 0 means no rate limiting.
	RateLimit float64

	// RateLimitBurst is the burst size for rate limiting.
	// Default: 1
	RateLimitBurst int

	// MaxBodyBytes truncates response bodies.
	// Default: 10 MiB
	MaxBodyBytes int64

	// Breaker configures the per-host circuit breakers.
	Breaker resilience.BreakerConfig
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		RetryBackoff:    1 * time.Second,
		MaxRetryBackoff: 30 * time.Second,
		UserAgent:       DefaultUserAgent,
		RateLimitBurst:  1,
		MaxBodyBytes:    10 << 20,
		Breaker:         resilience.DefaultBreakerConfig(),
	}
}

// Client implements ports.Fetcher.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	breakers   *resilience.Group
	logger     logx.Logger
	config     Config
}

// New creates a client. Zero fields take their default.
func New(config Config, logger logx.Logger) *Client {
	def := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = def.RetryBackoff
	}
	if config.MaxRetryBackoff <= 0 {
		config.MaxRetryBackoff = def.MaxRetryBackoff
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.UserAgent == "" {
		config.UserAgent = def.UserAgent
	}
	if config.RateLimitBurst <= 0 {
		config.RateLimitBurst = 1
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = def.MaxBodyBytes
	}
	if logger == nil {
		logger = logx.NewDiscard()
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimitBurst)
	}

	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    limiter,
		breakers:   resilience.NewGroup(config.Breaker),
		logger:     logger.With("component", "httpclient"),
		config:     config,
	}
}

// Fetch performs a GET. Any final status is returned as a response; only
// transport failures, exhausted retries on 429/5xx gateway statuses and open
// circuits are errors.
func (c *Client) Fetch(ctx context.Context, rawURL string, headers map[string]string) (*ports.FetchResponse, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "invalid url %q", rawURL)
	}
	host := strings.ToLower(u.Hostname())

	var resp *ports.FetchResponse
	err = c.breakers.Get(host).Execute(func() error {
		var reqErr error
		resp, reqErr = c.request(ctx, rawURL, headers)
		return reqErr
	}, errors.IsTransient)

	if errors.IsCircuitOpen(err) {
		c.logger.Debug("circuit open, request skipped", "host", host, "url", rawURL)
		return nil, errors.Wrapf(err, "host %s", host)
	}
	return resp, err
}

// BreakerStates returns the circuit state per host seen so far.
func (c *Client) BreakerStates() map[string]resilience.State {
	return c.breakers.States()
}

func (c *Client) request(ctx context.Context, rawURL string, headers map[string]string) (*ports.FetchResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, errors.Wrap(err, "rate limit wait failed")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "failed to create request for %s: %v", rawURL, err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		c.logger.Debug("HTTP request",
			"url", rawURL,
			"attempt", attempt+1,
			"max_attempts", c.config.MaxRetries+1,
		)

		start := time.Now()
		httpResp, err := c.httpClient.Do(req)
		duration := time.Since(start)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Warn("HTTP request failed",
				"url", rawURL,
				"attempt", attempt+1,
				"error", err.Error(),
				"duration_ms", duration.Milliseconds(),
			)
			lastErr = classifyTransportError(err)
		} else {
			resp, readErr := c.readResponse(rawURL, httpResp)
			if readErr != nil {
				lastErr = readErr
			} else if !isRetryableStatus(resp.StatusCode) {
				c.logger.Debug("HTTP response received",
					"url", rawURL,
					"status", resp.StatusCode,
					"duration_ms", duration.Milliseconds(),
				)
				return resp, nil
			} else {
				lastErr = CheckStatus(resp.StatusCode)
				c.logger.Warn("HTTP request returned retryable status",
					"url", rawURL,
					"status", resp.StatusCode,
					"attempt", attempt+1,
				)
			}
		}

		if attempt == c.config.MaxRetries {
			break
		}
		if err := c.backoff(ctx, attempt); err != nil {
			return nil, errors.Wrap(err, "backoff interrupted")
		}
	}

	return nil, errors.Wrapf(lastErr, "request to %s failed after %d attempts", rawURL, c.config.MaxRetries+1)
}

func (c *Client) readResponse(rawURL string, httpResp *http.Response) (*ports.FetchResponse, error) {
	defer httpResp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, c.config.MaxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConnectionFailed, "failed to read body of %s: %v", rawURL, err)
	}
	return &ports.FetchResponse{
		URL:        httpResp.Request.URL.String(),
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

// backoff implements capped exponential backoff.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	backoff := c.config.RetryBackoff * time.Duration(math.Pow(2, float64(attempt)))
	if backoff > c.config.MaxRetryBackoff {
		backoff = c.config.MaxRetryBackoff
	}

	c.logger.Debug("Backing off before retry",
		"attempt", attempt+1,
		"backoff_ms", backoff.Milliseconds(),
	)

	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable,
		http.StatusGatewayTimeout, http.StatusBadGateway:
		return true
	default:
		return false
	}
}

func classifyTransportError(err error) error {
	if t, ok := err.(interface{ Timeout() bool }); ok && t.Timeout() {
		return errors.Wrapf(errors.ErrTimeout, "%v", err)
	}
	return errors.Wrapf(errors.ErrConnectionFailed, "%v", err)
}

// CheckStatus maps an HTTP status code to a platform error; 2xx is nil.
func CheckStatus(code int) error {
	if code >= 200 && code < 300 {
		return nil
	}

	switch code {
	case http.StatusTooManyRequests:
		return errors.ErrRateLimit
	case http.StatusNotFound:
		return errors.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.ErrUnauthorized
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusBadGateway:
		return errors.ErrServiceUnavailable
	default:
		return errors.Errorf("HTTP %d: %s", code, http.StatusText(code))
	}
}

// String returns a human-readable representation of the client configuration.
func (c *Client) String() string {
	return fmt.Sprintf("HTTPClient{timeout=%s, max_retries=%d, rate_limit=%.1f/s}",
		c.config.Timeout,
		c.config.MaxRetries,
		c.config.RateLimit,
	)
}
