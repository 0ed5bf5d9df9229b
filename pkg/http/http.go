package http

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"github.com/kasuboski/moviez/pkg/logger"
	"golang.org/x/exp/rand"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultMaxRetries  = 3
	DefaultBaseBackoff = time.Millisecond * 500
	DefaultTimeout     = time.Second * 15
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewSessionClient returns an http.Client that keeps cookies between requests so
// a session cookie set by a login accompanies every later call
func NewSessionClient(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Jar:     jar,
		Timeout: timeout,
	}, nil
}

type RateLimitedClient struct {
	client      HTTPClient
	baseBackoff time.Duration
	maxRetries  int
	jitter      func(time.Duration) time.Duration
}

// ClientOption is a function that can be used to configure a RateLimitedClient
type ClientOption func(*RateLimitedClient)

// NewRateLimitedClient creates a client that retries requests answered with 429
func NewRateLimitedClient(opts ...ClientOption) *RateLimitedClient {
	c := &RateLimitedClient{
		client:      http.DefaultClient,
		maxRetries:  DefaultMaxRetries,
		baseBackoff: DefaultBaseBackoff,
		jitter:      randomJitter,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithMaxRetries sets the maximum number of attempts for a request
func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *RateLimitedClient) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
	}
}

// WithBaseBackoff sets the base backoff time for the client
func WithBaseBackoff(baseBackoff time.Duration) ClientOption {
	return func(c *RateLimitedClient) {
		c.baseBackoff = baseBackoff
	}
}

// WithHTTPClient sets the http client to use for the client
func WithHTTPClient(client HTTPClient) ClientOption {
	return func(c *RateLimitedClient) {
		c.client = client
	}
}

// WithoutJitter makes backoff delays deterministic
func WithoutJitter() ClientOption {
	return func(c *RateLimitedClient) {
		c.jitter = func(time.Duration) time.Duration { return 0 }
	}
}

// Do executes the HTTP request while respecting 429 rate limits.
// Requests with a body are only retried when the body can be recreated.
// If the maximum number of retries is reached the last response is returned with an error.
func (c *RateLimitedClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	log := logger.FromCtx(ctx)

	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		canRetry := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
		if attempt+1 >= c.maxRetries || !canRetry {
			return resp, fmt.Errorf("rate limit exceeded after %d retries", attempt+1)
		}

		retryAfter := c.getRetryAfter(resp, attempt)
		resp.Body.Close()
		log.Debugw("rate limited, backing off", "url", req.URL.String(), "attempt", attempt, "wait", retryAfter)

		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// getRetryAfter calculates the appropriate retry delay
func (c *RateLimitedClient) getRetryAfter(resp *http.Response, attempt int) time.Duration {
	retryAfterHeader := resp.Header.Get("Retry-After")

	if retryAfterHeader != "" {
		seconds, err := strconv.Atoi(retryAfterHeader)
		if err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// 2^n backoff
	expBackoff := time.Duration(1<<attempt) * c.baseBackoff

	return expBackoff + c.jitter(c.baseBackoff)
}

// randomJitter staggers the backoff to avoid a thundering herd
func randomJitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(base)))
}
