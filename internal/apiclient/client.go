package apiclient

// client.go = REST client for the agency site API: rate limiting, retries,
// bearer auth and error classification.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"devstudio/internal/apperr"
	"devstudio/internal/cache"
	"devstudio/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	userAgent = "devstudio-cli/1.0"

	defaultTimeout    = 10 * time.Second
	defaultRateLimit  = 10
	defaultRateBurst  = 20
	defaultMaxRetries = 3
	initialDelay      = 250 * time.Millisecond
	maxDelay          = 8 * time.Second

	maxErrorBody = 512
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token() (string, bool)
}

type Options struct {
	Timeout    time.Duration
	RateLimit  float64
	RateBurst  int
	MaxRetries int
	Tokens     TokenSource
	Logger     *zap.Logger
	Metrics    *metrics.Collector
	Cache      cache.Cache
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// Client talks to the agency site API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	maxRetries  int
	tokens      TokenSource
	logger      *zap.Logger
	metrics     *metrics.Collector
	cache       cache.Cache
	cacheTTL    time.Duration

	// sleep waits between retries; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = defaultRateBurst
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		maxRetries:  opts.MaxRetries,
		tokens:      opts.Tokens,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		cache:       opts.Cache,
		cacheTTL:    opts.CacheTTL,
		sleep:       sleepCtx,
	}
}

// request describes one API call.
type request struct {
	op       string // user-facing operation name for errors
	method   string
	endpoint string
	route    string // endpoint with ids replaced, used as the metrics label
	params   url.Values
	body     any
	auth     bool
}

// do performs the request and decodes a JSON response into result (nil
// discards the body). GETs are retried on transport errors, 429 and 5xx;
// writes are sent once.
func (c *Client) do(ctx context.Context, r request, result any) error {
	raw, err := c.doRaw(ctx, r)
	if err != nil {
		return err
	}
	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return apperr.Network(r.op, fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}

func (r request) label() string {
	if r.route != "" {
		return r.route
	}
	return r.endpoint
}

func (c *Client) doRaw(ctx context.Context, r request) ([]byte, error) {
	fullURL := c.baseURL + r.endpoint
	if len(r.params) > 0 {
		fullURL += "?" + r.params.Encode()
	}

	var token string
	if r.auth {
		t, ok := c.bearer()
		if !ok {
			return nil, apperr.Auth(r.op, 0)
		}
		token = t
	}

	var payload []byte
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, apperr.Network(r.op, fmt.Errorf("failed to encode request: %w", err))
		}
		payload = data
	}

	retries := 0
	if r.method == http.MethodGet {
		retries = c.maxRetries
	}

	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= retries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, apperr.Network(r.op, fmt.Errorf("rate limiter: %w", err))
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, fullURL, bodyReader)
		if err != nil {
			return nil, apperr.Network(r.op, fmt.Errorf("failed to create request: %w", err))
		}

		requestID := uuid.New().String()
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.metrics.ObserveRequest(r.method, r.label(), 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, apperr.Network(r.op, ctx.Err())
			}
			lastErr = err
			if attempt < retries {
				c.logger.Warn("request failed, retrying",
					zap.String("op", r.op),
					zap.String("request_id", requestID),
					zap.Int("attempt", attempt+1),
					zap.Duration("delay", delay),
					zap.Error(err))
				c.metrics.ObserveRetry(r.label())
				if err := c.sleep(ctx, delay); err != nil {
					return nil, apperr.Network(r.op, err)
				}
				delay = min(delay*2, maxDelay)
				continue
			}
			return nil, apperr.Network(r.op, err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		cost := time.Since(start)
		c.metrics.ObserveRequest(r.method, r.label(), resp.StatusCode, cost)
		c.logger.Debug("api request",
			zap.String("method", r.method),
			zap.String("path", r.endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", requestID),
			zap.Duration("cost", cost))

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg := errorMessage(body)
			if shouldRetry(resp.StatusCode) && attempt < retries {
				lastErr = apperr.FromStatus(r.op, resp.StatusCode, msg)
				if d, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
					delay = d
				}
				c.logger.Warn("server error, retrying",
					zap.String("op", r.op),
					zap.String("request_id", requestID),
					zap.Int("status", resp.StatusCode),
					zap.Int("attempt", attempt+1),
					zap.Duration("delay", delay))
				c.metrics.ObserveRetry(r.label())
				if err := c.sleep(ctx, delay); err != nil {
					return nil, apperr.Network(r.op, err)
				}
				delay = min(delay*2, maxDelay)
				continue
			}
			return nil, apperr.FromStatus(r.op, resp.StatusCode, msg)
		}

		if readErr != nil {
			return nil, apperr.Network(r.op, fmt.Errorf("failed to read response: %w", readErr))
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	var appErr *apperr.Error
	if errors.As(lastErr, &appErr) {
		return nil, lastErr
	}
	return nil, apperr.Network(r.op, fmt.Errorf("request failed after %d attempts: %w", retries+1, lastErr))
}

// cachedGet serves a GET from the response cache when one is configured.
func (c *Client) cachedGet(ctx context.Context, key string, r request, result any) error {
	if c.cache == nil || c.cacheTTL <= 0 {
		return c.do(ctx, r, result)
	}

	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		if err := json.Unmarshal(raw, result); err == nil {
			c.metrics.ObserveCache(key, true)
			return nil
		}
	}
	c.metrics.ObserveCache(key, false)

	raw, err := c.doRaw(ctx, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return apperr.Network(r.op, fmt.Errorf("failed to parse response: %w", err))
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
		c.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (c *Client) bearer() (string, bool) {
	if c.tokens == nil {
		return "", false
	}
	t, ok := c.tokens.Token()
	return t, ok && t != ""
}

// shouldRetry determines if an HTTP status code warrants a retry
func shouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

func retryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return min(time.Duration(secs)*time.Second, maxDelay), true
}

// errorMessage extracts {"message": ...} or {"error": ...} from an error
// body, falling back to the truncated raw text.
func errorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func pageParams(page, size int) url.Values {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	return params
}
