package search

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/deepscout-ai/deepscout/internal/metrics"
)

// Retry policy for transient failures. Workers own their retries: Temporal
// retry is disabled for retrieval activities, so a request that exhausts
// these attempts is reported as a failed work item, not re-executed.
const (
	defaultMaxRetries = 2
	defaultBackoff    = 500 * time.Millisecond
)

var (
	// ErrPermanent marks failures that retrying cannot fix (bad request,
	// empty result set where one is required, missing document).
	ErrPermanent = errors.New("permanent retrieval failure")
)

// Config holds the retrieval collaborator endpoints and limits.
type Config struct {
	WebBaseURL      string
	AcademicBaseURL string
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	// Outbound ceiling across all workers of this process.
	RatePerSecond float64
	Burst         int
	// Per-query result caps by kind.
	WebMaxResults      int
	AcademicMaxResults int
}

// Client issues web and academic searches with bounded transient retry and a
// shared outbound rate limit. Endpoints and result caps can be swapped at
// runtime via Reconfigure; in-flight requests finish against the old ones.
type Client struct {
	limiter    *rate.Limiter
	logger     *zap.Logger
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration

	mu          sync.RWMutex
	web         *resty.Client
	academic    *resty.Client
	webMax      int
	academicMax int
}

// NewClient builds a search client. Zero config fields get defaults suited
// to a single worker process.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultBackoff
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.WebMaxResults <= 0 {
		cfg.WebMaxResults = 5
	}
	if cfg.AcademicMaxResults <= 0 {
		cfg.AcademicMaxResults = 3
	}
	mk := func(base string) *resty.Client {
		return resty.New().SetBaseURL(base).SetTimeout(cfg.Timeout)
	}
	return &Client{
		web:         mk(cfg.WebBaseURL),
		academic:    mk(cfg.AcademicBaseURL),
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		logger:      logger,
		maxRetries:  cfg.MaxRetries,
		backoff:     cfg.RetryBackoff,
		timeout:     cfg.Timeout,
		webMax:      cfg.WebMaxResults,
		academicMax: cfg.AcademicMaxResults,
	}
}

// Reconfigure swaps the search endpoints and result caps without restarting
// the worker. Zero or negative fields keep their current values. Retry and
// timeout settings are fixed at construction.
func (c *Client) Reconfigure(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.WebBaseURL != "" {
		c.web = resty.New().SetBaseURL(cfg.WebBaseURL).SetTimeout(c.timeout)
	}
	if cfg.AcademicBaseURL != "" {
		c.academic = resty.New().SetBaseURL(cfg.AcademicBaseURL).SetTimeout(c.timeout)
	}
	if cfg.WebMaxResults > 0 {
		c.webMax = cfg.WebMaxResults
	}
	if cfg.AcademicMaxResults > 0 {
		c.academicMax = cfg.AcademicMaxResults
	}
	if cfg.RatePerSecond > 0 {
		c.limiter.SetLimit(rate.Limit(cfg.RatePerSecond))
	}
	if cfg.Burst > 0 {
		c.limiter.SetBurst(cfg.Burst)
	}
	c.logger.Info("search client reconfigured",
		zap.String("web_base_url", cfg.WebBaseURL),
		zap.String("academic_base_url", cfg.AcademicBaseURL),
	)
}

func (c *Client) webEndpoint() (*resty.Client, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.web, c.webMax
}

func (c *Client) academicEndpoint() (*resty.Client, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.academic, c.academicMax
}

// doSearch runs one GET with rate limiting and transient retry. The request
// function is re-invoked per attempt so the resty request is fresh each time.
func (c *Client) doSearch(ctx context.Context, label string, attempt func(ctx context.Context) (*resty.Response, error)) (*resty.Response, error) {
	var lastErr error
	for try := 0; try <= c.maxRetries; try++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := attempt(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !isTransportTransient(err) {
				metrics.SearchRequests.WithLabelValues(label, "error").Inc()
				return nil, fmt.Errorf("%s: %w: %v", label, ErrPermanent, err)
			}
			lastErr = err
		case resp.StatusCode() == 429 || resp.StatusCode() >= 500:
			lastErr = fmt.Errorf("%s: HTTP %d", label, resp.StatusCode())
		case resp.IsError():
			metrics.SearchRequests.WithLabelValues(label, "error").Inc()
			return nil, fmt.Errorf("%s: %w: HTTP %d", label, ErrPermanent, resp.StatusCode())
		default:
			metrics.SearchRequests.WithLabelValues(label, "ok").Inc()
			return resp, nil
		}

		if try < c.maxRetries {
			delay := c.backoff * time.Duration(1<<try)
			c.logger.Warn("retrying search request",
				zap.String("endpoint", label),
				zap.Int("attempt", try+1),
				zap.Duration("backoff", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	metrics.SearchRequests.WithLabelValues(label, "error").Inc()
	return nil, fmt.Errorf("%s: retries exhausted: %w", label, lastErr)
}

// isTransportTransient reports whether a transport error is worth retrying.
func isTransportTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	// resty wraps url.Error around dial/refused failures; treat those as
	// transient too since a sibling backend instance may accept the retry.
	return true
}

// IsPermanent reports whether an error should not be retried by any layer.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
