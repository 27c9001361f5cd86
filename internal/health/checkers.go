package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

// Pinger is anything with Redis-style connectivity probing (the session
// manager exposes this for its backing store).
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisHealthChecker checks session store connectivity.
type RedisHealthChecker struct {
	pinger  Pinger
	logger  *zap.Logger
	timeout time.Duration
}

func NewRedisHealthChecker(pinger Pinger, logger *zap.Logger) *RedisHealthChecker {
	return &RedisHealthChecker{pinger: pinger, logger: logger, timeout: 5 * time.Second}
}

func (r *RedisHealthChecker) Name() string           { return "redis" }
func (r *RedisHealthChecker) IsCritical() bool       { return true }
func (r *RedisHealthChecker) Timeout() time.Duration { return r.timeout }

func (r *RedisHealthChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{Component: "redis", Critical: true, Timestamp: start}

	err := r.pinger.Ping(ctx)
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		result.Message = "Redis ping failed"
		return result
	}
	if result.Duration > 100*time.Millisecond {
		result.Status = StatusDegraded
		result.Message = "Redis responding but with high latency"
	} else {
		result.Status = StatusHealthy
		result.Message = "Redis healthy"
	}
	result.Details = map[string]interface{}{"latency_ms": result.Duration.Milliseconds()}
	return result
}

// LLMServiceHealthChecker checks the LLM service's health endpoint. The
// model side is non-critical for readiness; tasks fail fast on their own
// when it is down.
type LLMServiceHealthChecker struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	timeout time.Duration
}

func NewLLMServiceHealthChecker(baseURL string, logger *zap.Logger) *LLMServiceHealthChecker {
	return &LLMServiceHealthChecker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

func (l *LLMServiceHealthChecker) Name() string           { return "llm_service" }
func (l *LLMServiceHealthChecker) IsCritical() bool       { return false }
func (l *LLMServiceHealthChecker) Timeout() time.Duration { return l.timeout }

func (l *LLMServiceHealthChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{Component: "llm_service", Timestamp: start}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/health", nil)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}
	resp, err := l.client.Do(req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		result.Message = "LLM service unreachable"
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Status = StatusUnhealthy
		result.Error = fmt.Sprintf("status %d", resp.StatusCode)
		result.Message = "LLM service unhealthy"
		return result
	}
	result.Status = StatusHealthy
	result.Message = "LLM service healthy"
	return result
}

// TemporalHealthChecker checks the workflow engine frontend.
type TemporalHealthChecker struct {
	client  client.Client
	logger  *zap.Logger
	timeout time.Duration
}

func NewTemporalHealthChecker(c client.Client, logger *zap.Logger) *TemporalHealthChecker {
	return &TemporalHealthChecker{client: c, logger: logger, timeout: 5 * time.Second}
}

func (t *TemporalHealthChecker) Name() string           { return "temporal" }
func (t *TemporalHealthChecker) IsCritical() bool       { return true }
func (t *TemporalHealthChecker) Timeout() time.Duration { return t.timeout }

func (t *TemporalHealthChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{Component: "temporal", Critical: true, Timestamp: start}

	_, err := t.client.CheckHealth(ctx, &client.CheckHealthRequest{})
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		result.Message = "Temporal frontend unreachable"
		return result
	}
	result.Status = StatusHealthy
	result.Message = "Temporal healthy"
	return result
}
