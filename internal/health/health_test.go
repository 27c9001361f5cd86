package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubChecker struct {
	name     string
	status   CheckStatus
	critical bool
	delay    time.Duration
}

func (s *stubChecker) Name() string           { return s.name }
func (s *stubChecker) IsCritical() bool       { return s.critical }
func (s *stubChecker) Timeout() time.Duration { return 50 * time.Millisecond }

func (s *stubChecker) Check(ctx context.Context) CheckResult {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
		}
	}
	return CheckResult{
		Status:    s.status,
		Component: s.name,
		Critical:  s.critical,
		Timestamp: time.Now(),
	}
}

func TestManagerAllHealthy(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	require.NoError(t, m.RegisterChecker(&stubChecker{name: "a", status: StatusHealthy, critical: true}))
	require.NoError(t, m.RegisterChecker(&stubChecker{name: "b", status: StatusHealthy}))

	overall := m.GetOverallHealth(context.Background())
	assert.Equal(t, StatusHealthy, overall.Status)
	assert.True(t, overall.Ready)
}

func TestManagerCriticalFailure(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	require.NoError(t, m.RegisterChecker(&stubChecker{name: "redis", status: StatusUnhealthy, critical: true}))
	require.NoError(t, m.RegisterChecker(&stubChecker{name: "llm", status: StatusHealthy}))

	overall := m.GetOverallHealth(context.Background())
	assert.Equal(t, StatusUnhealthy, overall.Status)
	assert.False(t, overall.Ready)
	assert.False(t, m.IsReady(context.Background()))
}

func TestManagerNonCriticalFailureDegrades(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	require.NoError(t, m.RegisterChecker(&stubChecker{name: "llm", status: StatusUnhealthy}))

	overall := m.GetOverallHealth(context.Background())
	assert.Equal(t, StatusDegraded, overall.Status)
	assert.True(t, overall.Ready)
}

func TestManagerCheckTimeout(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	require.NoError(t, m.RegisterChecker(&stubChecker{
		name: "slow", status: StatusHealthy, critical: true, delay: time.Second,
	}))

	detailed := m.GetDetailedHealth(context.Background())
	res := detailed.Components["slow"]
	assert.Equal(t, StatusUnhealthy, res.Status)
}

func TestManagerDuplicateRegistration(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	require.NoError(t, m.RegisterChecker(&stubChecker{name: "a"}))
	assert.Error(t, m.RegisterChecker(&stubChecker{name: "a"}))
}

type stubPinger struct{ err error }

func (p *stubPinger) Ping(ctx context.Context) error { return p.err }

func TestRedisHealthChecker(t *testing.T) {
	ok := NewRedisHealthChecker(&stubPinger{}, zaptest.NewLogger(t))
	res := ok.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)

	down := NewRedisHealthChecker(&stubPinger{err: fmt.Errorf("connection refused")}, zaptest.NewLogger(t))
	res = down.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Contains(t, res.Error, "connection refused")
}

func TestLLMServiceHealthChecker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewLLMServiceHealthChecker(srv.URL, zaptest.NewLogger(t))
	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.False(t, c.IsCritical())
}

func TestHealthEndpoints(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	require.NoError(t, m.RegisterChecker(&stubChecker{name: "a", status: StatusHealthy, critical: true}))

	h := NewHTTPHandler(m, zaptest.NewLogger(t))
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	for _, path := range []string{"/health", "/health/ready", "/health/live", "/health/detailed"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestHealthEndpointUnhealthy(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	require.NoError(t, m.RegisterChecker(&stubChecker{name: "a", status: StatusUnhealthy, critical: true}))

	h := NewHTTPHandler(m, zaptest.NewLogger(t))
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
