package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager runs registered health checks on demand and aggregates their
// results into an overall service status.
type Manager struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	logger   *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		checkers: make(map[string]Checker),
		logger:   logger,
	}
}

// RegisterChecker registers a health check under its name.
func (m *Manager) RegisterChecker(checker Checker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := checker.Name()
	if _, exists := m.checkers[name]; exists {
		return fmt.Errorf("health checker %q already registered", name)
	}
	m.checkers[name] = checker
	m.logger.Info("Health checker registered", zap.String("name", name))
	return nil
}

// UnregisterChecker removes a health check.
func (m *Manager) UnregisterChecker(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkers, name)
}

// GetDetailedHealth runs every check and reports per-component results.
func (m *Manager) GetDetailedHealth(ctx context.Context) DetailedHealth {
	start := time.Now()

	m.mu.RLock()
	checkers := make([]Checker, 0, len(m.checkers))
	for _, c := range m.checkers {
		checkers = append(checkers, c)
	}
	m.mu.RUnlock()

	components := make(map[string]CheckResult, len(checkers))
	var wg sync.WaitGroup
	var resMu sync.Mutex
	for _, c := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			res := m.runSingleCheck(ctx, c)
			resMu.Lock()
			components[c.Name()] = res
			resMu.Unlock()
		}(c)
	}
	wg.Wait()

	summary := summarize(components)
	overall := calculateOverallStatus(components, summary)
	overall.Duration = time.Since(start)

	return DetailedHealth{
		Overall:    overall,
		Components: components,
		Summary:    summary,
		Timestamp:  time.Now(),
	}
}

// GetOverallHealth runs every check and reports just the aggregate.
func (m *Manager) GetOverallHealth(ctx context.Context) OverallHealth {
	return m.GetDetailedHealth(ctx).Overall
}

// IsReady reports whether the service can serve requests: every critical
// dependency must be reachable.
func (m *Manager) IsReady(ctx context.Context) bool {
	return m.GetOverallHealth(ctx).Ready
}

// IsLive reports process liveness. The process handling the request is
// alive by definition; this exists for probe symmetry.
func (m *Manager) IsLive(ctx context.Context) bool {
	return true
}

func (m *Manager) runSingleCheck(ctx context.Context, checker Checker) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, checker.Timeout())
	defer cancel()

	done := make(chan CheckResult, 1)
	go func() {
		done <- checker.Check(checkCtx)
	}()

	select {
	case res := <-done:
		return res
	case <-checkCtx.Done():
		return CheckResult{
			Status:    StatusUnhealthy,
			Error:     "health check timed out",
			Component: checker.Name(),
			Critical:  checker.IsCritical(),
			Duration:  checker.Timeout(),
			Timestamp: time.Now(),
		}
	}
}

func summarize(components map[string]CheckResult) HealthSummary {
	s := HealthSummary{Total: len(components)}
	for _, res := range components {
		switch res.Status {
		case StatusHealthy:
			s.Healthy++
		case StatusDegraded:
			s.Degraded++
		default:
			s.Unhealthy++
		}
		if res.Critical {
			s.Critical++
		} else {
			s.NonCritical++
		}
	}
	return s
}

func calculateOverallStatus(components map[string]CheckResult, summary HealthSummary) OverallHealth {
	overall := OverallHealth{
		Status:    StatusHealthy,
		Message:   "all checks passing",
		Timestamp: time.Now(),
		Ready:     true,
		Live:      true,
	}
	for name, res := range components {
		if res.Status == StatusUnhealthy && res.Critical {
			overall.Status = StatusUnhealthy
			overall.Message = fmt.Sprintf("critical component %s unhealthy", name)
			overall.Ready = false
			return overall
		}
		if res.Status != StatusHealthy {
			overall.Status = StatusDegraded
			overall.Degraded = true
			overall.Message = fmt.Sprintf("component %s degraded", name)
		}
	}
	return overall
}
