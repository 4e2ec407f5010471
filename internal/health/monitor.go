package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/retrieval/routing"
)

// Pinger checks liveness of an external dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerSnapshotter exposes the current state of every breaker.
type BreakerSnapshotter interface {
	Snapshot() []domain.BreakerStatus
}

// SessionStatsProvider exposes session manager accounting.
type SessionStatsProvider interface {
	Stats() domain.SessionStats
}

// Monitor aggregates health status from various system components.
type Monitor struct {
	db       Pinger // nil when no database is configured
	redis    Pinger // nil when redis is disabled
	breakers BreakerSnapshotter
	sessions SessionStatsProvider
	chains   map[domain.SourceCategory][]string

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport *HealthReport
}

// NewMonitor creates a new health monitor. chains maps each source
// category to its ordered strategy names, used to decide whether an
// open breaker still has a closed alternative.
func NewMonitor(
	db Pinger,
	redisPinger Pinger,
	breakers BreakerSnapshotter,
	sessions SessionStatsProvider,
	chains map[domain.SourceCategory][]string,
) *Monitor {
	return &Monitor{
		db:       db,
		redis:    redisPinger,
		breakers: breakers,
		sessions: sessions,
		chains:   chains,
	}
}

// CheckHealth evaluates all components. Results are cached for 10s to
// keep probes cheap under scrape pressure.
func (m *Monitor) CheckHealth(ctx context.Context) *HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport != nil {
		return m.lastReport
	}

	report := &HealthReport{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth),
	}

	// 1. Database: configured but unreachable is critical.
	if m.db != nil {
		component := ComponentHealth{Name: "database", Status: StatusHealthy}
		if err := m.db.Ping(ctx); err != nil {
			component.Status = StatusCritical
			component.Detail = err.Error()
		}
		report.Components["database"] = component
	}

	// 2. Redis: features degrade without it, never critical.
	if m.redis != nil {
		component := ComponentHealth{Name: "redis", Status: StatusHealthy}
		if err := m.redis.Ping(ctx); err != nil {
			component.Status = StatusDegraded
			component.Detail = err.Error()
		}
		report.Components["redis"] = component
	}

	// 3. Breakers: any open breaker degrades; a category whose whole
	// chain is open has no way to serve requests and is critical.
	report.Breakers = m.breakers.Snapshot()
	open := make(map[string]bool)
	for _, breaker := range report.Breakers {
		if breaker.State == domain.BreakerStateOpen {
			open[breaker.Dependency] = true
		}
	}

	breakerComponent := ComponentHealth{Name: "breakers", Status: StatusHealthy}
	if len(open) > 0 {
		breakerComponent.Status = StatusDegraded
	}
	for category, chain := range m.chains {
		if len(chain) == 0 {
			continue
		}
		allOpen := true
		for _, strategy := range chain {
			if !open[routing.DependencyKey(category, strategy)] {
				allOpen = false
				break
			}
		}
		if allOpen {
			breakerComponent.Status = StatusCritical
			breakerComponent.Detail = "no closed strategy left for category " + string(category)
			break
		}
	}
	report.Components["breakers"] = breakerComponent

	// 4. Sessions
	if m.sessions != nil {
		report.Sessions = m.sessions.Stats()
	}

	// Aggregate status (worst case wins)
	for _, component := range report.Components {
		if component.Status == StatusCritical {
			report.SystemStatus = StatusCritical
			break
		}
		if component.Status == StatusDegraded {
			report.SystemStatus = StatusDegraded
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
