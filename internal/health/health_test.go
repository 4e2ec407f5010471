package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/recap/internal/core/domain"
)

// =============================================================================
// Mocks
// =============================================================================

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }

type stubBreakers struct {
	snapshot []domain.BreakerStatus
}

func (s *stubBreakers) Snapshot() []domain.BreakerStatus { return s.snapshot }

type stubSessions struct {
	stats domain.SessionStats
}

func (s *stubSessions) Stats() domain.SessionStats { return s.stats }

func openBreaker(dependency string) domain.BreakerStatus {
	return domain.BreakerStatus{
		Dependency: dependency,
		State:      domain.BreakerStateOpen,
		RetryAt:    time.Now().Add(time.Minute),
	}
}

var testChains = map[domain.SourceCategory][]string{
	domain.CategoryForumSite: {"render", "scrape", "plain"},
	domain.CategoryGeneric:   {"plain", "scrape", "render"},
}

// =============================================================================
// Tests
// =============================================================================

func TestMonitor_Healthy(t *testing.T) {
	monitor := NewMonitor(
		&stubPinger{},
		&stubPinger{},
		&stubBreakers{},
		&stubSessions{stats: domain.SessionStats{ActiveSessions: 2}},
		testChains,
	)

	report := monitor.CheckHealth(context.Background())
	if report.SystemStatus != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.SystemStatus)
	}
	if report.Sessions.ActiveSessions != 2 {
		t.Errorf("sessions not included in report: %+v", report.Sessions)
	}
}

func TestMonitor_DegradedWhenBreakerOpenWithAlternative(t *testing.T) {
	monitor := NewMonitor(
		&stubPinger{},
		&stubPinger{},
		&stubBreakers{snapshot: []domain.BreakerStatus{openBreaker("forum_site:render")}},
		&stubSessions{},
		testChains,
	)

	report := monitor.CheckHealth(context.Background())
	if report.SystemStatus != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.SystemStatus)
	}
}

func TestMonitor_CriticalWhenWholeChainOpen(t *testing.T) {
	monitor := NewMonitor(
		&stubPinger{},
		&stubPinger{},
		&stubBreakers{snapshot: []domain.BreakerStatus{
			openBreaker("forum_site:render"),
			openBreaker("forum_site:scrape"),
			openBreaker("forum_site:plain"),
		}},
		&stubSessions{},
		testChains,
	)

	report := monitor.CheckHealth(context.Background())
	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
}

func TestMonitor_CriticalWhenDatabaseUnreachable(t *testing.T) {
	monitor := NewMonitor(
		&stubPinger{err: errors.New("connection refused")},
		&stubPinger{},
		&stubBreakers{},
		&stubSessions{},
		testChains,
	)

	report := monitor.CheckHealth(context.Background())
	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
	if report.Components["database"].Detail == "" {
		t.Error("database component should carry the error detail")
	}
}

func TestMonitor_RedisOutageOnlyDegrades(t *testing.T) {
	monitor := NewMonitor(
		&stubPinger{},
		&stubPinger{err: errors.New("redis down")},
		&stubBreakers{},
		&stubSessions{},
		testChains,
	)

	report := monitor.CheckHealth(context.Background())
	if report.SystemStatus != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.SystemStatus)
	}
}

func TestMonitor_CachesReportsBetweenChecks(t *testing.T) {
	breakers := &stubBreakers{}
	monitor := NewMonitor(&stubPinger{}, &stubPinger{}, breakers, &stubSessions{}, testChains)

	first := monitor.CheckHealth(context.Background())

	// State changes within the rate-limit window are not observed.
	breakers.snapshot = []domain.BreakerStatus{openBreaker("generic:plain")}
	second := monitor.CheckHealth(context.Background())

	if first != second {
		t.Error("expected the cached report within the 10s window")
	}
}
