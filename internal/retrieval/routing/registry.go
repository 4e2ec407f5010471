package routing

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vietddude/recap/internal/core/domain"
)

// DependencyKey builds the breaker key for a strategy within a source
// category. The same strategy gets an independent breaker per category
// so one misbehaving site class cannot blind the others.
func DependencyKey(category domain.SourceCategory, strategy string) string {
	return fmt.Sprintf("%s:%s", category, strategy)
}

// BreakerRegistry creates and hands out breakers keyed by dependency.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	fetch    BreakerConfig
	ai       BreakerConfig
}

// NewBreakerRegistry creates a registry with separate configs for
// fetch strategies and AI backends.
func NewBreakerRegistry(fetch, ai BreakerConfig) *BreakerRegistry {
	return &BreakerRegistry{
		breakers: make(map[string]*Breaker),
		fetch:    fetch,
		ai:       ai,
	}
}

// For returns the breaker for a dependency, creating it closed on
// first use. Gemini backend keys get the AI config; everything else
// gets the fetch config.
func (r *BreakerRegistry) For(dependency string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[dependency]; ok {
		return b
	}

	config := r.fetch
	if strings.HasPrefix(dependency, "gemini:") {
		config = r.ai
	}
	b := NewBreaker(dependency, config)
	r.breakers[dependency] = b
	return b
}

// Snapshot returns the status of every breaker created so far, sorted
// by dependency key.
func (r *BreakerRegistry) Snapshot() []domain.BreakerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]domain.BreakerStatus, 0, len(r.breakers))
	for _, b := range r.breakers {
		statuses = append(statuses, b.Status())
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Dependency < statuses[j].Dependency
	})
	return statuses
}
