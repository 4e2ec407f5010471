// Package fetch defines the strategy contract for turning a URL into
// Markdown content, and the registry of configured strategies consulted
// when fallback chains are built.
package fetch

import (
	"context"
	"sort"

	"github.com/vietddude/recap/internal/core/domain"
)

// Canonical strategy names referenced by fallback chain configuration.
const (
	NamePlain    = "plain"
	NameRender   = "render"
	NameScrape   = "scrape"
	NameDocument = "document"
	NameVideo    = "video"
)

// Strategy fetches content for a URL in one particular way.
type Strategy interface {
	// Name returns the registry name ("plain", "render", ...).
	Name() string

	// Fetch retrieves the URL and returns converted content. Errors
	// carry enough structure for classification.
	Fetch(ctx context.Context, url string) (*domain.Content, error)
}

// Registry maps strategy names to configured instances. Built once at
// startup, read-only afterwards.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates a registry from the given strategies.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Name()] = s
	}
	return r
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Has reports whether a strategy is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.strategies[name]
	return ok
}

// Names returns all registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
