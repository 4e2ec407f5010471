package retrieval

import (
	"fmt"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/fetch"
)

// FallbackChain is the ordered list of strategy names tried for one
// source category.
type FallbackChain []string

// DefaultChains returns the built-in chain for every category.
func DefaultChains() map[domain.SourceCategory][]string {
	return map[domain.SourceCategory][]string{
		domain.CategoryForumSite:       {fetch.NameRender, fetch.NameScrape, fetch.NamePlain},
		domain.CategoryArticlePlatform: {fetch.NameScrape, fetch.NameRender, fetch.NamePlain},
		domain.CategoryVendorDocs:      {fetch.NameScrape, fetch.NameRender},
		domain.CategoryDocumentFile:    {fetch.NameDocument},
		domain.CategoryVideoPlatform:   {fetch.NameVideo, fetch.NameScrape},
		domain.CategoryGeneric:         {fetch.NamePlain, fetch.NameScrape, fetch.NameRender},
	}
}

// BuildChains validates raw per-category chains. Every category must
// have at least one strategy, every name must be registered, and
// duplicates collapse keeping the first occurrence. Configuration
// problems are returned as errors so startup can fail fast.
func BuildChains(
	raw map[domain.SourceCategory][]string,
	registry *fetch.Registry,
) (map[domain.SourceCategory]FallbackChain, error) {
	chains := make(map[domain.SourceCategory]FallbackChain, len(domain.Categories))

	for _, category := range domain.Categories {
		names, ok := raw[category]
		if !ok || len(names) == 0 {
			return nil, fmt.Errorf("no fallback chain configured for category %s", category)
		}

		seen := make(map[string]bool, len(names))
		chain := make(FallbackChain, 0, len(names))
		for _, name := range names {
			if !registry.Has(name) {
				return nil, fmt.Errorf("unknown strategy %q in chain for category %s", name, category)
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			chain = append(chain, name)
		}
		chains[category] = chain
	}

	return chains, nil
}
