package retrieval

import (
	"net/url"
	"strings"

	"github.com/vietddude/recap/internal/core/domain"
)

// Rule matches URLs against host and path criteria. Every non-empty
// criterion must hold; a rule with no criteria matches nothing.
type Rule struct {
	Category     domain.SourceCategory
	Hosts        []string // exact hostname match
	HostSuffixes []string // hostname equals the suffix or ends with "." + suffix
	PathPrefix   string
	PathSuffix   string
}

func (r Rule) matches(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)

	matched := false
	if len(r.Hosts) > 0 || len(r.HostSuffixes) > 0 {
		ok := false
		for _, h := range r.Hosts {
			if host == h {
				ok = true
				break
			}
		}
		if !ok {
			for _, suffix := range r.HostSuffixes {
				if host == suffix || strings.HasSuffix(host, "."+suffix) {
					ok = true
					break
				}
			}
		}
		if !ok {
			return false
		}
		matched = true
	}
	if r.PathPrefix != "" {
		if !strings.HasPrefix(path, strings.ToLower(r.PathPrefix)) {
			return false
		}
		matched = true
	}
	if r.PathSuffix != "" {
		if !strings.HasSuffix(path, strings.ToLower(r.PathSuffix)) {
			return false
		}
		matched = true
	}
	return matched
}

// DefaultRules returns the built-in classification rules, in match
// order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category:     domain.CategoryForumSite,
			HostSuffixes: []string{"ptt.cc"},
			PathPrefix:   "/bbs/",
		},
		{
			Category:     domain.CategoryArticlePlatform,
			HostSuffixes: []string{"medium.com", "substack.com"},
		},
		{
			Category: domain.CategoryVendorDocs,
			Hosts: []string{
				"openai.com", "www.openai.com", "platform.openai.com",
				"docs.anthropic.com",
			},
		},
		{
			Category: domain.CategoryVideoPlatform,
			Hosts: []string{
				"youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be",
			},
		},
		{
			Category:   domain.CategoryDocumentFile,
			PathSuffix: ".pdf",
		},
	}
}

// Classifier assigns a source category to each URL by first matching
// rule. Unmatched and unparseable URLs fall back to the generic
// category.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier from an ordered rule list.
func NewClassifier(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the source category for a URL.
func (c *Classifier) Classify(rawURL string) domain.SourceCategory {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.CategoryGeneric
	}
	for _, rule := range c.rules {
		if rule.matches(u) {
			return rule.Category
		}
	}
	return domain.CategoryGeneric
}

// RewriteURL applies pre-classification rewrites. Twitter/X locators
// are swapped for the fxtwitter mirror, which serves post data without
// a login wall.
func RewriteURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	switch strings.ToLower(u.Hostname()) {
	case "twitter.com", "www.twitter.com", "mobile.twitter.com", "x.com", "www.x.com":
		u.Scheme = "https"
		u.Host = "api.fxtwitter.com"
		return u.String()
	}
	return rawURL
}
