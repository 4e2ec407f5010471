// Package content converts raw fetched payloads into the bounded
// Markdown handed to summarization and chat.
package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMaxRunes bounds converted Markdown so a single page cannot
// blow the summarization prompt budget.
const DefaultMaxRunes = 8000

var (
	base64ImagePattern = regexp.MustCompile(`!\[[^\]]*\]\(data:image/[^)]+\)`)
	base64DataPattern  = regexp.MustCompile(`data:image/[a-zA-Z+.-]+;base64,[A-Za-z0-9+/=]+`)
	blankLinePattern   = regexp.MustCompile(`\n{3,}`)
)

// Converter sanitizes HTML and renders it as Markdown.
type Converter struct {
	policy   *bluemonday.Policy
	markdown *converter.Converter
	maxRunes int
}

// NewConverter creates a converter capping output at maxRunes
// (DefaultMaxRunes when zero).
func NewConverter(maxRunes int) *Converter {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}

	// UGC policy plus img/src, so inline data URIs survive
	// sanitization and get stripped in one place afterwards.
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("src", "alt").OnElements("img")

	return &Converter{
		policy: policy,
		markdown: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		maxRunes: maxRunes,
	}
}

// FromHTML sanitizes markup and converts it to bounded Markdown. The
// title comes from <title>, falling back to the first heading.
func (c *Converter) FromHTML(rawHTML, baseURL string) (string, string, error) {
	title := Title(rawHTML)

	clean := c.policy.Sanitize(rawHTML)
	markdown, err := c.markdown.ConvertString(clean, converter.WithDomain(baseURL))
	if err != nil {
		return title, "", fmt.Errorf("failed to convert HTML: %w", err)
	}

	markdown = StripBase64Images(markdown)
	markdown = blankLinePattern.ReplaceAllString(markdown, "\n\n")
	markdown = strings.TrimSpace(markdown)
	return title, c.Truncate(markdown), nil
}

// Truncate caps text at the converter's rune budget, appending a
// marker when something was dropped.
func (c *Converter) Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= c.maxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:c.maxRunes])) + "\n\n…（內容過長，已截斷）"
}

// StripBase64Images removes inline base64 image payloads, which are
// useless to a language model and can dwarf the actual text.
func StripBase64Images(markdown string) string {
	markdown = base64ImagePattern.ReplaceAllString(markdown, "")
	markdown = base64DataPattern.ReplaceAllString(markdown, "")
	return markdown
}

// Title extracts the document title, falling back to the first h1.
func Title(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	if title := findTitle(doc); title != "" {
		return title
	}
	return findFirstHeading(doc)
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}

func findFirstHeading(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.H1 {
		return collectText(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if heading := findFirstHeading(c); heading != "" {
			return heading
		}
	}
	return ""
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
