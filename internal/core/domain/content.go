package domain

import "time"

// SourceCategory classifies a URL by the kind of site it points at.
// Assigned once per request by the classifier, never mutated.
type SourceCategory string

const (
	CategoryForumSite       SourceCategory = "forum_site"
	CategoryArticlePlatform SourceCategory = "article_platform"
	CategoryVendorDocs      SourceCategory = "vendor_docs"
	CategoryDocumentFile    SourceCategory = "document_file"
	CategoryVideoPlatform   SourceCategory = "video_platform"
	CategoryGeneric         SourceCategory = "generic"
)

// Categories lists every known category, in a fixed order.
var Categories = []SourceCategory{
	CategoryForumSite,
	CategoryArticlePlatform,
	CategoryVendorDocs,
	CategoryDocumentFile,
	CategoryVideoPlatform,
	CategoryGeneric,
}

// Content is the result of a successful retrieval, already converted
// to Markdown.
type Content struct {
	URL       string
	Title     string
	Markdown  string
	Strategy  string
	FetchedAt time.Time
}

// SummaryMode selects the summarization prompt template.
type SummaryMode string

const (
	SummaryConcise   SummaryMode = "concise"
	SummaryDetailed  SummaryMode = "detailed"
	SummaryTechnical SummaryMode = "technical"
)
