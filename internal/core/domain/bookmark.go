package domain

import "time"

// Bookmark is a saved summary of a retrieved URL.
type Bookmark struct {
	ID            string
	UserID        string
	URL           string
	Title         string
	Summary       string
	SummaryMode   SummaryMode
	Tags          string
	CreatedAt     time.Time
	AccessedCount int
}

// SearchRecord logs one bookmark keyword search.
type SearchRecord struct {
	ID          string
	UserID      string
	Keyword     string
	ResultCount int
	CreatedAt   time.Time
}
