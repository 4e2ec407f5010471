package domain

// Source is a grounding citation attached to a conversational answer.
type Source struct {
	Title string
	URI   string
}

// Answer is a conversational backend reply. HasHistory reports whether
// the session already held messages before this exchange.
type Answer struct {
	Text       string
	Sources    []Source
	HasHistory bool
}
