package document

import (
	"strings"
	"testing"
)

func TestParseContentStream(t *testing.T) {
	stream := []byte(`BT
/F1 12 Tf
(Attention Is All You Need) Tj
T*
[(We propose) -250 (a new architecture)] TJ
0 -14 Td
(the Transformer) Tj
ET`)

	got := parseContentStream(stream)

	if !strings.Contains(got, "Attention Is All You Need") {
		t.Errorf("parseContentStream() = %q, missing Tj text", got)
	}
	if !strings.Contains(got, "We propose") || !strings.Contains(got, "a new architecture") {
		t.Errorf("parseContentStream() = %q, missing TJ array text", got)
	}
	if !strings.Contains(got, "the Transformer") {
		t.Errorf("parseContentStream() = %q, missing text after Td", got)
	}
}

func TestParseContentStreamQuoteOperator(t *testing.T) {
	stream := []byte("(first line) Tj\n(second line) '")

	got := parseContentStream(stream)
	if !strings.Contains(got, "first line") || !strings.Contains(got, "second line") {
		t.Errorf("parseContentStream() = %q, want both lines", got)
	}
}

func TestDecodeLiteral(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`plain text`, "plain text"},
		{`tab\there`, "tab\there"},
		{`paren \( inside \)`, "paren ( inside )"},
		{`back\\slash`, `back\slash`},
		{`octal\040space`, "octal space"},
		{`\110\151`, "Hi"},
	}

	for _, tt := range tests {
		if got := decodeLiteral([]byte(tt.raw)); got != tt.want {
			t.Errorf("decodeLiteral(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	got := normalizeText("a   lot\t\tof     space\n\nhere")
	if strings.Contains(got, "  ") {
		t.Errorf("normalizeText() = %q, want collapsed spaces", got)
	}
	if !strings.Contains(got, "a lot of space") {
		t.Errorf("normalizeText() = %q, want words preserved", got)
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"\n\n  Title Line\nbody", "Title Line"},
		{strings.Repeat("x", 300), strings.Repeat("x", 200)},
		{"   \n  ", ""},
	}

	for _, tt := range tests {
		if got := firstLine(tt.text); got != tt.want {
			t.Errorf("firstLine(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
