// Package document extracts text from PDF locators. The file is
// downloaded to a temp path and parsed structurally; no OCR.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/vietddude/recap/internal/content"
	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/fetch"
	"github.com/vietddude/recap/internal/retrieval/failure"
)

// Config configures the PDF strategy.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxFileSize int64
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 25 << 20 // 25 MiB
	}
}

// Strategy downloads a PDF and extracts its text content.
type Strategy struct {
	cfg       Config
	client    *http.Client
	converter *content.Converter
}

// New creates the document strategy.
func New(cfg Config, converter *content.Converter) *Strategy {
	cfg.defaults()
	return &Strategy{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		converter: converter,
	}
}

// Name returns the registry name.
func (s *Strategy) Name() string { return fetch.NameDocument }

// Fetch downloads the PDF and returns its text as Markdown. The first
// non-empty line doubles as the title.
func (s *Strategy) Fetch(ctx context.Context, url string) (*domain.Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &failure.StatusError{URL: url, Code: resp.StatusCode}
	}

	tmp, err := os.CreateTemp("", "recap-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, io.LimitReader(resp.Body, s.cfg.MaxFileSize)); err != nil {
		return nil, fmt.Errorf("download pdf: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind temp file: %w", err)
	}

	title, text, err := extractPDF(tmp)
	if err != nil {
		return nil, &failure.ParseError{URL: url, Reason: err.Error()}
	}

	return &domain.Content{
		URL:       url,
		Title:     title,
		Markdown:  s.converter.Truncate(text),
		FetchedAt: time.Now(),
	}, nil
}

// extractPDF walks every page's content stream and joins the text.
func extractPDF(r io.ReadSeeker) (string, string, error) {
	pdfCtx, err := api.ReadValidateAndOptimize(r, model.NewDefaultConfiguration())
	if err != nil {
		return "", "", fmt.Errorf("read pdf: %w", err)
	}

	var title string
	var pages []string
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		text := pageText(pdfCtx, pageNr)
		if text == "" {
			continue
		}
		if title == "" {
			title = firstLine(text)
		}
		pages = append(pages, text)
	}

	if len(pages) == 0 {
		return "", "", errors.New("no extractable text in pdf")
	}
	return title, strings.Join(pages, "\n\n"), nil
}

func pageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return parseContentStream(data)
}

// literalPattern matches PDF string literals: (text here)
var literalPattern = regexp.MustCompile(`\(([^)]*)\)`)

// parseContentStream pulls text out of PDF drawing operators. Tj, TJ
// and ' show text; Td/TD and T* move the cursor and become separators.
func parseContentStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range literalPattern.FindAllSubmatch(line, -1) {
				sb.WriteString(decodeLiteral(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range literalPattern.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodeLiteral(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return normalizeText(sb.String())
}

// decodeLiteral resolves PDF string escapes, including octal codes.
func decodeLiteral(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

// normalizeText collapses runs of whitespace and drops non-printable
// runes left over from encoding artifacts.
func normalizeText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case r == '\n':
			sb.WriteRune('\n')
			prevSpace = true
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 200 {
			line = line[:200]
		}
		return line
	}
	return ""
}
