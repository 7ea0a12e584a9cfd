// Package extractor turns a PDF statement into page-structured plain text.
// Positioned text fragments are grouped into lines by their vertical position,
// which keeps each printed statement row on one line.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrOpenDocument means the document could not be opened or decoded at all.
	ErrOpenDocument = errors.New("failed to open document")
	// ErrDocumentTooLarge means the document exceeds the configured size limit.
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
	// ErrCancelled means the caller cancelled extraction between pages.
	ErrCancelled = errors.New("extraction cancelled")
)

// Defaults used when Options leaves a field zero.
const (
	DefaultLineTolerance = 3.0
	DefaultMaxBytes      = 20 << 20

	// spaceRatio is the horizontal gap, as a fraction of the font size, above
	// which two fragments on one line are separated by a space.
	spaceRatio = 0.2
	// glyphRatio estimates a glyph's width when the font gives none.
	glyphRatio = 0.5
)

// RawDocument is the caller's document buffer. The extractor only reads it.
type RawDocument struct {
	Name string
	Data []byte
}

// Metadata is the document information dictionary plus the page count. Fields
// missing from the dictionary are left empty.
type Metadata struct {
	Title        string     `json:"title,omitempty"`
	Author       string     `json:"author,omitempty"`
	Creator      string     `json:"creator,omitempty"`
	Producer     string     `json:"producer,omitempty"`
	CreationDate *time.Time `json:"creation_date,omitempty"`
	PageCount    int        `json:"page_count"`
}

// Page is one page of reconstructed text lines.
type Page struct {
	Number int      `json:"number"`
	Lines  []string `json:"lines"`
}

// ExtractedContent is the text of a document, page by page. Warnings lists
// pages that could not be read; extraction carries on past them.
type ExtractedContent struct {
	Pages    []Page    `json:"pages"`
	Metadata *Metadata `json:"metadata,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}

// Text joins every line of every page with newlines.
func (c *ExtractedContent) Text() string {
	var b strings.Builder
	for _, p := range c.Pages {
		for _, l := range p.Lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// LineCount returns the number of lines across all pages.
func (c *ExtractedContent) LineCount() int {
	n := 0
	for _, p := range c.Pages {
		n += len(p.Lines)
	}
	return n
}

// Progress is a percentage with a human-readable stage label.
type Progress struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage"`
}

// ProgressFunc receives progress updates. Percentages never decrease.
type ProgressFunc func(Progress)

// Fragment is a positioned run of text on a page.
type Fragment struct {
	X, Y     float64
	W        float64
	FontSize float64
	S        string
}

// document is the view of an opened PDF the extractor needs.
type document interface {
	NumPage() int
	PageFragments(num int) ([]Fragment, error)
	Metadata() *Metadata
}

type openFunc func(data []byte) (document, error)

// Options configures an Extractor.
type Options struct {
	MaxBytes      int64
	LineTolerance float64
}

// Extractor reads PDF documents. It holds no per-document state and is safe for
// concurrent use.
type Extractor struct {
	opts   Options
	open   openFunc
	logger *slog.Logger
}

// New creates an Extractor backed by github.com/ledongthuc/pdf.
func New(opts Options, logger *slog.Logger) *Extractor {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.LineTolerance <= 0 {
		opts.LineTolerance = DefaultLineTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{opts: opts, open: openPDF, logger: logger}
}

// Extract reads every page of doc. Only a document that cannot be opened is an
// error; unreadable pages are recorded in Warnings. Cancellation is observed
// between pages and returns ErrCancelled.
func (e *Extractor) Extract(ctx context.Context, doc RawDocument, onProgress ProgressFunc) (*ExtractedContent, error) {
	report := monotonic(onProgress)
	report(0, "Loading document")

	if int64(len(doc.Data)) > e.opts.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrDocumentTooLarge, len(doc.Data), e.opts.MaxBytes)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	d, err := e.open(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrOpenDocument, doc.Name, err)
	}

	total := d.NumPage()
	if total <= 0 {
		return nil, fmt.Errorf("%w %q: document has no pages", ErrOpenDocument, doc.Name)
	}
	report(5, fmt.Sprintf("Reading %d pages", total))

	meta := d.Metadata()
	if meta == nil {
		meta = &Metadata{}
	}
	meta.PageCount = total

	content := &ExtractedContent{
		Pages:    make([]Page, 0, total),
		Metadata: meta,
	}

	for num := 1; num <= total; num++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w after %d of %d pages: %w", ErrCancelled, num-1, total, err)
		}

		frags, err := d.PageFragments(num)
		if err != nil {
			e.logger.WarnContext(ctx, "failed to read page",
				slog.String("document", doc.Name),
				slog.Int("page", num),
				slog.Any("error", err))
			content.Warnings = append(content.Warnings, fmt.Sprintf("page %d: %v", num, err))
			frags = nil
		}

		content.Pages = append(content.Pages, Page{Number: num, Lines: groupLines(frags, e.opts.LineTolerance)})
		report(5+90*num/total, fmt.Sprintf("Page %d of %d", num, total))
	}

	report(100, "Complete")
	return content, nil
}

// monotonic wraps fn so that reported percentages never go backwards.
func monotonic(fn ProgressFunc) func(int, string) {
	last := -1
	return func(pct int, stage string) {
		if fn == nil {
			return
		}
		pct = max(0, min(100, pct))
		if pct < last {
			pct = last
		}
		last = pct
		fn(Progress{Percent: pct, Stage: stage})
	}
}

// groupLines rebuilds text lines from fragments in content-stream order. A new
// line starts whenever the vertical position moves by more than tolerance.
func groupLines(frags []Fragment, tolerance float64) []string {
	var (
		lines []string
		cur   strings.Builder
		prev  *Fragment
	)
	flush := func() {
		if line := strings.TrimSpace(cur.String()); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	for i := range frags {
		f := &frags[i]
		if f.S == "" {
			continue
		}
		switch {
		case prev == nil:
		case math.Abs(f.Y-prev.Y) > tolerance:
			flush()
		case needsSpace(prev, f):
			cur.WriteByte(' ')
		}
		cur.WriteString(f.S)
		prev = f
	}
	flush()
	return lines
}

// needsSpace reports whether a space separates two fragments on the same line.
// Fragments that already carry whitespace at the join never get another.
func needsSpace(prev, next *Fragment) bool {
	last, _ := utf8.DecodeLastRuneInString(prev.S)
	first, _ := utf8.DecodeRuneInString(next.S)
	if unicode.IsSpace(last) || unicode.IsSpace(first) {
		return false
	}

	width := prev.W
	if width <= 0 {
		width = glyphRatio * prev.FontSize * float64(utf8.RuneCountInString(prev.S))
	}
	size := max(prev.FontSize, next.FontSize)
	if size <= 0 {
		return true
	}
	return next.X-(prev.X+width) > spaceRatio*size
}
