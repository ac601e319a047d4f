package extractor

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"FeedbackInsights/internal/domain"
	"FeedbackInsights/internal/logging"
	"FeedbackInsights/internal/ports"
)

// Cell is one value of a parsed table. Text is false for numbers, booleans,
// dates and other non-text cells.
type Cell struct {
	Value string
	Text  bool
}

// Table is the first sheet of an uploaded document: a header row followed by
// data rows. Rows may be shorter than the header.
type Table struct {
	Header []string
	Rows   [][]Cell
}

// Format captures a single parsing strategy (xlsx, csv, html, etc.).
type Format interface {
	Name() string
	Detect(data []byte) bool
	Parse(data []byte) (Table, error)
}

// Registry keeps formats in detection order.
type Registry struct {
	formats []Format
	byName  map[string]Format
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]Format{}}
}

// Register adds or replaces a format. Formats registered first are probed
// first, so a catch-all format belongs at the end.
func (r *Registry) Register(format Format) {
	if r.byName == nil {
		r.byName = map[string]Format{}
	}
	if _, ok := r.byName[format.Name()]; ok {
		for i, f := range r.formats {
			if f.Name() == format.Name() {
				r.formats[i] = format
			}
		}
	} else {
		r.formats = append(r.formats, format)
	}
	r.byName[format.Name()] = format
}

// Lookup returns a format by name or an error if it is absent.
func (r *Registry) Lookup(name string) (Format, error) {
	if format, ok := r.byName[name]; ok {
		return format, nil
	}
	return nil, fmt.Errorf("format %s is not registered", name)
}

// Resolve returns the first format that recognises the payload.
func (r *Registry) Resolve(data []byte) (Format, error) {
	for _, f := range r.formats {
		if f.Detect(data) {
			return f, nil
		}
	}
	return nil, errors.New("unrecognised document format")
}

// Extractor reads the feedback column out of an uploaded table.
type Extractor struct {
	registry *Registry
	logger   *slog.Logger
}

var _ ports.RowExtractor = (*Extractor)(nil)

// New wires a format registry.
func New(reg *Registry, log *slog.Logger) *Extractor {
	return &Extractor{registry: reg, logger: logging.OrDiscard(log)}
}

// Extract returns the non-blank text cells of column in row order.
func (e *Extractor) Extract(data []byte, column string) ([]string, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrMalformedFile)
	}
	if e.registry == nil {
		return nil, fmt.Errorf("format registry is not configured")
	}

	format, err := e.registry.Resolve(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFile, err)
	}

	table, err := format.Parse(data)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedFile) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedFile, format.Name(), err)
	}

	idx := columnIndex(table.Header, column)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrColumnNotFound, column)
	}

	texts := ColumnTexts(table, idx)
	e.logger.Debug("rows extracted", "format", format.Name(), "rows", len(table.Rows), "texts", len(texts))
	return texts, nil
}

// ColumnTexts keeps the text cells of column idx that are not blank.
func ColumnTexts(table Table, idx int) []string {
	texts := make([]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if idx >= len(row) {
			continue
		}
		cell := row[idx]
		if !cell.Text || strings.TrimSpace(cell.Value) == "" {
			continue
		}
		texts = append(texts, cell.Value)
	}
	return texts
}

func columnIndex(header []string, column string) int {
	want := strings.TrimSpace(column)
	if want == "" {
		return -1
	}
	for i, h := range header {
		if strings.TrimSpace(h) == want {
			return i
		}
	}
	return -1
}
