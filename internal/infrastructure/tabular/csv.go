package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"unicode/utf8"

	"FeedbackInsights/internal/extractor"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV reads delimited text. It accepts every payload, so register it last.
type CSV struct{}

var _ extractor.Format = CSV{}

// Name identifies the strategy inside the registry.
func (CSV) Name() string {
	return "csv"
}

// Detect always matches.
func (CSV) Detect([]byte) bool {
	return true
}

// Parse reads all records; every cell is treated as text.
func (CSV) Parse(data []byte) (extractor.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return extractor.Table{}, errors.New("not valid UTF-8 text")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return extractor.Table{}, fmt.Errorf("read records: %w", err)
	}
	if len(records) == 0 {
		return extractor.Table{}, errors.New("no header row")
	}

	table := extractor.Table{Header: records[0]}
	for _, record := range records[1:] {
		cells := make([]extractor.Cell, len(record))
		for i, value := range record {
			cells[i] = extractor.Cell{Value: value, Text: true}
		}
		table.Rows = append(table.Rows, cells)
	}

	return table, nil
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab in the
// header line, preferring comma on ties.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, candidate := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(candidate))); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}
