package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"FeedbackInsights/internal/extractor"
)

// HTML reads the first <table> of a document, as produced by spreadsheet
// "save as web page" exports.
type HTML struct{}

var _ extractor.Format = HTML{}

// Name identifies the strategy inside the registry.
func (HTML) Name() string {
	return "html"
}

// Detect matches markup documents.
func (HTML) Detect(data []byte) bool {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	return bytes.HasPrefix(trimmed, []byte("<"))
}

// Parse converts the first table; the first row holding cells is the header.
func (HTML) Parse(data []byte) (extractor.Table, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return extractor.Table{}, fmt.Errorf("parse document: %w", err)
	}

	tbl := doc.Find("table").First()
	if tbl.Length() == 0 {
		return extractor.Table{}, errors.New("no table found")
	}

	var (
		table     extractor.Table
		gotHeader bool
	)
	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// Skip rows of nested tables.
		if tr.Closest("table").Get(0) != tbl.Get(0) {
			return
		}

		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			return
		}

		values := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			values = append(values, strings.TrimSpace(cell.Text()))
		})

		if !gotHeader {
			table.Header = values
			gotHeader = true
			return
		}

		row := make([]extractor.Cell, len(values))
		for i, v := range values {
			row[i] = extractor.Cell{Value: v, Text: true}
		}
		table.Rows = append(table.Rows, row)
	})

	if !gotHeader {
		return extractor.Table{}, errors.New("table has no rows")
	}

	return table, nil
}
