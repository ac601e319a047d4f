package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"FeedbackInsights/internal/extractor"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// XLSX reads the first worksheet of an Office Open XML workbook.
type XLSX struct{}

var _ extractor.Format = XLSX{}

// Name identifies the strategy inside the registry.
func (XLSX) Name() string {
	return "xlsx"
}

// Detect matches zip containers and legacy OLE workbooks; the latter are
// rejected by Parse.
func (XLSX) Detect(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic) || bytes.HasPrefix(data, oleMagic)
}

// Parse loads the workbook and converts its first sheet.
func (XLSX) Parse(data []byte) (extractor.Table, error) {
	if bytes.HasPrefix(data, oleMagic) {
		return extractor.Table{}, errors.New("legacy .xls workbooks are not supported")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return extractor.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return extractor.Table{}, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return extractor.Table{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	var (
		table     extractor.Table
		gotHeader bool
	)
	for r, row := range rows {
		if !gotHeader {
			// Leading empty rows sit above the used range.
			if blankRow(row) {
				continue
			}
			table.Header = row
			gotHeader = true
			continue
		}

		cells := make([]extractor.Cell, len(row))
		for c, value := range row {
			if value == "" {
				continue
			}
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return extractor.Table{}, fmt.Errorf("cell name: %w", err)
			}
			typ, err := f.GetCellType(sheet, name)
			if err != nil {
				return extractor.Table{}, fmt.Errorf("cell type %s: %w", name, err)
			}
			cells[c] = extractor.Cell{Value: value, Text: isTextCell(typ)}
		}
		table.Rows = append(table.Rows, cells)
	}

	return table, nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func isTextCell(typ excelize.CellType) bool {
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return true
	default:
		return false
	}
}
