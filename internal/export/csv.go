// Package export renders stored feedback as a flat CSV report.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"FeedbackInsights/internal/domain"
)

// ThemeSeparator joins the themes of one record into a single cell.
const ThemeSeparator = ";"

// Header is the fixed first line of every report.
var Header = []string{"id", "rawText", "sentiment", "summary", "themes", "isUrgent", "uploadDate"}

// Filename returns the attachment name for a report produced at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("feedback_report_%d.csv", now.UnixMilli())
}

// WriteCSV writes the header and one line per record in the given order.
// It returns domain.ErrEmptyExport without writing anything for an empty set.
func WriteCSV(w io.Writer, records []domain.FeedbackRecord) error {
	if len(records) == 0 {
		return domain.ErrEmptyExport
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, rec := range records {
		if err := cw.Write(row(rec)); err != nil {
			return fmt.Errorf("write record %s: %w", rec.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func row(rec domain.FeedbackRecord) []string {
	return []string{
		rec.ID,
		rec.RawText,
		string(rec.Sentiment),
		rec.Summary,
		strings.Join(rec.Themes, ThemeSeparator),
		strconv.FormatBool(rec.IsUrgent),
		rec.UploadDate.UTC().Format(time.RFC3339Nano),
	}
}
