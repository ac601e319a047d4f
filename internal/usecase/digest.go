package usecase

import (
	"fmt"
	"strings"
	"time"

	"FeedbackInsights/internal/analytics"
)

// maxDigestItems caps the number of entries rendered into one message.
const maxDigestItems = 20

func buildAlertMessage(items []analytics.PriorityItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d urgent feedback entries in the latest upload\n\n", len(items))
	writeItems(&b, items, nil)
	return b.String()
}

func buildDigestMessage(items []analytics.PriorityItem, at time.Time) string {
	if len(items) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Priority feedback as of %s: %d entries\n\n", at.Format("2006-01-02 15:04 MST"), len(items))
	writeItems(&b, items, at.Location())
	return b.String()
}

func writeItems(b *strings.Builder, items []analytics.PriorityItem, loc *time.Location) {
	shown := items
	if len(shown) > maxDigestItems {
		shown = shown[:maxDigestItems]
	}

	for _, item := range shown {
		marker := ""
		if item.IsUrgent {
			marker = "[URGENT] "
		}
		fmt.Fprintf(b, "- %s%s\nSentiment: %s\nThemes: %s\n",
			marker,
			item.Summary,
			item.Sentiment,
			strings.Join(item.Themes, ", "))
		if loc != nil && !item.UploadDate.IsZero() {
			fmt.Fprintf(b, "Uploaded: %s\n", item.UploadDate.In(loc).Format("2006-01-02 15:04"))
		}
		b.WriteString("\n")
	}

	if rest := len(items) - len(shown); rest > 0 {
		fmt.Fprintf(b, "...and %d more\n", rest)
	}
}
