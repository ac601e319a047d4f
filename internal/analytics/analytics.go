// Package analytics computes the aggregate views over a full set of
// feedback records: sentiment counts, top themes and the priority list.
package analytics

import (
	"slices"
	"time"

	"FeedbackInsights/internal/domain"
)

// TopThemeLimit is the number of themes returned by the theme summary.
const TopThemeLimit = 5

// GroupCount is one bucket of an aggregate view.
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// PriorityItem is the display form of a record on the action list. Raw text
// is deliberately absent.
type PriorityItem struct {
	ID         string           `json:"id"`
	Summary    string           `json:"summary"`
	Themes     []string         `json:"themes"`
	Sentiment  domain.Sentiment `json:"sentiment"`
	IsUrgent   bool             `json:"isUrgent"`
	UploadDate time.Time        `json:"uploadDate"`
}

// Summary bundles the two chart views.
type Summary struct {
	Sentiment []GroupCount `json:"sentiment"`
	Themes    []GroupCount `json:"themes"`
}

// SentimentSummary counts records per observed sentiment, largest first.
func SentimentSummary(records []domain.FeedbackRecord) []GroupCount {
	keys := make([]string, 0, len(records))
	for _, rec := range records {
		keys = append(keys, string(rec.Sentiment))
	}
	return countDescending(keys)
}

// ThemeSummary counts (record, theme) pairs per theme and returns at most
// limit groups, largest first. Ties keep first-appearance order.
func ThemeSummary(records []domain.FeedbackRecord, limit int) []GroupCount {
	var keys []string
	for _, rec := range records {
		keys = append(keys, rec.Themes...)
	}

	groups := countDescending(keys)
	if limit >= 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}

// PriorityList keeps urgent or negative records. Every urgent item precedes
// every non-urgent one; within each group the input order is kept.
func PriorityList(records []domain.FeedbackRecord) []PriorityItem {
	items := make([]PriorityItem, 0)
	for _, rec := range records {
		if !rec.IsPriority() {
			continue
		}
		items = append(items, PriorityItem{
			ID:         rec.ID,
			Summary:    rec.Summary,
			Themes:     slices.Clone(rec.Themes),
			Sentiment:  rec.Sentiment,
			IsUrgent:   rec.IsUrgent,
			UploadDate: rec.UploadDate,
		})
	}

	slices.SortStableFunc(items, func(a, b PriorityItem) int {
		switch {
		case a.IsUrgent == b.IsUrgent:
			return 0
		case a.IsUrgent:
			return -1
		default:
			return 1
		}
	})
	return items
}

func countDescending(keys []string) []GroupCount {
	index := map[string]int{}
	groups := make([]GroupCount, 0)
	for _, key := range keys {
		if i, ok := index[key]; ok {
			groups[i].Count++
			continue
		}
		index[key] = len(groups)
		groups = append(groups, GroupCount{Key: key, Count: 1})
	}

	slices.SortStableFunc(groups, func(a, b GroupCount) int {
		return b.Count - a.Count
	})
	return groups
}
