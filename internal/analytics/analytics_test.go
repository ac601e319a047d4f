package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackInsights/internal/domain"
)

func rec(id string, sentiment domain.Sentiment, urgent bool, themes ...string) domain.FeedbackRecord {
	return domain.FeedbackRecord{
		ID:         id,
		RawText:    "text " + id,
		Sentiment:  sentiment,
		Summary:    "summary " + id,
		Themes:     themes,
		IsUrgent:   urgent,
		UploadDate: time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC),
	}
}

func TestSentimentSummaryCountsObservedValues(t *testing.T) {
	t.Parallel()

	records := []domain.FeedbackRecord{
		rec("1", domain.SentimentPositive, false, "A"),
		rec("2", domain.SentimentNegative, false, "A"),
		rec("3", domain.SentimentPositive, false, "A"),
		rec("4", domain.SentimentPositive, false, "A"),
		rec("5", domain.SentimentNegative, false, "A"),
	}

	got := SentimentSummary(records)
	assert.Equal(t, []GroupCount{{Key: "Positive", Count: 3}, {Key: "Negative", Count: 2}}, got)

	total := 0
	for _, g := range got {
		total += g.Count
	}
	assert.Equal(t, len(records), total)

	assert.Empty(t, SentimentSummary(nil))
}

func TestThemeSummaryTopFive(t *testing.T) {
	t.Parallel()

	records := []domain.FeedbackRecord{
		rec("1", domain.SentimentNeutral, false, "Pace", "Labs"),
		rec("2", domain.SentimentNeutral, false, "Pace"),
		rec("3", domain.SentimentNeutral, false, "Grading", "Pace"),
		rec("4", domain.SentimentNeutral, false, "Labs"),
		rec("5", domain.SentimentNeutral, false, "Slides"),
		rec("6", domain.SentimentNeutral, false, "Rooms"),
		rec("7", domain.SentimentNeutral, false, "Error"),
		rec("8", domain.SentimentNeutral, false, "Parking"),
	}

	got := ThemeSummary(records, TopThemeLimit)
	require.Len(t, got, 5)
	assert.Equal(t, GroupCount{Key: "Pace", Count: 3}, got[0])
	assert.Equal(t, GroupCount{Key: "Labs", Count: 2}, got[1])
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Count, got[i].Count)
	}
	// Ties resolve by first appearance.
	assert.Equal(t, []string{"Grading", "Slides", "Rooms"}, []string{got[2].Key, got[3].Key, got[4].Key})
}

func TestPriorityListOrdersUrgentFirst(t *testing.T) {
	t.Parallel()

	records := []domain.FeedbackRecord{
		rec("neg", domain.SentimentNegative, false, "Pace"),
		rec("urgent", domain.SentimentNeutral, true, "Safety"),
		rec("pos", domain.SentimentPositive, false, "Labs"),
		rec("urgent-neg", domain.SentimentNegative, true, "Grading"),
	}

	got := PriorityList(records)
	require.Len(t, got, 3)
	assert.Equal(t, "urgent", got[0].ID)
	assert.Equal(t, "urgent-neg", got[1].ID)
	assert.Equal(t, "neg", got[2].ID)
	assert.Equal(t, "summary urgent", got[0].Summary)
	assert.Equal(t, []string{"Safety"}, got[0].Themes)
}

func TestPriorityListUrgentBeforeNegative(t *testing.T) {
	t.Parallel()

	records := []domain.FeedbackRecord{
		rec("a", domain.SentimentNeutral, true, "X"),
		rec("b", domain.SentimentNegative, false, "Y"),
		rec("c", domain.SentimentPositive, false, "Z"),
	}

	got := PriorityList(records)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestPriorityListEmptyIsNotNil(t *testing.T) {
	t.Parallel()

	got := PriorityList([]domain.FeedbackRecord{rec("p", domain.SentimentPositive, false, "A")})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
