package domain

import (
	"slices"
	"strings"
	"time"
)

// Sentiment is the polarity assigned to a piece of feedback.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

const (
	// ThemeGeneral is used when the model returned no theme.
	ThemeGeneral = "General"
	// ThemeError marks a record whose classification failed.
	ThemeError = "Error"

	// FailedSummary is the summary carried by the sentinel classification.
	FailedSummary = "Analysis failed"
)

// ParseSentiment maps free text onto the enum, defaulting to Neutral.
func ParseSentiment(value string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "positive":
		return SentimentPositive
	case "negative":
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Valid reports whether s is one of the three known sentiments.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Classification is the structured judgment produced for one row.
type Classification struct {
	Sentiment Sentiment `json:"sentiment"`
	Summary   string    `json:"summary"`
	Themes    []string  `json:"themes"`
	IsUrgent  bool      `json:"isUrgent"`
}

// FailedClassification returns the sentinel emitted when the model cannot be
// reached or its answer cannot be parsed.
func FailedClassification() Classification {
	return Classification{
		Sentiment: SentimentNeutral,
		Summary:   FailedSummary,
		Themes:    []string{ThemeError},
		IsUrgent:  false,
	}
}

// Failed reports whether the classification carries the Error theme.
func (c Classification) Failed() bool {
	return slices.Contains(c.Themes, ThemeError)
}

// FeedbackRecord is one classified survey response.
type FeedbackRecord struct {
	ID         string    `json:"id"`
	RawText    string    `json:"rawText" validate:"required,notblank"`
	Sentiment  Sentiment `json:"sentiment" validate:"required,oneof=Positive Negative Neutral"`
	Summary    string    `json:"summary"`
	Themes     []string  `json:"themes" validate:"min=1,dive,notblank"`
	IsUrgent   bool      `json:"isUrgent"`
	UploadDate time.Time `json:"uploadDate"`
}

// NewFeedbackRecord binds a raw row to its classification. ID and UploadDate
// are assigned when the record is persisted.
func NewFeedbackRecord(rawText string, c Classification) FeedbackRecord {
	return FeedbackRecord{
		RawText:   rawText,
		Sentiment: c.Sentiment,
		Summary:   c.Summary,
		Themes:    slices.Clone(c.Themes),
		IsUrgent:  c.IsUrgent,
	}
}

// Failed reports whether the record was produced by a failed classification.
func (r FeedbackRecord) Failed() bool {
	return slices.Contains(r.Themes, ThemeError)
}

// IsPriority reports whether the record belongs on the action list.
func (r FeedbackRecord) IsPriority() bool {
	return r.IsUrgent || r.Sentiment == SentimentNegative
}

// SortOrder controls the order in which repositories return records.
type SortOrder int

const (
	NewestFirst SortOrder = iota
	OldestFirst
)

// IngestResult summarizes one upload.
type IngestResult struct {
	Rows         int `json:"rows"`
	Saved        int `json:"saved"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
	Unclassified int `json:"unclassified"`
}
