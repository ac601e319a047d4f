package ports

import (
	"context"
	"time"

	"FeedbackInsights/internal/domain"
)

// RowExtractor pulls candidate feedback texts out of an uploaded table.
type RowExtractor interface {
	Extract(data []byte, column string) ([]string, error)
}

// ModelClient sends a prompt to a text-understanding model and returns its
// raw answer.
type ModelClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classifier turns one feedback text into a classification. It never fails;
// failures are reported through the sentinel classification.
type Classifier interface {
	Classify(ctx context.Context, text string) domain.Classification
}

// FeedbackRepository persists classified records.
type FeedbackRepository interface {
	InsertBatch(ctx context.Context, records []domain.FeedbackRecord) (int, error)
	FindAll(ctx context.Context, order domain.SortOrder) ([]domain.FeedbackRecord, error)
	Close() error
}

// Notifier streams alerts and digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
