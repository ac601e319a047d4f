package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackInsights/internal/domain"
	"FeedbackInsights/internal/infrastructure/storage"
)

func fixedPersister(repo *storage.MemoryRepository, at time.Time) *BatchPersister {
	p := NewBatchPersister(repo, nil)
	p.now = func() time.Time { return at }
	n := 0
	p.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return p
}

func TestPersistStampsRecords(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryRepository()
	at := time.Date(2025, time.November, 8, 10, 0, 0, 0, time.FixedZone("X", 3600))
	p := fixedPersister(repo, at)

	records := []domain.FeedbackRecord{
		domain.NewFeedbackRecord("Great class!", domain.Classification{Sentiment: domain.SentimentPositive, Summary: "Liked it", Themes: []string{"Teaching"}}),
		domain.NewFeedbackRecord("Too fast", domain.Classification{Sentiment: domain.SentimentNegative, Summary: "Pace", Themes: []string{"Pace"}}),
	}

	res, err := p.Persist(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, PersistResult{Saved: 2}, res)

	stored, err := repo.FindAll(context.Background(), domain.OldestFirst)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "id-1", stored[0].ID)
	assert.Equal(t, "id-2", stored[1].ID)
	for _, rec := range stored {
		assert.True(t, rec.UploadDate.Equal(at))
		assert.Equal(t, time.UTC, rec.UploadDate.Location())
	}
}

func TestPersistSkipsInvalidRecords(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryRepository()
	p := fixedPersister(repo, time.Now())

	records := []domain.FeedbackRecord{
		domain.NewFeedbackRecord("   ", domain.Classification{Sentiment: domain.SentimentNeutral, Themes: []string{"General"}}),
		domain.NewFeedbackRecord("ok", domain.Classification{Sentiment: "Mixed", Themes: []string{"General"}}),
		domain.NewFeedbackRecord("ok", domain.Classification{Sentiment: domain.SentimentNeutral}),
		domain.NewFeedbackRecord("kept", domain.FailedClassification()),
	}

	res, err := p.Persist(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, PersistResult{Saved: 1, Skipped: 3}, res)

	stored, err := repo.FindAll(context.Background(), domain.NewestFirst)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "kept", stored[0].RawText)
}

func TestPersistNothingValidSkipsRepository(t *testing.T) {
	t.Parallel()

	repo := &failingRepository{}
	p := NewBatchPersister(repo, nil)

	res, err := p.Persist(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Saved)
	assert.Zero(t, repo.calls)
}

func TestPersistWrapsRepositoryErrors(t *testing.T) {
	t.Parallel()

	repo := &failingRepository{}
	p := NewBatchPersister(repo, nil)

	rec := domain.NewFeedbackRecord("text", domain.Classification{Sentiment: domain.SentimentNeutral, Themes: []string{"General"}})
	_, err := p.Persist(context.Background(), []domain.FeedbackRecord{rec})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, repo.calls)
}
