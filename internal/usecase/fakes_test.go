package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"FeedbackInsights/internal/domain"
)

type scriptedClassifier struct {
	answers map[string]domain.Classification
	delay   time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (c *scriptedClassifier) Classify(ctx context.Context, text string) domain.Classification {
	c.calls.Add(1)
	now := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.peak.Load()
		if now <= peak || c.peak.CompareAndSwap(peak, now) {
			break
		}
	}

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return domain.FailedClassification()
		}
	}

	if answer, ok := c.answers[text]; ok {
		return answer
	}
	return domain.FailedClassification()
}

// staggeredClassifier sleeps less for later rows ("row NN").
type staggeredClassifier struct {
	answers map[string]domain.Classification
	rows    int
}

func (c *staggeredClassifier) Classify(ctx context.Context, text string) domain.Classification {
	var idx int
	fmt.Sscanf(text, "row %d", &idx)
	select {
	case <-time.After(time.Duration(c.rows-idx) * time.Millisecond):
	case <-ctx.Done():
		return domain.FailedClassification()
	}
	return c.answers[text]
}

type capturingRepository struct {
	mu      sync.Mutex
	batches [][]domain.FeedbackRecord
}

func (r *capturingRepository) InsertBatch(_ context.Context, records []domain.FeedbackRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]domain.FeedbackRecord(nil), records...))
	return len(records), nil
}

func (r *capturingRepository) FindAll(context.Context, domain.SortOrder) ([]domain.FeedbackRecord, error) {
	return nil, nil
}

func (r *capturingRepository) Close() error { return nil }

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, digest)
	return n.err
}

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type failingRepository struct {
	calls int
}

func (r *failingRepository) InsertBatch(context.Context, []domain.FeedbackRecord) (int, error) {
	r.calls++
	return 0, errors.New("disk full")
}

func (r *failingRepository) FindAll(context.Context, domain.SortOrder) ([]domain.FeedbackRecord, error) {
	return nil, errors.New("connection refused")
}

func (r *failingRepository) Close() error { return nil }

type staticExtractor struct {
	texts []string
	err   error
}

func (e staticExtractor) Extract([]byte, string) ([]string, error) {
	return e.texts, e.err
}
