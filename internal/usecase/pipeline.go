package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"FeedbackInsights/internal/analytics"
	"FeedbackInsights/internal/domain"
	"FeedbackInsights/internal/logging"
	"FeedbackInsights/internal/ports"
)

// DefaultWorkers bounds concurrent classifications when no value is configured.
const DefaultWorkers = 4

// PipelineDeps wires the driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Extractor  ports.RowExtractor
	Classifier ports.Classifier
	Persister  *BatchPersister
	Notifier   ports.Notifier
	Logger     *slog.Logger
	Column     string
	Workers    int
}

// Pipeline implements the upload workflow: extract rows, classify them on a
// bounded pool, persist the batch and alert on urgent entries.
type Pipeline struct {
	extractor  ports.RowExtractor
	classifier ports.Classifier
	persister  *BatchPersister
	notifier   ports.Notifier
	logger     *slog.Logger
	column     string
	workers    int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	workers := deps.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Pipeline{
		extractor:  deps.Extractor,
		classifier: deps.Classifier,
		persister:  deps.Persister,
		notifier:   deps.Notifier,
		logger:     logging.OrDiscard(deps.Logger),
		column:     deps.Column,
		workers:    workers,
	}
}

// Ingest processes one uploaded file. Extraction errors abort before any
// model call. When ctx is cancelled mid-run the rows already classified are
// still persisted and the returned error wraps domain.ErrIncompleteUpload.
func (p *Pipeline) Ingest(ctx context.Context, data []byte) (domain.IngestResult, error) {
	if p.extractor == nil || p.classifier == nil || p.persister == nil {
		return domain.IngestResult{}, fmt.Errorf("pipeline is not fully configured")
	}

	texts, err := p.extractor.Extract(data, p.column)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("extract rows: %w", err)
	}

	result := domain.IngestResult{Rows: len(texts)}
	p.logger.Info("upload extracted", "rows", len(texts), "column", p.column)

	classifications, done := p.classifyAll(ctx, texts)

	batch := make([]domain.FeedbackRecord, 0, len(texts))
	for i, text := range texts {
		if !done[i] {
			result.Unclassified++
			continue
		}
		rec := domain.NewFeedbackRecord(text, classifications[i])
		if rec.Failed() {
			result.Failed++
		}
		batch = append(batch, rec)
	}

	persistCtx := ctx
	if ctx.Err() != nil {
		persistCtx = context.WithoutCancel(ctx)
	}

	persisted, err := p.persister.Persist(persistCtx, batch)
	result.Saved = persisted.Saved
	result.Skipped = persisted.Skipped
	if err != nil {
		return result, fmt.Errorf("persist batch: %w", err)
	}

	if result.Saved > 0 {
		p.alertUrgent(persistCtx, batch)
	}

	if result.Unclassified > 0 {
		p.logger.Warn("upload cut short", "rows", result.Rows, "unclassified", result.Unclassified)
		return result, fmt.Errorf("%w: %d of %d rows not classified: %w",
			domain.ErrIncompleteUpload, result.Unclassified, result.Rows, context.Cause(ctx))
	}

	p.logger.Info("upload ingested",
		"rows", result.Rows,
		"saved", result.Saved,
		"failed", result.Failed,
		"skipped", result.Skipped)
	return result, nil
}

// classifyAll fills one slot per input row so output order matches input
// order regardless of completion order. done[i] is false for rows that were
// never started or whose answer arrived after cancellation.
func (p *Pipeline) classifyAll(ctx context.Context, texts []string) ([]domain.Classification, []bool) {
	results := make([]domain.Classification, len(texts))
	done := make([]bool, len(texts))

	var g errgroup.Group
	g.SetLimit(p.workers)

	for i, text := range texts {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			c := p.classifier.Classify(ctx, text)
			if ctx.Err() != nil {
				return nil
			}
			results[i] = c
			done[i] = true
			return nil
		})
	}

	_ = g.Wait()
	return results, done
}

func (p *Pipeline) alertUrgent(ctx context.Context, batch []domain.FeedbackRecord) {
	if p.notifier == nil {
		return
	}

	var urgent []analytics.PriorityItem
	for _, item := range analytics.PriorityList(batch) {
		if item.IsUrgent {
			urgent = append(urgent, item)
		}
	}
	if len(urgent) == 0 {
		return
	}

	message := buildAlertMessage(urgent)
	if err := p.notifier.PublishDigest(ctx, message); err != nil {
		p.logger.Warn("urgent alert not delivered", "urgent", len(urgent), "error", err)
	}
}

// StatusMessage renders the human-readable upload outcome.
func StatusMessage(result domain.IngestResult) string {
	message := fmt.Sprintf("Feedback successfully analyzed and saved. Total saved: %d.", result.Saved)
	if result.Failed > 0 {
		message += fmt.Sprintf(" (Note: %d entries failed AI analysis.)", result.Failed)
	}
	return message
}
