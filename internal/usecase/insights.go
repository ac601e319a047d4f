package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"FeedbackInsights/internal/analytics"
	"FeedbackInsights/internal/domain"
	"FeedbackInsights/internal/export"
	"FeedbackInsights/internal/logging"
	"FeedbackInsights/internal/ports"
)

// Insights serves the read side: listing, aggregates and export.
type Insights struct {
	repository ports.FeedbackRepository
	logger     *slog.Logger
}

// NewInsights returns the read-side use case.
func NewInsights(repo ports.FeedbackRepository, log *slog.Logger) *Insights {
	return &Insights{repository: repo, logger: logging.OrDiscard(log)}
}

// All returns every record, newest first.
func (s *Insights) All(ctx context.Context) ([]domain.FeedbackRecord, error) {
	return s.load(ctx, domain.NewestFirst)
}

// Summary computes both chart views from one read.
func (s *Insights) Summary(ctx context.Context) (analytics.Summary, error) {
	records, err := s.load(ctx, domain.NewestFirst)
	if err != nil {
		return analytics.Summary{}, err
	}

	return analytics.Summary{
		Sentiment: analytics.SentimentSummary(records),
		Themes:    analytics.ThemeSummary(records, analytics.TopThemeLimit),
	}, nil
}

// SentimentSummary counts records per sentiment.
func (s *Insights) SentimentSummary(ctx context.Context) ([]analytics.GroupCount, error) {
	records, err := s.load(ctx, domain.NewestFirst)
	if err != nil {
		return nil, err
	}
	return analytics.SentimentSummary(records), nil
}

// ThemeSummary returns the five most frequent themes.
func (s *Insights) ThemeSummary(ctx context.Context) ([]analytics.GroupCount, error) {
	records, err := s.load(ctx, domain.NewestFirst)
	if err != nil {
		return nil, err
	}
	return analytics.ThemeSummary(records, analytics.TopThemeLimit), nil
}

// PriorityList returns urgent records first, then negative ones, each group
// newest first.
func (s *Insights) PriorityList(ctx context.Context) ([]analytics.PriorityItem, error) {
	records, err := s.load(ctx, domain.NewestFirst)
	if err != nil {
		return nil, err
	}
	return analytics.PriorityList(records), nil
}

// ExportCSV renders every record, oldest first. It returns
// domain.ErrEmptyExport when the store is empty.
func (s *Insights) ExportCSV(ctx context.Context) ([]byte, error) {
	records, err := s.load(ctx, domain.OldestFirst)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records); err != nil {
		return nil, err
	}

	s.logger.Info("export rendered", "records", len(records), "bytes", buf.Len())
	return buf.Bytes(), nil
}

func (s *Insights) load(ctx context.Context, order domain.SortOrder) ([]domain.FeedbackRecord, error) {
	if s.repository == nil {
		return nil, fmt.Errorf("%w: repository is not configured", domain.ErrPersistence)
	}

	records, err := s.repository.FindAll(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%w: load feedback: %w", domain.ErrPersistence, err)
	}
	return records, nil
}
