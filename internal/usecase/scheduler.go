package usecase

import (
	"context"
	"log/slog"
	"time"

	"FeedbackInsights/internal/logging"
	"FeedbackInsights/internal/ports"
)

// Scheduler wires the interval driver with the priority digest job.
type Scheduler struct {
	driver   ports.Scheduler
	insights *Insights
	notifier ports.Notifier
	location *time.Location
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop the recurring digest.
func NewScheduler(driver ports.Scheduler, insights *Insights, notifier ports.Notifier, loc *time.Location, log *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		driver:   driver,
		insights: insights,
		notifier: notifier,
		location: loc,
		logger:   logging.OrDiscard(log),
	}
}

// Start registers the digest job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.insights == nil || s.notifier == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if err := s.SendDigest(ctx, trigger); err != nil {
			s.logger.Warn("priority digest failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// SendDigest publishes the current priority list. Nothing is sent when the
// list is empty.
func (s *Scheduler) SendDigest(ctx context.Context, at time.Time) error {
	items, err := s.insights.PriorityList(ctx)
	if err != nil {
		return err
	}

	message := buildDigestMessage(items, at.In(s.location))
	if message == "" {
		s.logger.Debug("priority digest skipped, nothing to report")
		return nil
	}
	return s.notifier.PublishDigest(ctx, message)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
