package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"

	"FeedbackInsights/internal/domain"
	"FeedbackInsights/internal/logging"
	"FeedbackInsights/internal/ports"
)

// PersistResult reports how a batch was handled.
type PersistResult struct {
	Saved   int
	Skipped int
}

// BatchPersister writes classified records with best-effort semantics:
// invalid records are skipped, valid siblings are committed in one call.
type BatchPersister struct {
	repository ports.FeedbackRepository
	validate   *validator.Validate
	now        func() time.Time
	newID      func() string
	logger     *slog.Logger
}

// NewBatchPersister wires the repository and the record validator.
func NewBatchPersister(repo ports.FeedbackRepository, log *slog.Logger) *BatchPersister {
	v := validator.New()
	// notblank ships with the validator module but is not registered by default.
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}

	return &BatchPersister{
		repository: repo,
		validate:   v,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
		logger:     logging.OrDiscard(log),
	}
}

// Persist validates, stamps and writes the records in a single repository call.
func (p *BatchPersister) Persist(ctx context.Context, records []domain.FeedbackRecord) (PersistResult, error) {
	if p.repository == nil {
		return PersistResult{}, fmt.Errorf("%w: repository is not configured", domain.ErrPersistence)
	}

	uploadedAt := p.now().UTC()
	valid := make([]domain.FeedbackRecord, 0, len(records))
	var result PersistResult

	for i, rec := range records {
		if err := p.validate.Struct(rec); err != nil {
			result.Skipped++
			p.logger.Warn("skipping invalid record", "index", i, "error", err)
			continue
		}
		rec.ID = p.newID()
		rec.UploadDate = uploadedAt
		valid = append(valid, rec)
	}

	if len(valid) == 0 {
		return result, nil
	}

	saved, err := p.repository.InsertBatch(ctx, valid)
	if err != nil {
		return result, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	result.Saved = saved

	p.logger.Info("batch persisted", "saved", saved, "skipped", result.Skipped)
	return result, nil
}
