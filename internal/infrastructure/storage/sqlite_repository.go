package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"FeedbackInsights/internal/domain"
	"FeedbackInsights/internal/ports"
)

// feedbackRow is the gorm model behind the feedback table.
type feedbackRow struct {
	ID         string    `gorm:"primaryKey;size:36"`
	RawText    string    `gorm:"type:text;not null"`
	Sentiment  string    `gorm:"size:16;not null;index"`
	Summary    string    `gorm:"type:text"`
	Themes     []string  `gorm:"serializer:json;type:text;not null"`
	IsUrgent   bool      `gorm:"not null;index"`
	UploadDate time.Time `gorm:"not null;index"`
}

func (feedbackRow) TableName() string {
	return feedbackTable
}

// GormRepository persists feedback records through gorm.
type GormRepository struct {
	db *gorm.DB
}

var _ ports.FeedbackRepository = (*GormRepository)(nil)

// OpenSQLite opens (or creates) the SQLite database at dsn and migrates it.
func OpenSQLite(dsn string) (*GormRepository, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return NewGormRepository(db)
}

// NewGormRepository migrates the feedback table on db.
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&feedbackRow{}); err != nil {
		return nil, fmt.Errorf("migrate feedback: %w", err)
	}
	return &GormRepository{db: db}, nil
}

// InsertBatch creates all rows inside one transaction.
func (r *GormRepository) InsertBatch(ctx context.Context, records []domain.FeedbackRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]feedbackRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, feedbackRow{
			ID:         rec.ID,
			RawText:    rec.RawText,
			Sentiment:  string(rec.Sentiment),
			Summary:    rec.Summary,
			Themes:     rec.Themes,
			IsUrgent:   rec.IsUrgent,
			UploadDate: rec.UploadDate,
		})
	}

	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.CreateInBatches(&rows, 500)
		inserted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("insert feedback: %w", err)
	}

	return int(inserted), nil
}

// FindAll returns every stored record in the requested order.
func (r *GormRepository) FindAll(ctx context.Context, order domain.SortOrder) ([]domain.FeedbackRecord, error) {
	orderBy := "upload_date DESC, id DESC"
	if order == domain.OldestFirst {
		orderBy = "upload_date ASC, id ASC"
	}

	var rows []feedbackRow
	if err := r.db.WithContext(ctx).Order(orderBy).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}

	records := make([]domain.FeedbackRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.FeedbackRecord{
			ID:         row.ID,
			RawText:    row.RawText,
			Sentiment:  domain.Sentiment(row.Sentiment),
			Summary:    row.Summary,
			Themes:     row.Themes,
			IsUrgent:   row.IsUrgent,
			UploadDate: row.UploadDate.UTC(),
		})
	}

	return records, nil
}

// Close releases the underlying connection pool.
func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	return sqlDB.Close()
}
