package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"FeedbackInsights/internal/domain"
	"FeedbackInsights/internal/ports"
)

const (
	feedbackTable = "feedback"
	// Postgres caps a statement at 65535 parameters; seven columns per row
	// keeps a chunk well below that.
	insertChunkSize = 1000
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS feedback (
	id          UUID PRIMARY KEY,
	raw_text    TEXT NOT NULL,
	sentiment   TEXT NOT NULL,
	summary     TEXT NOT NULL DEFAULT '',
	themes      TEXT[] NOT NULL,
	is_urgent   BOOLEAN NOT NULL DEFAULT FALSE,
	upload_date TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_upload_date ON feedback (upload_date);`

var (
	psql            = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	feedbackColumns = []string{"id", "raw_text", "sentiment", "summary", "themes", "is_urgent", "upload_date"}
)

// PostgresRepository persists feedback records into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.FeedbackRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres connects to dsn and makes sure the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return NewPostgresRepository(db), nil
}

// InsertBatch writes all records in one transaction.
func (r *PostgresRepository) InsertBatch(ctx context.Context, records []domain.FeedbackRecord) (int, error) {
	if r.db == nil {
		return 0, fmt.Errorf("postgres repository is not connected")
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	var inserted int64
	for start := 0; start < len(records); start += insertChunkSize {
		end := min(start+insertChunkSize, len(records))

		query, args, err := buildInsert(records[start:end])
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("build insert: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert feedback: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return int(inserted), nil
}

// FindAll returns every stored record in the requested order.
func (r *PostgresRepository) FindAll(ctx context.Context, order domain.SortOrder) ([]domain.FeedbackRecord, error) {
	if r.db == nil {
		return nil, fmt.Errorf("postgres repository is not connected")
	}

	query, args, err := buildSelect(order)
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}

	result := make([]domain.FeedbackRecord, 0)
	for rows.Next() {
		var (
			rec       domain.FeedbackRecord
			sentiment string
			themes    pq.StringArray
		)
		if err := rows.Scan(&rec.ID, &rec.RawText, &sentiment, &rec.Summary, &themes, &rec.IsUrgent, &rec.UploadDate); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		rec.Sentiment = domain.Sentiment(sentiment)
		rec.Themes = []string(themes)
		rec.UploadDate = rec.UploadDate.UTC()
		result = append(result, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func buildInsert(records []domain.FeedbackRecord) (string, []any, error) {
	q := psql.Insert(feedbackTable).Columns(feedbackColumns...)
	for _, rec := range records {
		q = q.Values(
			rec.ID,
			rec.RawText,
			string(rec.Sentiment),
			rec.Summary,
			pq.StringArray(rec.Themes),
			rec.IsUrgent,
			rec.UploadDate,
		)
	}
	return q.ToSql()
}

func buildSelect(order domain.SortOrder) (string, []any, error) {
	orderBy := "upload_date DESC, id DESC"
	if order == domain.OldestFirst {
		orderBy = "upload_date ASC, id ASC"
	}
	return psql.Select(feedbackColumns...).From(feedbackTable).OrderBy(orderBy).ToSql()
}
