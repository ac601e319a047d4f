package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"

	"FeedbackInsights/internal/domain"
)

func TestBuildInsert(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.November, 8, 9, 0, 0, 0, time.UTC)
	records := []domain.FeedbackRecord{
		{ID: "a", RawText: "one", Sentiment: domain.SentimentPositive, Summary: "s1", Themes: []string{"Pace"}, UploadDate: at},
		{ID: "b", RawText: "two", Sentiment: domain.SentimentNegative, Summary: "s2", Themes: []string{"Error"}, IsUrgent: true, UploadDate: at},
	}

	query, args, err := buildInsert(records)
	if err != nil {
		t.Fatalf("buildInsert error: %v", err)
	}

	want := "INSERT INTO feedback (id,raw_text,sentiment,summary,themes,is_urgent,upload_date) VALUES ($1,$2,$3,$4,$5,$6,$7),($8,$9,$10,$11,$12,$13,$14)"
	if query != want {
		t.Fatalf("unexpected query:\n%s\nwant:\n%s", query, want)
	}
	if len(args) != 14 {
		t.Fatalf("expected 14 args, got %d", len(args))
	}
	if args[2] != "Positive" {
		t.Fatalf("sentiment should be stored as text, got %#v", args[2])
	}
	themes, ok := args[11].(pq.StringArray)
	if !ok || len(themes) != 1 || themes[0] != "Error" {
		t.Fatalf("themes should be a pq.StringArray, got %#v", args[11])
	}
	if args[12] != true {
		t.Fatalf("unexpected urgency arg: %#v", args[12])
	}
}

func TestBuildSelect(t *testing.T) {
	t.Parallel()

	newest, _, err := buildSelect(domain.NewestFirst)
	if err != nil {
		t.Fatalf("buildSelect error: %v", err)
	}
	if !strings.HasSuffix(newest, "FROM feedback ORDER BY upload_date DESC, id DESC") {
		t.Fatalf("unexpected newest-first query: %s", newest)
	}

	oldest, _, err := buildSelect(domain.OldestFirst)
	if err != nil {
		t.Fatalf("buildSelect error: %v", err)
	}
	if !strings.HasSuffix(oldest, "ORDER BY upload_date ASC, id ASC") {
		t.Fatalf("unexpected oldest-first query: %s", oldest)
	}
}
