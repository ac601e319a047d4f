package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackInsights/internal/analytics"
	"FeedbackInsights/internal/domain"
	"FeedbackInsights/internal/extractor"
	"FeedbackInsights/internal/infrastructure/storage"
	"FeedbackInsights/internal/infrastructure/tabular"
	"FeedbackInsights/internal/usecase"
)

type stubIngester struct {
	result domain.IngestResult
	err    error
	got    []byte
}

func (s *stubIngester) Ingest(_ context.Context, data []byte) (domain.IngestResult, error) {
	s.got = data
	return s.result, s.err
}

type stubInsights struct {
	records []domain.FeedbackRecord
	csv     []byte
	err     error
}

func (s stubInsights) All(context.Context) ([]domain.FeedbackRecord, error) {
	return s.records, s.err
}

func (s stubInsights) Summary(context.Context) (analytics.Summary, error) {
	return analytics.Summary{
		Sentiment: analytics.SentimentSummary(s.records),
		Themes:    analytics.ThemeSummary(s.records, analytics.TopThemeLimit),
	}, s.err
}

func (s stubInsights) PriorityList(context.Context) ([]analytics.PriorityItem, error) {
	return analytics.PriorityList(s.records), s.err
}

func (s stubInsights) ExportCSV(context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.records) == 0 {
		return nil, domain.ErrEmptyExport
	}
	return s.csv, nil
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func doUpload(t *testing.T, h http.Handler, field string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, field, "feedback.csv", content)
	req := httptest.NewRequest(http.MethodPost, "/api/feedback/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestUploadSuccess(t *testing.T) {
	t.Parallel()

	ingester := &stubIngester{result: domain.IngestResult{Rows: 3, Saved: 3, Failed: 1}}
	srv := New(ingester, stubInsights{}, Options{}, nil)

	rec := doUpload(t, srv.Handler(), UploadField, []byte("Student Comment\nhi\n"))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Feedback successfully analyzed and saved. Total saved: 3. (Note: 1 entries failed AI analysis.)", body["message"])
	assert.EqualValues(t, 3, body["count"])
	assert.EqualValues(t, 1, body["failed"])
	assert.Equal(t, "Student Comment\nhi\n", string(ingester.got))
}

func TestUploadErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"malformed", fmt.Errorf("extract rows: %w", domain.ErrMalformedFile), http.StatusBadRequest},
		{"column", fmt.Errorf("extract rows: %w", domain.ErrColumnNotFound), http.StatusBadRequest},
		{"persistence", fmt.Errorf("persist batch: %w", domain.ErrPersistence), http.StatusInternalServerError},
		{"incomplete", fmt.Errorf("%w: %w", domain.ErrIncompleteUpload, context.DeadlineExceeded), http.StatusGatewayTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := New(&stubIngester{err: tc.err}, nil, Options{}, nil)
			rec := doUpload(t, srv.Handler(), UploadField, []byte("x"))
			assert.Equal(t, tc.status, rec.Code)

			body := decode(t, rec)
			assert.NotEmpty(t, body["message"])
			assert.Contains(t, body["error"], tc.err.Error())
		})
	}
}

func TestUploadWithoutFile(t *testing.T) {
	t.Parallel()

	srv := New(&stubIngester{}, nil, Options{}, nil)
	rec := doUpload(t, srv.Handler(), "otherField", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded.", decode(t, rec)["message"])
}

func TestUploadTooLarge(t *testing.T) {
	t.Parallel()

	ingester := &stubIngester{}
	srv := New(ingester, nil, Options{MaxFileBytes: 16}, nil)
	rec := doUpload(t, srv.Handler(), UploadField, bytes.Repeat([]byte("a"), 64))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, ingester.got)
}

func sampleRecords() []domain.FeedbackRecord {
	at := time.Date(2025, time.November, 8, 9, 0, 0, 0, time.UTC)
	return []domain.FeedbackRecord{
		{ID: "2", RawText: "too fast", Sentiment: domain.SentimentNegative, Summary: "Pace", Themes: []string{"Pace"}, IsUrgent: true, UploadDate: at.Add(time.Hour)},
		{ID: "1", RawText: "great", Sentiment: domain.SentimentPositive, Summary: "Liked", Themes: []string{"Teaching"}, UploadDate: at},
	}
}

func TestReadEndpoints(t *testing.T) {
	t.Parallel()

	srv := New(nil, stubInsights{records: sampleRecords()}, Options{}, nil)
	h := srv.Handler()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	all := get("/api/insights/all")
	require.Equal(t, http.StatusOK, all.Code)
	var records []domain.FeedbackRecord
	require.NoError(t, json.Unmarshal(all.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "2", records[0].ID)

	summary := get("/api/insights/summary")
	require.Equal(t, http.StatusOK, summary.Code)
	var s analytics.Summary
	require.NoError(t, json.Unmarshal(summary.Body.Bytes(), &s))
	assert.Len(t, s.Sentiment, 2)
	assert.Len(t, s.Themes, 2)

	priority := get("/api/insights/priority")
	require.Equal(t, http.StatusOK, priority.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(priority.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Pace", items[0]["summary"])
	assert.NotContains(t, items[0], "rawText")

	health := get("/healthz")
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestReadEndpointFailure(t *testing.T) {
	t.Parallel()

	srv := New(nil, stubInsights{err: errors.New("db down")}, Options{}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/insights/summary", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "db down", decode(t, rec)["error"])
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	srv := New(nil, stubInsights{records: sampleRecords(), csv: []byte("id\n1\n")}, Options{}, nil)
	srv.now = func() time.Time { return time.UnixMilli(1762592400123) }

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/insights/export-csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	assert.Equal(t, `attachment; filename="feedback_report_1762592400123.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "id\n1\n", rec.Body.String())
}

func TestExportCSVEmpty(t *testing.T) {
	t.Parallel()

	srv := New(nil, stubInsights{}, Options{}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/insights/export-csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"message": "No data found to export."}, decode(t, rec))
}

type fixedClassifier struct{}

func (fixedClassifier) Classify(_ context.Context, text string) domain.Classification {
	if strings.Contains(text, "worried") {
		return domain.Classification{Sentiment: domain.SentimentNegative, Summary: "Student is worried.", Themes: []string{"Stress"}, IsUrgent: true}
	}
	return domain.Classification{Sentiment: domain.SentimentPositive, Summary: "Student is happy.", Themes: []string{"Teaching"}}
}

func TestUploadThenReport(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryRepository()
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Extractor:  extractor.New(tabular.NewRegistry(), nil),
		Classifier: fixedClassifier{},
		Persister:  usecase.NewBatchPersister(repo, nil),
		Column:     "Student Comment",
	})
	srv := New(pipeline, usecase.NewInsights(repo, nil), Options{UploadTimeout: time.Minute}, nil)
	h := srv.Handler()

	upload := doUpload(t, h, UploadField, []byte("Student Comment\nGreat class!\n\"I'm worried, honestly\"\n"))
	require.Equal(t, http.StatusOK, upload.Code)
	assert.EqualValues(t, 2, decode(t, upload)["count"])

	missing := doUpload(t, h, UploadField, []byte("Comment\nGreat class!\n"))
	assert.Equal(t, http.StatusBadRequest, missing.Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/insights/priority", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var items []analytics.PriorityItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Student is worried.", items[0].Summary)

	export := httptest.NewRecorder()
	h.ServeHTTP(export, httptest.NewRequest(http.MethodGet, "/api/insights/export-csv", nil))
	require.Equal(t, http.StatusOK, export.Code)
	assert.Equal(t, 3, strings.Count(export.Body.String(), "\n"))
}
