// Package httpapi exposes upload and reporting endpoints over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"FeedbackInsights/internal/analytics"
	"FeedbackInsights/internal/domain"
	"FeedbackInsights/internal/logging"
)

// UploadField is the multipart field carrying the feedback file.
const UploadField = "feedbackFile"

// multipartOverhead is allowed on top of the file limit for form framing.
const multipartOverhead = 1 << 20

// Ingester runs one upload through the pipeline.
type Ingester interface {
	Ingest(ctx context.Context, data []byte) (domain.IngestResult, error)
}

// InsightsReader serves the read side.
type InsightsReader interface {
	All(ctx context.Context) ([]domain.FeedbackRecord, error)
	Summary(ctx context.Context) (analytics.Summary, error)
	PriorityList(ctx context.Context) ([]analytics.PriorityItem, error)
	ExportCSV(ctx context.Context) ([]byte, error)
}

var releaseMode sync.Once

// Options tunes request limits.
type Options struct {
	MaxFileBytes  int64
	UploadTimeout time.Duration
}

// Server holds the gin engine and its collaborators.
type Server struct {
	engine   *gin.Engine
	ingester Ingester
	insights InsightsReader
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// New builds the router. Either collaborator may be nil; its routes then
// answer 503.
func New(ingester Ingester, insights InsightsReader, opts Options, log *slog.Logger) *Server {
	releaseMode.Do(func() { gin.SetMode(gin.ReleaseMode) })

	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = 10 << 20
	}

	s := &Server{
		engine:   gin.New(),
		ingester: ingester,
		insights: insights,
		opts:     opts,
		logger:   logging.OrDiscard(log),
		now:      time.Now,
	}
	s.engine.MaxMultipartMemory = opts.MaxFileBytes + multipartOverhead
	s.engine.Use(gin.Recovery(), s.requestLogger(), allowCrossOrigin())
	s.routes()
	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	{
		api.POST("/feedback/upload", s.upload)
		api.GET("/insights/all", s.all)
		api.GET("/insights/summary", s.summary)
		api.GET("/insights/priority", s.priority)
		api.GET("/insights/export-csv", s.exportCSV)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func allowCrossOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
