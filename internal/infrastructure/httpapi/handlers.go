package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"FeedbackInsights/internal/domain"
	"FeedbackInsights/internal/export"
	"FeedbackInsights/internal/usecase"
)

func (s *Server) upload(c *gin.Context) {
	if s.ingester == nil {
		s.unavailable(c)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxFileBytes+multipartOverhead)

	header, err := c.FormFile(UploadField)
	if err != nil {
		if tooLarge(err) {
			s.fail(c, http.StatusRequestEntityTooLarge, "File is too large.", err)
			return
		}
		s.fail(c, http.StatusBadRequest, "No file uploaded.", err)
		return
	}
	if header.Size > s.opts.MaxFileBytes {
		s.fail(c, http.StatusRequestEntityTooLarge, "File is too large.",
			fmt.Errorf("file is %d bytes, limit is %d", header.Size, s.opts.MaxFileBytes))
		return
	}

	file, err := header.Open()
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Uploaded file could not be read.", err)
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxFileBytes+1))
	file.Close()
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Uploaded file could not be read.", err)
		return
	}

	ctx := c.Request.Context()
	if s.opts.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.UploadTimeout)
		defer cancel()
	}

	s.logger.Info("upload received", "filename", header.Filename, "bytes", len(data))

	result, err := s.ingester.Ingest(ctx, data)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMalformedFile):
			s.fail(c, http.StatusBadRequest, "The uploaded file is not a readable spreadsheet.", err)
		case errors.Is(err, domain.ErrColumnNotFound):
			s.fail(c, http.StatusBadRequest, "The feedback column was not found in the uploaded file.", err)
		case errors.Is(err, domain.ErrIncompleteUpload):
			s.logger.Warn("upload incomplete", "error", err)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"message": "Analysis did not finish. " + usecase.StatusMessage(result),
				"error":   err.Error(),
				"count":   result.Saved,
				"failed":  result.Failed,
			})
		default:
			s.fail(c, http.StatusInternalServerError, "Server error during file processing or saving.", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": usecase.StatusMessage(result),
		"count":   result.Saved,
		"failed":  result.Failed,
	})
}

func (s *Server) all(c *gin.Context) {
	if s.insights == nil {
		s.unavailable(c)
		return
	}
	records, err := s.insights.All(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Error fetching data.", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) summary(c *gin.Context) {
	if s.insights == nil {
		s.unavailable(c)
		return
	}
	summary, err := s.insights.Summary(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Error fetching summary data.", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) priority(c *gin.Context) {
	if s.insights == nil {
		s.unavailable(c)
		return
	}
	items, err := s.insights.PriorityList(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Error fetching priority list.", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) exportCSV(c *gin.Context) {
	if s.insights == nil {
		s.unavailable(c)
		return
	}
	data, err := s.insights.ExportCSV(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrEmptyExport) {
			c.JSON(http.StatusNotFound, gin.H{"message": "No data found to export."})
			return
		}
		s.fail(c, http.StatusInternalServerError, "Failed to generate CSV export.", err)
		return
	}

	filename := export.Filename(s.now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (s *Server) fail(c *gin.Context, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error(message, "path", c.FullPath(), "error", err)
	} else {
		s.logger.Warn(message, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"message": message, "error": err.Error()})
}

func (s *Server) unavailable(c *gin.Context) {
	s.fail(c, http.StatusServiceUnavailable, "Service is not configured.", errors.New("handler dependency missing"))
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}
