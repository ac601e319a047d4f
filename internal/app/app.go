package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"FeedbackInsights/internal/classifier"
	"FeedbackInsights/internal/config"
	"FeedbackInsights/internal/domain"
	"FeedbackInsights/internal/extractor"
	"FeedbackInsights/internal/infrastructure/httpapi"
	"FeedbackInsights/internal/infrastructure/llm"
	"FeedbackInsights/internal/infrastructure/scheduler"
	"FeedbackInsights/internal/infrastructure/storage"
	"FeedbackInsights/internal/infrastructure/tabular"
	"FeedbackInsights/internal/infrastructure/telegram"
	"FeedbackInsights/internal/logging"
	"FeedbackInsights/internal/ports"
	"FeedbackInsights/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	repository ports.FeedbackRepository
	notifier   ports.Notifier
	insights   *usecase.Insights
	pipeline   *usecase.Pipeline
}

// New opens the configured store and builds the read side. Ingestion is
// wired separately by EnableIngestion because it needs model credentials.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := openRepository(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	baseLogger.Info("application configured",
		"storage", cfg.Storage.Driver,
		"provider", cfg.Classifier.Provider,
		"telegram", notifier != nil)

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		repository: repo,
		notifier:   notifier,
		insights:   usecase.NewInsights(repo, baseLogger.With("component", "insights")),
	}, nil
}

// EnableIngestion builds the model client and the upload pipeline.
func (a *Application) EnableIngestion(ctx context.Context) error {
	if a.pipeline != nil {
		return nil
	}
	if err := a.cfg.ValidateClassifier(); err != nil {
		return err
	}

	client, err := newModelClient(ctx, a.cfg.Classifier)
	if err != nil {
		return err
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Extractor:  extractor.New(tabular.NewRegistry(), a.logger.With("component", "extractor")),
		Classifier: classifier.New(client, a.logger.With("component", "classifier")),
		Persister:  usecase.NewBatchPersister(a.repository, a.logger.With("component", "persister")),
		Notifier:   a.notifier,
		Logger:     a.logger.With("component", "pipeline"),
		Column:     a.cfg.Upload.FeedbackColumn,
		Workers:    a.cfg.Upload.Workers,
	})
	return nil
}

// Ingest runs one file through the pipeline.
func (a *Application) Ingest(ctx context.Context, data []byte) (domain.IngestResult, error) {
	if err := a.EnableIngestion(ctx); err != nil {
		return domain.IngestResult{}, err
	}
	if a.cfg.Upload.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Upload.Timeout)
		defer cancel()
	}
	return a.pipeline.Ingest(ctx, data)
}

// Insights exposes the read side.
func (a *Application) Insights() *usecase.Insights {
	return a.insights
}

// Serve runs the HTTP API and the digest scheduler until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.EnableIngestion(ctx); err != nil {
		return err
	}

	api := httpapi.New(a.pipeline, a.insights, httpapi.Options{
		MaxFileBytes:  a.cfg.Upload.MaxFileBytes,
		UploadTimeout: a.cfg.Upload.Timeout,
	}, a.logger.With("component", "http"))

	digest := usecase.NewScheduler(
		scheduler.NewIntervalScheduler(a.cfg.Digest.Interval),
		a.insights,
		a.notifier,
		a.cfg.Digest.Location(),
		a.logger.With("component", "digest"),
	)
	if err := digest.Start(ctx); err != nil {
		return fmt.Errorf("start digest scheduler: %w", err)
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		serveErr = err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if err := digest.Stop(shutdownCtx); err != nil {
		a.logger.Warn("digest scheduler stop", "error", err)
	}

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

// Close releases the store.
func (a *Application) Close() error {
	if a.repository == nil {
		return nil
	}
	return a.repository.Close()
}

func openRepository(ctx context.Context, cfg config.StorageConfig) (ports.FeedbackRepository, error) {
	switch cfg.Driver {
	case config.StorageMemory, "":
		return storage.NewMemoryRepository(), nil
	case config.StorageSQLite:
		repo, err := storage.OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return repo, nil
	case config.StoragePostgres:
		repo, err := storage.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func newModelClient(ctx context.Context, cfg config.ClassifierConfig) (ports.ModelClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini, "":
		client, err := llm.NewGeminiClient(ctx, cfg.Gemini, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return client, nil
	case config.ProviderOpenAI:
		return llm.NewOpenAIClient(cfg.OpenAI, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}
