package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone       = "UTC"
	defaultFeedbackColumn = "Student Comment"
	defaultMaxFileBytes   = 10 << 20

	configPathEnv     = "FEEDBACK_INSIGHTS_CONFIG"
	portEnv           = "PORT"
	logLevelEnv       = "LOG_LEVEL"
	feedbackColumnEnv = "FEEDBACK_COLUMN"
	uploadWorkersEnv  = "UPLOAD_WORKERS"
	storageDriverEnv  = "STORAGE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	providerEnv       = "CLASSIFIER_PROVIDER"
	geminiAPIKeyEnv   = "GEMINI_API_KEY"
	geminiModelEnv    = "GEMINI_MODEL"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	openAIModelEnv    = "OPENAI_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	digestIntervalEnv = "DIGEST_INTERVAL"
)

// Storage drivers and classifier providers understood by the application.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Upload        UploadConfig       `yaml:"upload"`
	Storage       StorageConfig      `yaml:"storage"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Notifications NotificationConfig `yaml:"notifications"`
	Digest        DigestConfig       `yaml:"digest"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// UploadConfig controls how uploaded tables are read and classified.
type UploadConfig struct {
	FeedbackColumn string        `yaml:"feedbackColumn"`
	Workers        int           `yaml:"workers"`
	MaxFileBytes   int64         `yaml:"maxFileBytes"`
	Timeout        time.Duration `yaml:"timeout"`
}

// StorageConfig selects the repository backend.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ClassifierConfig selects and configures the text-understanding model.
type ClassifierConfig struct {
	Provider string        `yaml:"provider"`
	Timeout  time.Duration `yaml:"timeout"`
	Gemini   GeminiConfig  `yaml:"gemini"`
	OpenAI   OpenAIConfig  `yaml:"openai"`
}

// GeminiConfig defines how to contact the Gemini API.
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// OpenAIConfig defines how to contact an OpenAI-compatible chat API.
type OpenAIConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// DigestConfig defines how often the priority digest is published. A zero
// interval disables it.
type DigestConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the digest timezone string to a time.Location.
func (d DigestConfig) Location() *time.Location {
	if d.location != nil {
		return d.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads .env and YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate reports settings the application cannot run with.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Upload.FeedbackColumn) == "" {
		errs = append(errs, errors.New("upload.feedbackColumn is required"))
	}
	if c.Upload.Workers <= 0 {
		errs = append(errs, fmt.Errorf("upload.workers must be positive, got %d", c.Upload.Workers))
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite, StoragePostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for driver %s", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	switch c.Classifier.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown classifier provider %q", c.Classifier.Provider))
	}

	return errors.Join(errs...)
}

// ValidateClassifier reports a missing API key for the selected provider.
// Only commands that classify feedback need it.
func (c Config) ValidateClassifier() error {
	switch c.Classifier.Provider {
	case ProviderGemini:
		if c.Classifier.Gemini.APIKey == "" {
			return fmt.Errorf("%s is required for the gemini provider", geminiAPIKeyEnv)
		}
	case ProviderOpenAI:
		if c.Classifier.OpenAI.APIKey == "" {
			return fmt.Errorf("%s is required for the openai provider", openAIAPIKeyEnv)
		}
	default:
		return fmt.Errorf("unknown classifier provider %q", c.Classifier.Provider)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(portEnv); v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(feedbackColumnEnv); v != "" {
		c.Upload.FeedbackColumn = v
	}

	if v := os.Getenv(uploadWorkersEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Upload.Workers = n
		} else {
			log.Printf("config: ignoring %s=%q: %v", uploadWorkersEnv, v, err)
		}
	}

	if v := os.Getenv(storageDriverEnv); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
	}

	if v := os.Getenv(providerEnv); v != "" {
		c.Classifier.Provider = strings.ToLower(v)
	}

	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Classifier.Gemini.APIKey = v
	}

	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Classifier.Gemini.Model = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.Classifier.OpenAI.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.Classifier.OpenAI.Model = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(digestIntervalEnv); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Digest.Interval = d
		} else {
			log.Printf("config: ignoring %s=%q: %v", digestIntervalEnv, v, err)
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Digest.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Digest.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	if override.Upload.FeedbackColumn != "" {
		base.Upload.FeedbackColumn = override.Upload.FeedbackColumn
	}
	if override.Upload.Workers != 0 {
		base.Upload.Workers = override.Upload.Workers
	}
	if override.Upload.MaxFileBytes != 0 {
		base.Upload.MaxFileBytes = override.Upload.MaxFileBytes
	}
	if override.Upload.Timeout != 0 {
		base.Upload.Timeout = override.Upload.Timeout
	}

	if override.Storage.Driver != "" {
		base.Storage = override.Storage
	}

	if override.Classifier.Provider != "" {
		base.Classifier.Provider = override.Classifier.Provider
	}
	if override.Classifier.Timeout != 0 {
		base.Classifier.Timeout = override.Classifier.Timeout
	}
	if override.Classifier.Gemini.APIKey != "" {
		base.Classifier.Gemini.APIKey = override.Classifier.Gemini.APIKey
	}
	if override.Classifier.Gemini.Model != "" {
		base.Classifier.Gemini.Model = override.Classifier.Gemini.Model
	}
	if override.Classifier.OpenAI.Endpoint != "" {
		base.Classifier.OpenAI.Endpoint = override.Classifier.OpenAI.Endpoint
	}
	if override.Classifier.OpenAI.Model != "" {
		base.Classifier.OpenAI.Model = override.Classifier.OpenAI.Model
	}
	if override.Classifier.OpenAI.APIKey != "" {
		base.Classifier.OpenAI.APIKey = override.Classifier.OpenAI.APIKey
	}
	if override.Classifier.OpenAI.SystemPrompt != "" {
		base.Classifier.OpenAI.SystemPrompt = override.Classifier.OpenAI.SystemPrompt
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Digest.Interval != 0 {
		base.Digest.Interval = override.Digest.Interval
	}
	if override.Digest.Timezone != "" {
		base.Digest.Timezone = override.Digest.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Server: ServerConfig{Addr: ":5000"},
		Upload: UploadConfig{
			FeedbackColumn: defaultFeedbackColumn,
			Workers:        4,
			MaxFileBytes:   defaultMaxFileBytes,
			Timeout:        5 * time.Minute,
		},
		Storage: StorageConfig{Driver: StorageMemory},
		Classifier: ClassifierConfig{
			Provider: ProviderGemini,
			Timeout:  30 * time.Second,
			Gemini:   GeminiConfig{Model: "gemini-2.5-flash"},
			OpenAI: OpenAIConfig{
				Endpoint:     "https://api.openai.com/v1/chat/completions",
				Model:        "gpt-4o-mini",
				SystemPrompt: "You classify student feedback and answer with a single JSON object.",
			},
		},
		Digest:  DigestConfig{Timezone: defaultTimezone, location: tz},
		Logging: LoggingConfig{Level: "debug"},
	}
}
