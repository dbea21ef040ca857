package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

type TelegramLoggerConfig struct {
	Token  string
	ChatID string
}

type LoggerConfig struct {
	LogLevel string
	LogFile  string
	Telegram TelegramLoggerConfig
}

type TelegramConfig struct {
	Token       string
	APIEndpoint string
}

type SQLiteConfig struct {
	Path string
}

// AIConfig selects and configures the generation backend.
type AIConfig struct {
	Provider        string
	Model           string
	GeminiAPIKey    string
	AnthropicAPIKey string
	OllamaBaseURL   string
	Timeout         time.Duration
}

// PipelineConfig holds the policy knobs of the inference pipeline.
type PipelineConfig struct {
	FetchTimeout         time.Duration
	MainTextLimit        int
	PromptInputLimit     int
	MinTitleLength       int
	MinDescriptionLength int
	MatchThreshold       float64
	FolderNameMaxLength  int
}

type RateLimitConfig struct {
	PerMinute int
}

type AppConfig struct {
	Environment string
	Server      struct {
		Address string
	}
	Storage struct {
		Driver string
	}
	PSQL      PostgresConfig
	SQLite    SQLiteConfig
	AI        AIConfig
	Pipeline  PipelineConfig
	Logging   LoggerConfig
	Telegram  TelegramConfig
	RateLimit RateLimitConfig
}

func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}

// LoadEnvConfig reads the given env files (".env" when none are given) and
// builds the application config. A missing default .env file is not an error.
func LoadEnvConfig(envFiles ...string) (*AppConfig, error) {
	var cfg AppConfig
	err := godotenv.Load(envFiles...)
	if err != nil && (len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist)) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	cfg.Environment = GetEnvWithDefault("ENVIRONMENT", "development")
	cfg.Server.Address = GetEnvWithDefault("SERVER_ADDRESS", "localhost:8000")

	// Storage
	cfg.Storage.Driver = GetEnvWithDefault("STORAGE_DRIVER", StorageDriverSQLite)
	switch cfg.Storage.Driver {
	case StorageDriverPostgres, StorageDriverSQLite:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
	cfg.PSQL = DefaultPostgresConfig()
	cfg.SQLite = SQLiteConfig{
		Path: GetEnvWithDefault("SQLITE_PATH", "./data/bookmarks.db"),
	}

	// AI
	aiTimeout, err := durationEnv("AI_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.AI = AIConfig{
		Provider:        GetEnvWithDefault("AI_PROVIDER", "ollama"),
		Model:           os.Getenv("AI_MODEL"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaBaseURL:   GetEnvWithDefault("OLLAMA_BASE_URL", "http://localhost:11434"),
		Timeout:         aiTimeout,
	}

	// Pipeline
	cfg.Pipeline, err = loadPipelineConfig()
	if err != nil {
		return nil, err
	}

	cfg.Logging = LoggerConfig{
		LogLevel: GetEnvWithDefault("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
		Telegram: TelegramLoggerConfig{
			Token:  os.Getenv("TELEGRAM_LOGGING_TOKEN"),
			ChatID: os.Getenv("TELEGRAM_LOGGING_CHAT_ID"),
		},
	}

	cfg.Telegram = TelegramConfig{
		Token:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		APIEndpoint: GetEnvWithDefault("TELEGRAM_API_ENDPOINT", "http://localhost:8000/api/v1"),
	}

	perMinute, err := intEnv("RATE_LIMIT_PER_MINUTE", 30)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit = RateLimitConfig{PerMinute: perMinute}

	return &cfg, nil
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		FetchTimeout:         30 * time.Second,
		MainTextLimit:        1000,
		PromptInputLimit:     1500,
		MinTitleLength:       5,
		MinDescriptionLength: 10,
		MatchThreshold:       0.65,
		FolderNameMaxLength:  30,
	}
}

func loadPipelineConfig() (PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	var err error
	if cfg.FetchTimeout, err = durationEnv("FETCH_TIMEOUT", cfg.FetchTimeout); err != nil {
		return cfg, err
	}
	if cfg.MainTextLimit, err = intEnv("MAIN_TEXT_LIMIT", cfg.MainTextLimit); err != nil {
		return cfg, err
	}
	if cfg.PromptInputLimit, err = intEnv("PROMPT_INPUT_LIMIT", cfg.PromptInputLimit); err != nil {
		return cfg, err
	}
	if cfg.MinTitleLength, err = intEnv("MIN_TITLE_LENGTH", cfg.MinTitleLength); err != nil {
		return cfg, err
	}
	if cfg.MinDescriptionLength, err = intEnv("MIN_DESCRIPTION_LENGTH", cfg.MinDescriptionLength); err != nil {
		return cfg, err
	}
	if cfg.FolderNameMaxLength, err = intEnv("FOLDER_NAME_MAX_LENGTH", cfg.FolderNameMaxLength); err != nil {
		return cfg, err
	}
	if v := os.Getenv("MATCH_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("parsing MATCH_THRESHOLD: %w", err)
		}
		if threshold < 0 || threshold > 1 {
			return cfg, fmt.Errorf("MATCH_THRESHOLD must be within [0, 1], got %v", threshold)
		}
		cfg.MatchThreshold = threshold
	}
	return cfg, nil
}

func GetEnvWithDefault(envName, defaultValue string) string {
	if value := os.Getenv(envName); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(envName string, defaultValue int) (int, error) {
	value := os.Getenv(envName)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", envName, err)
	}
	return n, nil
}

func durationEnv(envName string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(envName)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", envName, err)
	}
	return d, nil
}
