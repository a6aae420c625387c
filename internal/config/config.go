package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Qdrant    QdrantConfig
	Gemini    GeminiConfig
	Auth      AuthConfig
	Log       LogConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Interview InterviewConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	CORSOrigins string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type QdrantConfig struct {
	Enabled    bool
	URL        string
	APIKey     string
	Collection string
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
}

type AuthConfig struct {
	JWTSecret string
}

type LogConfig struct {
	Level string
	File  string
}

// StorageConfig holds where uploaded course material is kept.
type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

// WorkerConfig sizes the background material indexer.
type WorkerConfig struct {
	Concurrency int
	QueueSize   int
}

// InterviewConfig holds the retake policy and the limits applied to AI output.
type InterviewConfig struct {
	MinPassScore          int
	MaxAttempts           int
	Cooldown              time.Duration
	MinQuestions          int
	MaxQuestions          int
	CommitTimeout         time.Duration
	StartTimeout          time.Duration
	QuestionRetryAttempts int
	ContextChunks         int
}

// DefaultInterviewConfig returns the production policy.
func DefaultInterviewConfig() InterviewConfig {
	return InterviewConfig{
		MinPassScore:          70,
		MaxAttempts:           3,
		Cooldown:              7 * 24 * time.Hour,
		MinQuestions:          8,
		MaxQuestions:          15,
		CommitTimeout:         10 * time.Second,
		StartTimeout:          60 * time.Second,
		QuestionRetryAttempts: 3,
		ContextChunks:         4,
	}
}

func (c InterviewConfig) Validate() error {
	switch {
	case c.MinPassScore < 0 || c.MinPassScore > 100:
		return fmt.Errorf("min pass score %d outside [0,100]", c.MinPassScore)
	case c.MaxAttempts < 1:
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	case c.Cooldown < 0:
		return fmt.Errorf("cooldown must not be negative, got %s", c.Cooldown)
	case c.MinQuestions < 1 || c.MaxQuestions < c.MinQuestions:
		return fmt.Errorf("invalid question bounds [%d,%d]", c.MinQuestions, c.MaxQuestions)
	case c.CommitTimeout <= 0:
		return errors.New("commit timeout must be positive")
	case c.StartTimeout <= 0:
		return errors.New("start timeout must be positive")
	}
	return nil
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using environment and default values.")
	}

	defaults := DefaultInterviewConfig()

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "5000"),
			Env:         getEnv("ENV", "development"),
			CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "learnpath"),
		},
		Qdrant: QdrantConfig{
			Enabled:    getEnvAsBool("QDRANT_ENABLED", false),
			URL:        getEnv("QDRANT_URL", "http://localhost:6334"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "course_material"),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			Model:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 2),
			QueueSize:   getEnvAsInt("WORKER_QUEUE_SIZE", 100),
		},
		Interview: InterviewConfig{
			MinPassScore:          getEnvAsInt("INTERVIEW_MIN_PASS_SCORE", defaults.MinPassScore),
			MaxAttempts:           getEnvAsInt("INTERVIEW_MAX_ATTEMPTS", defaults.MaxAttempts),
			Cooldown:              getEnvAsDuration("INTERVIEW_COOLDOWN", defaults.Cooldown.String()),
			MinQuestions:          getEnvAsInt("INTERVIEW_MIN_QUESTIONS", defaults.MinQuestions),
			MaxQuestions:          getEnvAsInt("INTERVIEW_MAX_QUESTIONS", defaults.MaxQuestions),
			CommitTimeout:         getEnvAsDuration("INTERVIEW_COMMIT_TIMEOUT", defaults.CommitTimeout.String()),
			StartTimeout:          getEnvAsDuration("INTERVIEW_START_TIMEOUT", defaults.StartTimeout.String()),
			QuestionRetryAttempts: getEnvAsInt("QUESTION_RETRY_MAX_ATTEMPTS", defaults.QuestionRetryAttempts),
			ContextChunks:         getEnvAsInt("INTERVIEW_CONTEXT_CHUNKS", defaults.ContextChunks),
		},
	}
}

// Validate fails on settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.Worker.Concurrency)
	}
	if err := c.Interview.Validate(); err != nil {
		return fmt.Errorf("interview config: %w", err)
	}
	return nil
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
