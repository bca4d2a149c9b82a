package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Gemini   GeminiConfig
	Storage  StorageConfig
	Qdrant   QdrantConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

type GeminiConfig struct {
	APIKey         string
	Model          string
	EmbedModel     string
	ScoringTimeout time.Duration
	MaxRetries     int
}

type StorageConfig struct {
	Driver      string
	UploadPath  string
	PublicPath  string
	MaxFileSize int64
	// MaxFiles caps the resumes accepted by a single request.
	MaxFiles int
	S3       S3Config
}

// multipartOverhead covers form fields and part headers.
const multipartOverhead = 1 << 20

// BodyLimit is the largest request body the API reads: a job description
// plus MaxFiles resumes, each at MaxFileSize.
func (s StorageConfig) BodyLimit() int {
	return int(s.MaxFileSize)*(s.MaxFiles+1) + multipartOverhead
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type RedisConfig struct {
	Addr     string
	Password string
	TTL      time.Duration
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type WorkerConfig struct {
	Concurrency int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "jd_matcher"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "./jd_matcher.db"),
		},
		Gemini: GeminiConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			Model:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbedModel:     getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
			ScoringTimeout: getEnvAsDuration("SCORING_TIMEOUT", "60s"),
			MaxRetries:     getEnvAsInt("SCORING_MAX_RETRIES", 2),
		},
		Storage: StorageConfig{
			Driver:      getEnv("STORAGE_DRIVER", "local"),
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			PublicPath:  getEnv("PUBLIC_STORAGE_PATH", "/storage"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 2097152),
			MaxFiles:    getEnvAsInt("MAX_FILES_PER_REQUEST", 20),
			S3: S3Config{
				Bucket:    getEnv("S3_BUCKET", ""),
				Region:    getEnv("S3_REGION", "auto"),
				Endpoint:  getEnv("S3_ENDPOINT", ""),
				AccessKey: getEnv("S3_ACCESS_KEY", ""),
				SecretKey: getEnv("S3_SECRET_KEY", ""),
				PublicURL: getEnv("S3_PUBLIC_URL", ""),
			},
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", ""),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "jd_matcher_resumes"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			TTL:      getEnvAsDuration("CACHE_TTL", "10m"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "analysis_events"),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("INDEX_WORKER_CONCURRENCY", 2),
		},
	}
}

// Validate reports configuration that cannot produce a working server.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if c.Storage.MaxFiles <= 0 {
		return fmt.Errorf("MAX_FILES_PER_REQUEST must be positive")
	}

	return nil
}

func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return fmt.Sprintf("file:%s?_foreign_keys=on", c.Database.SQLitePath)
	}
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
