package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Ai       AIConfig
	Topics   TopicConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	SalesTeamEmail     string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type AIConfig struct {
	LLMProvider      string // "ollama" or "openai-compat"
	LLMModel         string // e.g. "llama3", "qwen2.5"
	LLMBaseURL       string
	LLMAPIKey        string
	EmbeddingBaseURL string
	EmbeddingModel   string
}

type TopicConfig struct {
	PageCrawled string // crawler output, consumed by the enrichment pipeline
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			SalesTeamEmail:     getEnv("SALES_TEAM_EMAIL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "LeadQualify"),
		},
		Ai: AIConfig{
			LLMProvider:      getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:         getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:       getEnv("LLM_BASE_URL", "http://localhost:11434"),
			LLMAPIKey:        getEnv("LLM_API_KEY", ""),
			EmbeddingBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel:   getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Topics: TopicConfig{
			PageCrawled: getEnv("PAGE_CRAWLED_TOPIC_NAME", "PAGE_CRAWLED"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
