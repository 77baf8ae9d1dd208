package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Postgres
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// Microsoft identity platform (mail provider OAuth)
	MSClientID  string
	MSTenantID  string
	MSScopes    string
	TokenFile   string
	GraphAPIURL string

	// OpenAI
	OpenAIAPIKey    string
	CompletionModel string
	EmbeddingModel  string

	// Ingestion
	FetchWindow     time.Duration
	IngestInterval  time.Duration
	InputTokenLimit int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	fetchWindow := 24 * time.Hour
	if w := os.Getenv("FETCH_WINDOW"); w != "" {
		if parsed, err := time.ParseDuration(w); err == nil {
			fetchWindow = parsed
		}
	}

	// 0 disables the built-in periodic ingestion loop
	ingestInterval := time.Duration(0)
	if iv := os.Getenv("INGEST_INTERVAL"); iv != "" {
		if parsed, err := time.ParseDuration(iv); err == nil {
			ingestInterval = parsed
		}
	}

	inputTokenLimit := 3500
	if l := os.Getenv("INPUT_TOKEN_LIMIT"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			inputTokenLimit = parsed
		}
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBHost:          getEnv("DB_HOST_NAME", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBName:          getEnv("MAINTENANCE_DB", "postgres"),
		DBUser:          getEnv("DB_USERNAME", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", ""),
		DBSSLMode:       getEnv("DB_SSL_MODE", "disable"),
		MSClientID:      getEnv("MS_CLIENT_ID", ""),
		MSTenantID:      getEnv("MS_TENANT_ID", "consumers"),
		MSScopes:        getEnv("MS_SCOPES", "Mail.Read offline_access"),
		TokenFile:       getEnv("TOKEN_FILE", "token_cache.json"),
		GraphAPIURL:     getEnv("GRAPH_API_URL", "https://graph.microsoft.com/v1.0"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		CompletionModel: getEnv("COMPLETION_MODEL", "gpt-4o"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		FetchWindow:     fetchWindow,
		IngestInterval:  ingestInterval,
		InputTokenLimit: inputTokenLimit,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
