package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv       string
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	JwtSecret    string
	Port         string
	LogFile      string

	OpenAIAPIKey string
	OpenAIModel  string
	OllamaHost   string
	OllamaModel  string
	EmbedDim     int

	MaxFileBytes   int64
	ChunkMaxTokens int
	OverlapTokens  int
	ItemCeiling    int
	BatchCeiling   int
	ProcessLease   time.Duration
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:       getEnv("APP_ENV", "development"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "docuvec-files"),
		JwtSecret:    getEnv("JWT_SECRET", ""),
		Port:         getEnv("PORT", "8080"),
		LogFile:      getEnv("LOG_FILE", "docuvec.log"),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		OllamaHost:   getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:  getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		EmbedDim:     getEnvInt("EMBED_DIM", 1536),

		MaxFileBytes:   int64(getEnvInt("MAX_FILE_BYTES", 200<<20)),
		ChunkMaxTokens: getEnvInt("CHUNK_MAX_TOKENS", 2000),
		OverlapTokens:  getEnvInt("CHUNK_OVERLAP_TOKENS", 200),
		ItemCeiling:    getEnvInt("BATCH_ITEM_CEILING", 300_000),
		BatchCeiling:   getEnvInt("BATCH_REQUEST_CEILING", 250_000),
		ProcessLease:   getEnvDuration("PROCESS_LEASE", 30*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.JwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
