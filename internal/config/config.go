package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=stocksense port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	LogLevel    string
	LogEncoding string // console / json

	OpenAIAPIKey  string
	OpenAIBaseURL string // empty = api.openai.com
	OpenAIModel   string
	LLMTimeout    time.Duration

	WebhookTimeout    time.Duration
	KafkaBrokers      []string
	KafkaTopic        string
	IntegrationSecret string // required X-Webhook-Secret on incoming orders when set

	DefaultReorderLevel int
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] .env could not be read: %v", err)
	}

	cfg := &Config{
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:   getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		CORSOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogEncoding:   getEnv("LOG_ENCODING", "console"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "stock-events"),

		IntegrationSecret: getEnv("INTEGRATION_SECRET", ""),
	}

	var err error
	if cfg.LLMTimeout, err = getDuration("LLM_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.WebhookTimeout, err = getDuration("WEBHOOK_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.DefaultReorderLevel, err = getInt("DEFAULT_REORDER_LEVEL", 10); err != nil {
		return nil, err
	}
	if cfg.DefaultReorderLevel < 0 {
		return nil, fmt.Errorf("DEFAULT_REORDER_LEVEL must not be negative")
	}
	cfg.KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", ""))

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN is using the default value, set your own Postgres connection for production.")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("[WARN] OPENAI_API_KEY is not set, AI descriptions and sales predictions are disabled.")
	}

	return cfg, nil
}

// CORSOriginList returns the trimmed, comma separated origins.
func (c *Config) CORSOriginList() []string {
	return splitList(c.CORSOrigins)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
