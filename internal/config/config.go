package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv                   string
	AppName                  string
	APIPrefix                string
	AppPort                  string
	DatabaseURL              string
	RedisURL                 string
	DefaultTone              string
	LogLevel                 string
	JWTSecret                string
	JWTAlgorithm             string
	JWTAudience              string
	JWTIssuer                string
	JWTTTLMinutes            int
	AuthRequired             bool
	GoogleClientID           string
	CORSAllowOrigins         []string
	AIProvider               string
	OpenAIAPIKey             string
	OpenAIModel              string
	OpenAIBaseURL            string
	GeminiAPIKey             string
	GeminiModel              string
	AIMaxOutputTokens        int
	AITimeoutSeconds         int
	AITemperature            float64
	ChatHistoryLimit         int
	TurnLockWaitSeconds      int
	LegacyBareNumberFallback bool
}

func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		AppEnv:         getEnv("APP_ENV", "local"),
		AppName:        getEnv("APP_NAME", "Pension Guru API"),
		APIPrefix:      getEnv("API_PREFIX", ""),
		AppPort:        getEnv("APP_PORT", "8000"),
		DatabaseURL:    getEnv("DATABASE_URL", "sqlite://data/pensionguru.db"),
		RedisURL:       getEnv("REDIS_URL", ""),
		DefaultTone:    getEnv("DEFAULT_TONE", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTAlgorithm:   getEnv("JWT_ALGORITHM", "HS256"),
		JWTAudience:    getEnv("JWT_AUDIENCE", ""),
		JWTIssuer:      getEnv("JWT_ISSUER", ""),
		JWTTTLMinutes:  getEnvInt("JWT_TTL_MINUTES", 60*24),
		AuthRequired:   getEnvBool("AUTH_REQUIRED", false),
		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		CORSAllowOrigins: getEnvCSV(
			"CORS_ALLOW_ORIGINS",
			[]string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"},
		),
		AIProvider:               getEnv("AI_PROVIDER", "openai"),
		OpenAIAPIKey:             getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:              getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
		OpenAIBaseURL:            getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiAPIKey:             getEnv("GEMINI_API_KEY", ""),
		GeminiModel:              getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AIMaxOutputTokens:        getEnvInt("AI_MAX_OUTPUT_TOKENS", 600),
		AITimeoutSeconds:         getEnvInt("AI_TIMEOUT_SECONDS", 20),
		AITemperature:            getEnvFloat("AI_TEMPERATURE", 0.7),
		ChatHistoryLimit:         getEnvInt("CHAT_HISTORY_LIMIT", 10),
		TurnLockWaitSeconds:      getEnvInt("TURN_LOCK_WAIT_SECONDS", 30),
		LegacyBareNumberFallback: getEnvBool("LEGACY_BARE_NUMBER_FALLBACK", false),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.AIProvider)) {
	case "openai", "responses", "gemini", "mock":
	default:
		return errors.New("AI_PROVIDER must be one of: openai, responses, gemini, mock")
	}
	if c.ChatHistoryLimit < 1 || c.ChatHistoryLimit > 50 {
		return errors.New("CHAT_HISTORY_LIMIT must be between 1 and 50")
	}
	secret := strings.TrimSpace(c.JWTSecret)
	if c.AuthRequired && secret == "" {
		return errors.New("JWT_SECRET is required when AUTH_REQUIRED is true")
	}
	if secret != "" {
		if secret == "change-me-in-production" {
			return errors.New("JWT_SECRET must not use insecure default value")
		}
		if len(secret) < 16 {
			return errors.New("JWT_SECRET is too short; use at least 16 characters")
		}
		if strings.TrimSpace(c.JWTAlgorithm) == "" {
			return errors.New("JWT_ALGORITHM is required")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, item := range parts {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}
