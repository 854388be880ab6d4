package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the server.
type Config struct {
	GeminiAPIKey    string
	GeminiModel     string
	Port            string
	CORSOrigins     []string
	APITimeout      time.Duration
	MaxFileSize     int64
	MaxArticleChars int
	PromptPath      string
	UnidocLicense   string
}

// Load reads settings from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg := &Config{
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		Port:            getEnv("PORT", "8080"),
		CORSOrigins:     splitOrigins(getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		APITimeout:      time.Duration(getEnvInt("API_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxFileSize:     int64(getEnvInt("MAX_FILE_SIZE_BYTES", 10*1024*1024)),
		MaxArticleChars: getEnvInt("MAX_ARTICLE_CHARS", 24000),
		PromptPath:      os.Getenv("PROMPT_PATH"),
		UnidocLicense:   os.Getenv("UNIDOC_LICENSE_KEY"),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("CONFIG: Invalid value %q for %s, using default %d", value, key, defaultValue)
		return defaultValue
	}
	return n
}

// splitOrigins parses a comma-separated origin list, dropping empty entries.
func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
