package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr    string
	DataPath      string
	CatalogURL    string
	AdminEmail    string
	AdminHash     string
	DefaultTag    string
	FetchTimeout  time.Duration
	DBBusyTimeout time.Duration
}

func Load() Config {
	loadDotEnv()

	cfg := Config{
		ListenAddr: envOr("BLOG_LISTEN_ADDR", "127.0.0.1:8080"),
		DataPath:   os.Getenv("BLOG_DATA_PATH"),
		CatalogURL: os.Getenv("BLOG_CATALOG_URL"),
		AdminEmail: os.Getenv("BLOG_ADMIN_EMAIL"),
		AdminHash:  os.Getenv("BLOG_ADMIN_HASH"),
		DefaultTag: envOr("BLOG_DEFAULT_TAG", "Development"),
	}

	cfg.FetchTimeout = parseDurationOr("BLOG_FETCH_TIMEOUT", 10*time.Second)
	cfg.DBBusyTimeout = parseDurationOr("BLOG_DB_BUSY_TIMEOUT", 5*time.Second)
	return cfg
}

// loadDotEnv layers env files so the most specific one wins. Variables
// already present in the environment always take precedence.
func loadDotEnv() {
	env := envOr("BLOG_ENV", "dev")
	_ = godotenv.Load(".env." + env + ".local")
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env." + env)
	_ = godotenv.Load(".env")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
