package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// GameFile is a YAML game description. Empty selects the built-in Doom 3 one.
	GameFile string
	// MapVersion overrides the game's required map version when non-zero.
	MapVersion float32
	// Debug enables the game's debug import filters.
	Debug bool

	DatabaseURL   string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	WorkerCount  int
	LogLevel     string
	MetricsAddr  string
	SnapshotPath string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	return &Config{
		GameFile:      getEnv("GAME_FILE", ""),
		MapVersion:    getEnvFloat32("MAP_VERSION", 0),
		Debug:         getEnvBool("DEBUG", false),
		DatabaseURL:   getEnv("DATABASE_URL", "postgres://localhost:5432/mapreader?sslmode=disable"),
		Neo4jURI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", "password"),
		WorkerCount:   getEnvInt("WORKER_COUNT", 4),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		MetricsAddr:   getEnv("METRICS_ADDR", ""),
		SnapshotPath:  getEnv("SNAPSHOT_PATH", "mapreader.db"),
	}
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat32(key string, fallback float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring invalid number")
		return fallback
	}
	return float32(f)
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
