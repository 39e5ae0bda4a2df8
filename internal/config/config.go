package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath             string
	ServerPort         string
	LogLevel           string
	MatchesDir         string
	RatingConfigPath   string
	SpecialMatchesPath string
	AdjustmentsPath    string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:             getEnv("DB_PATH", "ranked.db"),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MatchesDir:         getEnv("MATCHES_DIR", ""),
		RatingConfigPath:   getEnv("RATING_CONFIG_PATH", ""),
		SpecialMatchesPath: getEnv("SPECIAL_MATCHES_PATH", ""),
		AdjustmentsPath:    getEnv("MMR_ADJUSTMENTS_PATH", ""),
	}

	if cfg.MatchesDir == "" {
		return nil, fmt.Errorf("MATCHES_DIR is required")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("matches_dir", cfg.MatchesDir).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
