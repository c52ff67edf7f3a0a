package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "config").Logger()

// LoadEnv loads environment variables from .env.local if APP_ENV is "local"
func LoadEnv() {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "development" // Default to development if not set
		os.Setenv("APP_ENV", appEnv)
	}

	if appEnv == "local" {
		err := godotenv.Load(".env.local") // Assumes .env.local exists in root or where app is run
		if err != nil {
			logger.Warn().Err(err).Msg(".env.local not found, relying on system environment variables")
		} else {
			logger.Info().Msg("loaded .env.local for local development")
		}
	} else {
		logger.Info().Msgf("running in %s environment, not loading .env.local", appEnv)
	}
}
