package app

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/specialistvlad/storeysplit/internal/sink"
)

const envPrefix = "STOREYSPLIT_"

// loadEnv reads a .env file from the working directory when one exists.
// Variables already set in the environment win.
func loadEnv(logger *slog.Logger) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables.")
	}
}

func getEnv(key string) string {
	value, _ := os.LookupEnv(envPrefix + key)
	return value
}

// s3ConfigFromEnv collects the S3 sink settings.
func s3ConfigFromEnv() sink.S3Config {
	return sink.S3Config{
		Region:    getEnv("S3_REGION"),
		Endpoint:  getEnv("S3_ENDPOINT"),
		AccessKey: getEnv("S3_ACCESS_KEY"),
		SecretKey: getEnv("S3_SECRET_KEY"),
	}
}
