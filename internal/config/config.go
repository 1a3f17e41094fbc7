package config

import (
	"fmt"
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type Config struct {
	BotToken    string
	APIHost     string
	APIPort     string
	Environment string
	// Debug flags
	Debug bool // Enables DEBUG level logging
	// Log file rotation
	LogDir      string
	LogMaxFiles int
}

func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "dev")

	cfg := &Config{
		BotToken:    getEnv("BOT_TOKEN", ""),
		APIHost:     getEnv("API_HOST", "localhost"),
		APIPort:     getEnv("API_PORT", "8000"),
		Environment: env,
		// Debug defaults to true in dev/test, false in production
		Debug:       getEnv("DEBUG", getDefaultDebug(env)) == "true",
		LogDir:      getEnv("LOG_DIR", "logs"),
		LogMaxFiles: getEnvInt("LOG_MAX_FILES", 10),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BotToken, validation.Required),
		validation.Field(&c.APIHost, validation.Required),
		validation.Field(&c.APIPort, validation.Required, is.Digit),
		validation.Field(&c.LogMaxFiles, validation.Min(1)),
	)
}

// TaskAPIBaseURL is the root of the task-management backend.
func (c *Config) TaskAPIBaseURL() string {
	return fmt.Sprintf("http://%s:%s", c.APIHost, c.APIPort)
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
