package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the bot
type Config struct {
	Chatango ChatangoConfig
	Log      LogConfig
}

// ChatangoConfig holds the account and room configuration
type ChatangoConfig struct {
	Username string   `env:"CHATANGO_USERNAME"`
	Password string   `env:"CHATANGO_PASSWORD"`
	Rooms    []string `env:"CHATANGO_ROOMS" envSeparator:","`
	UsePM    bool     `env:"CHATANGO_PM" envDefault:"false"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Format      string `env:"LOG_FORMAT" envDefault:"text"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// LoadConfig loads configuration from a .env file when present, then the
// environment
func LoadConfig() (*Config, error) {
	// A missing .env file is fine; the environment may carry everything.
	_ = godotenv.Load()

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("config parse failed: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateConfig validates that required configuration fields are present
func validateConfig(config *Config) error {
	if len(config.Chatango.Rooms) == 0 && !config.Chatango.UsePM {
		return fmt.Errorf("CHATANGO_ROOMS or CHATANGO_PM is required")
	}

	if config.Chatango.UsePM && (config.Chatango.Username == "" || config.Chatango.Password == "") {
		return fmt.Errorf("CHATANGO_PM requires CHATANGO_USERNAME and CHATANGO_PASSWORD")
	}

	return nil
}
