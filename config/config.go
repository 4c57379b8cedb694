package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL          string
	Port                 string
	GoEnv                string
	RedisURL             string
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string
	GroupCacheTTLSeconds int
	LogLevel             string
}

var appConfig *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// If environment-specific file doesn't exist, try .env
		if err := godotenv.Load(); err != nil {
			// In production the environment variables are set directly
			// so it's okay if .env files don't exist
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	config := &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		Port:                 getEnv("PORT", "8080"),
		GoEnv:                getEnv("GO_ENV", "development"),
		RedisURL:             getEnv("REDIS_URL", ""),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GroupCacheTTLSeconds: getEnvAsInt("GROUP_CACHE_TTL_SECONDS", 300),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfig = config
	return config, nil
}

// Validate checks that all required configuration values are set.
// Tests run against an injected in-memory database, so DATABASE_URL is only
// mandatory outside the test environment.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && !c.IsTest() {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// GroupCacheTTL returns the configured cache lifetime as a duration
func (c *Config) GroupCacheTTL() time.Duration {
	return time.Duration(c.GroupCacheTTLSeconds) * time.Second
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// GetConfig returns the loaded configuration instance
func GetConfig() *Config {
	return appConfig
}

// SetConfig sets the configuration instance (primarily for testing)
func SetConfig(c *Config) {
	appConfig = c
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
