package config

import (
	"fmt"
	"log"
	"os"

	"github.com/alkime/practice/internal/keyring"
	"github.com/alkime/practice/internal/workdir"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"
	// EnvDevelopment represents the development environment.
	EnvDevelopment = "development"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Env            string `envconfig:"ENV" default:"development"`
	Port           string `envconfig:"PORT" default:"8080"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"`

	// Security settings
	HSTSMaxAge int    `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode    string `envconfig:"CSP_MODE" default:"relaxed"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage settings. An empty DataDir resolves to the default root.
	DataDir string `envconfig:"PRACTICE_DATA_DIR"`

	// Transcription settings
	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	TranscribeLanguage string `envconfig:"TRANSCRIBE_LANGUAGE"`
}

// LoadConfig loads configuration from .env file and environment variables.
func LoadConfig() (*Config, error) {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist (expected in production)
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	return FromEnv()
}

// FromEnv parses the process environment without reading .env.
func FromEnv() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	root, err := workdir.Root(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	config.DataDir = root

	return &config, nil
}

// ResolveAPIKey returns the configured OpenAI key, falling back to the
// keychain. It returns "" when neither has one.
func (c *Config) ResolveAPIKey() string {
	if c.OpenAIAPIKey != "" {
		return c.OpenAIAPIKey
	}

	key, err := keyring.Get(keyring.OpenAI)
	if err != nil {
		return ""
	}

	return key
}

// BuildCSP constructs Content Security Policy based on mode. The API serves
// audio and JSON only.
func BuildCSP(mode string) string {
	if mode == "strict" {
		return "default-src 'none'; " +
			"media-src 'self'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'none'; " +
			"form-action 'none'"
	}

	// Development/relaxed CSP
	return "default-src 'self'; " +
		"media-src 'self' blob:; " +
		"img-src 'self' data:"
}
