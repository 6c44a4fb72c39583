package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"

	// EngineSynth is the offline procedural engine.
	EngineSynth = "synth"
	// EngineOpenAI is the remote speech-API engine.
	EngineOpenAI = "openai"
)

// Config holds all application configuration.
type Config struct {
	Env      string `envconfig:"ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP server settings
	Port       string `envconfig:"PORT" default:"8080"`
	HSTSMaxAge int    `envconfig:"HSTS_MAX_AGE" default:"31536000"`

	// Audio device settings
	SampleRate int `envconfig:"SAMPLE_RATE" default:"48000"`
	// RecordSeconds bounds the recording ring; once full, the oldest
	// samples are overwritten.
	RecordSeconds int `envconfig:"RECORD_SECONDS" default:"30"`

	// Inference settings
	Engine       string `envconfig:"ENGINE" default:"synth"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	// SynthSeconds is the duration generated by the offline engine.
	SynthSeconds int `envconfig:"SYNTH_SECONDS" default:"5"`
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

	// Parse environment variables into config struct
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if config.Engine != EngineSynth && config.Engine != EngineOpenAI {
		return nil, fmt.Errorf("invalid engine %q: must be %q or %q",
			config.Engine, EngineSynth, EngineOpenAI)
	}

	return &config, nil
}

// RingCapacity returns the recording ring size in samples.
func (c *Config) RingCapacity() int {
	return c.SampleRate * c.RecordSeconds
}
