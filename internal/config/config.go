// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"context"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"github.com/Nephrolytics-ai/medscribe/pkg/logging"
	"github.com/Nephrolytics-ai/medscribe/pkg/utils"
)

const defaultModelChain = "gemini:gemini-2.5-flash,gemini:gemini-2.5-flash-lite,gemini:gemini-3.0-flash,openai:gpt-5-mini"

type Config struct {
	Host           string `env:"HOST,default=0.0.0.0"`
	Port           int    `env:"PORT,default=8000"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=*"`

	DBPath string `env:"DB_PATH,default=templates.db"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	AWSRegion    string `env:"AWS_REGION"`

	// ModelChain is the ordered fallback list, comma-separated backend:model
	// pairs.
	ModelChain string `env:"MODEL_CHAIN"`

	TranscriptionModel string `env:"TRANSCRIPTION_MODEL,default=gemini-2.5-flash"`

	MaxAttemptsPerModel   int `env:"MAX_ATTEMPTS_PER_MODEL,default=3"`
	AttemptTimeoutSeconds int `env:"ATTEMPT_TIMEOUT_SECONDS,default=90"`
	BaseBackoffSeconds    int `env:"BASE_BACKOFF_SECONDS,default=2"`
	MaxBackoffSeconds     int `env:"MAX_BACKOFF_SECONDS,default=30"`

	Temperature float64 `env:"TEMPERATURE,default=0.2"`
	TopP        float64 `env:"TOP_P,default=0.95"`
	MaxTokens   int     `env:"MAX_TOKENS,default=65536"`
}

// Load reads .env if present, then the process environment.
func Load(ctx context.Context) (*Config, error) {
	log := logging.NewLogger(ctx)
	if err := godotenv.Load(); err != nil {
		log.Debugf("config: no .env file loaded: %v", err)
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	if cfg.ModelChain == "" {
		cfg.ModelChain = defaultModelChain
	}
	return &cfg, nil
}

func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSeconds) * time.Second
}

func (c *Config) BaseBackoff() time.Duration {
	return time.Duration(c.BaseBackoffSeconds) * time.Second
}

func (c *Config) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffSeconds) * time.Second
}
