package model

import "context"

// Backend is one generative provider (gemini, openai, bedrock). A backend
// issues exactly one generation call per Generate invocation and classifies
// its own failures into *ProviderError before returning them, so callers
// never inspect provider-specific error types.
type Backend interface {
	Name() string
	Generate(ctx context.Context, modelName string, prompt string, shape ResponseShape) (string, error)
}

// ResponseShape hints the desired output format to a backend. Backends that
// support constrained decoding (gemini) honor Schema; others rely on the
// prompt alone.
type ResponseShape struct {
	MIMEType string
	Schema   map[string]any
}

const (
	MIMETypeText = "text/plain"
	MIMETypeJSON = "application/json"
)

func ShapeText() ResponseShape {
	return ResponseShape{MIMEType: MIMETypeText}
}

func ShapeJSON(schema map[string]any) ResponseShape {
	return ResponseShape{MIMEType: MIMETypeJSON, Schema: schema}
}

func (s ResponseShape) IsJSON() bool {
	return s.MIMEType == MIMETypeJSON
}

type GenerationMetadata map[string]string

const (
	MetadataKeyProvider       = "provider"
	MetadataKeyModel          = "model"
	MetadataKeyLatencyMs      = "latency_ms"
	MetadataKeyInputTokens    = "input_tokens"
	MetadataKeyOutputTokens   = "output_tokens"
	MetadataKeyTotalTokens    = "total_tokens"
	MetadataKeyResponseID     = "response_id"
	MetadataKeyResponseStatus = "response_status"
)

type GeneratorOption interface {
	apply(*GeneratorConfig)
}

type generatorOptionFunc func(*GeneratorConfig)

func (f generatorOptionFunc) apply(cfg *GeneratorConfig) {
	f(cfg)
}

type GeneratorConfig struct {
	URL         string
	AuthToken   string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

func ResolveGeneratorOpts(opts ...GeneratorOption) GeneratorConfig {
	cfg := GeneratorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&cfg)
		}
	}
	return cfg
}

func WithURL(value string) GeneratorOption {
	return generatorOptionFunc(func(cfg *GeneratorConfig) {
		cfg.URL = value
	})
}

func WithAuthToken(value string) GeneratorOption {
	return generatorOptionFunc(func(cfg *GeneratorConfig) {
		cfg.AuthToken = value
	})
}

func WithTemperature(value float64) GeneratorOption {
	return generatorOptionFunc(func(cfg *GeneratorConfig) {
		cfg.Temperature = &value
	})
}

func WithTopP(value float64) GeneratorOption {
	return generatorOptionFunc(func(cfg *GeneratorConfig) {
		cfg.TopP = &value
	})
}

func WithMaxTokens(value int) GeneratorOption {
	return generatorOptionFunc(func(cfg *GeneratorConfig) {
		cfg.MaxTokens = &value
	})
}
