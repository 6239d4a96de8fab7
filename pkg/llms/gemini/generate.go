package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/medscribe/pkg/logging"
	"github.com/Nephrolytics-ai/medscribe/pkg/model"
	"github.com/Nephrolytics-ai/medscribe/pkg/utils"
	"google.golang.org/genai"
)

// Backend generates content through the Gemini API. It is stateless: every
// Generate call builds its own client from the configured options.
type Backend struct {
	cfg model.GeneratorConfig
}

func NewBackend(opts ...model.GeneratorOption) *Backend {
	return &Backend{cfg: model.ResolveGeneratorOpts(opts...)}
}

func (b *Backend) Name() string {
	return providerName
}

func (b *Backend) Generate(ctx context.Context, modelName string, prompt string, shape model.ResponseShape) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", utils.WrapIfNotNil(errors.New("prompt is required"))
	}

	start := time.Now()
	modelName = resolveModelName(modelName)
	meta := initMetadata(modelName)
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	client, err := newAPIClient(ctx, b.cfg)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", classify(modelName, err)
	}

	config := buildGenerateContentConfig(b.cfg, shape)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	log.Infof(
		"gemini.Generate model=%q prompt_len=%d mime=%q temperature=%v max_tokens=%v",
		modelName,
		len(prompt),
		shape.MIMEType,
		b.cfg.Temperature,
		b.cfg.MaxTokens,
	)

	response, err := client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", classify(modelName, err)
	}

	applyResponseMetadata(meta, response)
	text := strings.TrimSpace(response.Text())
	if text == "" {
		err = errors.New("response output is empty")
		log.Errorf("error: %v", err)
		return "", model.NewProviderError(providerName, modelName, model.FailureTransient, err)
	}

	log.Debugf("gemini.Generate done model=%q latency_ms=%s output_len=%d",
		modelName, meta[model.MetadataKeyLatencyMs], len(text))
	return text, nil
}

func buildGenerateContentConfig(cfg model.GeneratorConfig, shape model.ResponseShape) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if cfg.Temperature != nil {
		temp := float32(*cfg.Temperature)
		config.Temperature = &temp
	}
	if cfg.TopP != nil {
		topP := float32(*cfg.TopP)
		config.TopP = &topP
	}
	if cfg.MaxTokens != nil {
		config.MaxOutputTokens = int32(*cfg.MaxTokens)
	}
	if shape.IsJSON() {
		config.ResponseMIMEType = model.MIMETypeJSON
		if shape.Schema != nil {
			config.ResponseJsonSchema = shape.Schema
		}
	}

	return config
}
