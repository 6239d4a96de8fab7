package openai

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/medscribe/pkg/logging"
	"github.com/Nephrolytics-ai/medscribe/pkg/model"
	"github.com/Nephrolytics-ai/medscribe/pkg/utils"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

const (
	providerName     = "openai"
	defaultModelName = "gpt-5-mini"
)

// Backend generates content through the OpenAI Responses API.
type Backend struct {
	cfg       model.GeneratorConfig
	apiClient openai.Client
}

func NewBackend(opts ...model.GeneratorOption) *Backend {
	cfg := model.ResolveGeneratorOpts(opts...)

	requestOpts := make([]option.RequestOption, 0, 2)
	if cfg.URL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.URL))
	}
	if cfg.AuthToken != "" {
		requestOpts = append(requestOpts, option.WithAPIKey(cfg.AuthToken))
	}

	return &Backend{cfg: cfg, apiClient: openai.NewClient(requestOpts...)}
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
	params := responses.ResponseNewParams{
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
		Model: shared.ResponsesModel(modelName),
	}
	if b.cfg.Temperature != nil {
		params.Temperature = openai.Float(*b.cfg.Temperature)
	}
	if b.cfg.TopP != nil {
		params.TopP = openai.Float(*b.cfg.TopP)
	}
	if b.cfg.MaxTokens != nil {
		params.MaxOutputTokens = openai.Int(int64(*b.cfg.MaxTokens))
	}
	if shape.IsJSON() && shape.Schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   "structured_output",
					Schema: shape.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	log.Infof(
		"openai.Generate model=%q prompt_len=%d mime=%q temperature=%v max_tokens=%v",
		modelName,
		len(prompt),
		shape.MIMEType,
		b.cfg.Temperature,
		b.cfg.MaxTokens,
	)

	response, err := b.apiClient.Responses.New(ctx, params)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", classify(modelName, err)
	}

	applyResponseMetadata(meta, response)
	text := strings.TrimSpace(response.OutputText())
	if text == "" {
		err = errors.New("response output is empty")
		log.Errorf("error: %v", err)
		return "", model.NewProviderError(providerName, modelName, model.FailureTransient, err)
	}

	return text, nil
}

func resolveModelName(modelName string) string {
	if name := strings.TrimSpace(modelName); name != "" {
		return name
	}
	return defaultModelName
}

func initMetadata(modelName string) model.GenerationMetadata {
	return model.GenerationMetadata{
		model.MetadataKeyProvider: providerName,
		model.MetadataKeyModel:    modelName,
	}
}

func setLatencyMetadata(meta model.GenerationMetadata, start time.Time) {
	if meta == nil {
		return
	}
	meta[model.MetadataKeyLatencyMs] = strconv.FormatInt(time.Since(start).Milliseconds(), 10)
}

func applyResponseMetadata(meta model.GenerationMetadata, response *responses.Response) {
	if meta == nil || response == nil {
		return
	}
	meta[model.MetadataKeyInputTokens] = strconv.FormatInt(response.Usage.InputTokens, 10)
	meta[model.MetadataKeyOutputTokens] = strconv.FormatInt(response.Usage.OutputTokens, 10)
	meta[model.MetadataKeyTotalTokens] = strconv.FormatInt(response.Usage.TotalTokens, 10)
	if strings.TrimSpace(response.ID) != "" {
		meta[model.MetadataKeyResponseID] = response.ID
	}
	meta[model.MetadataKeyResponseStatus] = string(response.Status)
}

func classify(modelName string, err error) error {
	if err == nil {
		return nil
	}

	kind := model.ClassifyMessage(err)
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		kind = model.ClassifyStatus(apiErr.StatusCode)
	}
	return model.NewProviderError(providerName, modelName, kind, err)
}
