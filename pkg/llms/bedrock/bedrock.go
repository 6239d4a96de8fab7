package bedrock

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/medscribe/pkg/logging"
	"github.com/Nephrolytics-ai/medscribe/pkg/model"
	"github.com/Nephrolytics-ai/medscribe/pkg/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

const (
	providerName     = "bedrock"
	defaultModelName = "us.anthropic.claude-3-5-sonnet-20241022-v2:0"
	defaultRegion    = "us-east-1"
)

// Backend generates content through the Bedrock Converse API.
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
	client, err := newClient(ctx, b.cfg)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", model.NewProviderError(providerName, modelName, model.FailureFatal, err)
	}

	// Converse has no constrained decoding; for JSON shapes the instruction
	// rides on the prompt.
	if shape.IsJSON() {
		prompt += "\n\nReturn only valid JSON, with no surrounding prose or code fences."
	}

	messages := []bedrocktypes.Message{
		{
			Role: bedrocktypes.ConversationRoleUser,
			Content: []bedrocktypes.ContentBlock{
				&bedrocktypes.ContentBlockMemberText{Value: prompt},
			},
		},
	}

	log.Infof("bedrock.Generate model=%q prompt_len=%d mime=%q", modelName, len(prompt), shape.MIMEType)

	output, err := client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(modelName),
		Messages:        messages,
		InferenceConfig: buildInferenceConfig(b.cfg),
	})
	if err != nil {
		log.Errorf("error: %v", err)
		return "", classify(modelName, err)
	}

	applyConverseMetadata(meta, output)
	message, err := extractOutputMessage(output.Output)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", model.NewProviderError(providerName, modelName, model.FailureTransient, err)
	}

	text := extractTextFromMessage(message)
	if text == "" {
		err = errors.New("converse response is empty")
		log.Errorf("error: %v", err)
		return "", model.NewProviderError(providerName, modelName, model.FailureTransient, err)
	}

	return text, nil
}

func newClient(ctx context.Context, cfg model.GeneratorConfig) (*bedrockruntime.Client, error) {
	awsCfg, err := loadAWSConfig(ctx)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if strings.TrimSpace(cfg.URL) != "" {
			o.BaseEndpoint = aws.String(strings.TrimSpace(cfg.URL))
		}
	})
	return client, nil
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	region := strings.TrimSpace(os.Getenv("AWS_REGION"))
	if region == "" {
		region = defaultRegion
	}

	accessKeyID := strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	secretAccessKey := strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	profile := strings.TrimSpace(os.Getenv("AWS_PROFILE"))

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	switch {
	case accessKeyID != "" || secretAccessKey != "":
		if accessKeyID == "" || secretAccessKey == "" {
			return aws.Config{}, utils.WrapIfNotNil(
				errors.New("both AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required when using key-based auth"),
			)
		}

		sessionToken := strings.TrimSpace(os.Getenv("AWS_SESSION_TOKEN"))
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken),
		))
	case profile != "":
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(profile))
	default:
		return aws.Config{}, utils.WrapIfNotNil(
			errors.New("missing AWS credentials: set AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY or AWS_PROFILE"),
		)
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, utils.WrapIfNotNil(err)
	}
	return cfg, nil
}

func buildInferenceConfig(cfg model.GeneratorConfig) *bedrocktypes.InferenceConfiguration {
	if cfg.Temperature == nil && cfg.TopP == nil && cfg.MaxTokens == nil {
		return nil
	}

	inference := &bedrocktypes.InferenceConfiguration{}
	if cfg.Temperature != nil {
		temp := float32(*cfg.Temperature)
		inference.Temperature = &temp
	}
	if cfg.TopP != nil {
		topP := float32(*cfg.TopP)
		inference.TopP = &topP
	}
	if cfg.MaxTokens != nil {
		maxTokens := int32(*cfg.MaxTokens)
		inference.MaxTokens = &maxTokens
	}
	return inference
}

func extractOutputMessage(output bedrocktypes.ConverseOutput) (bedrocktypes.Message, error) {
	if output == nil {
		return bedrocktypes.Message{}, utils.WrapIfNotNil(errors.New("converse output is nil"))
	}

	messageOutput, ok := output.(*bedrocktypes.ConverseOutputMemberMessage)
	if !ok || messageOutput == nil {
		return bedrocktypes.Message{}, utils.WrapIfNotNil(errors.New("converse output is not a message"))
	}
	return messageOutput.Value, nil
}

func extractTextFromMessage(message bedrocktypes.Message) string {
	parts := make([]string, 0)
	for _, block := range message.Content {
		textBlock, ok := block.(*bedrocktypes.ContentBlockMemberText)
		if !ok || textBlock == nil {
			continue
		}
		value := strings.TrimSpace(textBlock.Value)
		if value == "" {
			continue
		}
		parts = append(parts, value)
	}
	return strings.Join(parts, "\n")
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

func applyConverseMetadata(meta model.GenerationMetadata, output *bedrockruntime.ConverseOutput) {
	if meta == nil || output == nil {
		return
	}
	if output.Usage != nil {
		meta[model.MetadataKeyInputTokens] = strconv.Itoa(int(aws.ToInt32(output.Usage.InputTokens)))
		meta[model.MetadataKeyOutputTokens] = strconv.Itoa(int(aws.ToInt32(output.Usage.OutputTokens)))
		meta[model.MetadataKeyTotalTokens] = strconv.Itoa(int(aws.ToInt32(output.Usage.TotalTokens)))
	}
	meta[model.MetadataKeyResponseStatus] = string(output.StopReason)
}

var throttlingCodes = map[string]struct{}{
	"ThrottlingException":           {},
	"TooManyRequestsException":      {},
	"ServiceQuotaExceededException": {},
}

var transientCodes = map[string]struct{}{
	"ServiceUnavailableException": {},
	"InternalServerException":     {},
	"ModelTimeoutException":       {},
	"ModelNotReadyException":      {},
}

func classify(modelName string, err error) error {
	if err == nil {
		return nil
	}

	kind := model.ClassifyMessage(err)
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case hasCode(throttlingCodes, code):
			kind = model.FailureQuotaExceeded
		case hasCode(transientCodes, code):
			kind = model.FailureTransient
		default:
			kind = model.FailureFatal
		}
	}
	return model.NewProviderError(providerName, modelName, kind, err)
}

func hasCode(codes map[string]struct{}, code string) bool {
	_, ok := codes[code]
	return ok
}
