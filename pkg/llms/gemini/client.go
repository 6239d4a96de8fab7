package gemini

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/medscribe/pkg/model"
	"github.com/Nephrolytics-ai/medscribe/pkg/utils"
	"google.golang.org/genai"
)

const (
	providerName     = "gemini"
	defaultModelName = "gemini-2.5-flash"
)

func newAPIClient(ctx context.Context, cfg model.GeneratorConfig) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	}

	token := strings.TrimSpace(cfg.AuthToken)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if token != "" {
		clientCfg.APIKey = token
	}

	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{
			BaseURL: baseURL,
		}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return client, nil
}

func initMetadata(modelName string) model.GenerationMetadata {
	if strings.TrimSpace(modelName) == "" {
		modelName = "unknown"
	}

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

func resolveModelName(modelName string) string {
	if name := strings.TrimSpace(modelName); name != "" {
		return name
	}
	return defaultModelName
}

func applyResponseMetadata(meta model.GenerationMetadata, response *genai.GenerateContentResponse) {
	if meta == nil || response == nil {
		return
	}

	if usage := response.UsageMetadata; usage != nil {
		meta[model.MetadataKeyInputTokens] = strconv.Itoa(int(usage.PromptTokenCount))
		meta[model.MetadataKeyOutputTokens] = strconv.Itoa(int(usage.CandidatesTokenCount))
		meta[model.MetadataKeyTotalTokens] = strconv.Itoa(int(usage.TotalTokenCount))
	}
	if strings.TrimSpace(response.ResponseID) != "" {
		meta[model.MetadataKeyResponseID] = response.ResponseID
	}
	if len(response.Candidates) > 0 && response.Candidates[0] != nil {
		meta[model.MetadataKeyResponseStatus] = string(response.Candidates[0].FinishReason)
	}
}

// classify wraps a genai failure into a ProviderError carrying the fallback
// classification. Status codes win; the keyword scan covers transport errors
// that never reached the API.
func classify(modelName string, err error) error {
	if err == nil {
		return nil
	}

	kind := model.ClassifyMessage(err)
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		kind = model.ClassifyStatus(apiErr.Code)
	}
	return model.NewProviderError(providerName, modelName, kind, err)
}
