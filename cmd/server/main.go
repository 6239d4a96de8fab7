package main

import (
	"context"
	"os"

	"github.com/Nephrolytics-ai/medscribe/internal/config"
	"github.com/Nephrolytics-ai/medscribe/internal/notes"
	"github.com/Nephrolytics-ai/medscribe/internal/server"
	"github.com/Nephrolytics-ai/medscribe/internal/store"
	"github.com/Nephrolytics-ai/medscribe/internal/transcribe"
	"github.com/Nephrolytics-ai/medscribe/pkg/llms/bedrock"
	"github.com/Nephrolytics-ai/medscribe/pkg/llms/fallback"
	"github.com/Nephrolytics-ai/medscribe/pkg/llms/gemini"
	"github.com/Nephrolytics-ai/medscribe/pkg/llms/openai"
	"github.com/Nephrolytics-ai/medscribe/pkg/logging"
	"github.com/Nephrolytics-ai/medscribe/pkg/model"
)

func main() {
	ctx := context.Background()
	log := logging.NewLogger(ctx)

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Errorf("main: failed to load configuration: %v", err)
		os.Exit(1)
	}

	generationOpts := []model.GeneratorOption{
		model.WithTemperature(cfg.Temperature),
		model.WithTopP(cfg.TopP),
		model.WithMaxTokens(cfg.MaxTokens),
	}

	geminiBackend := gemini.NewBackend(append(generationOpts, model.WithAuthToken(cfg.GeminiAPIKey))...)
	backends := []model.Backend{geminiBackend}
	if cfg.OpenAIAPIKey != "" {
		backends = append(backends, openai.NewBackend(append(generationOpts, model.WithAuthToken(cfg.OpenAIAPIKey))...))
	}
	if cfg.AWSRegion != "" {
		backends = append(backends, bedrock.NewBackend(generationOpts...))
	}

	chain, err := fallback.ParseChain(cfg.ModelChain)
	if err != nil {
		log.Errorf("main: invalid MODEL_CHAIN: %v", err)
		os.Exit(1)
	}
	chain = pruneChain(chain, backends)
	controller, err := fallback.New(fallback.Config{
		Chain:               chain,
		MaxAttemptsPerModel: cfg.MaxAttemptsPerModel,
		AttemptTimeout:      cfg.AttemptTimeout(),
		BaseBackoff:         cfg.BaseBackoff(),
		MaxBackoff:          cfg.MaxBackoff(),
	}, backends...)
	if err != nil {
		log.Errorf("main: failed to build fallback chain: %v", err)
		os.Exit(1)
	}

	templateStore, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		log.Errorf("main: failed to open template store: %v", err)
		os.Exit(1)
	}

	srv := server.New(server.Options{
		Host:           cfg.Host,
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
		Engine:         notes.NewEngine(controller),
		Store:          templateStore,
		Transcriber:    transcribe.NewService(geminiBackend, cfg.TranscriptionModel),
	})
	if err := srv.Run(ctx); err != nil {
		log.Errorf("main: server stopped: %v", err)
		os.Exit(1)
	}
}

// pruneChain drops chain entries whose backend has no credentials configured
// so a partially configured deployment still starts.
func pruneChain(chain []fallback.ModelRef, backends []model.Backend) []fallback.ModelRef {
	available := make(map[string]struct{}, len(backends))
	for _, backend := range backends {
		available[backend.Name()] = struct{}{}
	}
	pruned := chain[:0]
	for _, ref := range chain {
		if _, ok := available[ref.Backend]; ok {
			pruned = append(pruned, ref)
		}
	}
	return pruned
}
