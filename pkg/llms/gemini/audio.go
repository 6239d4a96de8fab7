package gemini

import (
	"context"
	"errors"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/medscribe/pkg/logging"
	"github.com/Nephrolytics-ai/medscribe/pkg/utils"
	"google.golang.org/genai"
)

const transcriptionPrompt = "Transcribe this audio accurately. Return only the transcript text, " +
	"with no commentary, headings, or speaker labels unless they are spoken."

// TranscribeFile sends the audio bytes inline with a transcription prompt and
// returns the raw transcript.
func (b *Backend) TranscribeFile(ctx context.Context, modelName string, filePath string) (string, error) {
	if strings.TrimSpace(filePath) == "" {
		return "", utils.WrapIfNotNil(errors.New("file path is required"))
	}

	start := time.Now()
	modelName = resolveModelName(modelName)
	meta := initMetadata(modelName)
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	audioBytes, err := os.ReadFile(filePath)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", utils.WrapIfNotNil(err)
	}
	if len(audioBytes) == 0 {
		err = errors.New("audio file is empty")
		log.Errorf("error: %v", err)
		return "", utils.WrapIfNotNil(err)
	}

	mimeType, err := resolveAudioMIMEType(filePath)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", utils.WrapIfNotNil(err)
	}

	client, err := newAPIClient(ctx, b.cfg)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", classify(modelName, err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(
			[]*genai.Part{
				genai.NewPartFromText(transcriptionPrompt),
				genai.NewPartFromBytes(audioBytes, mimeType),
			},
			genai.RoleUser,
		),
	}

	// Low temperature keeps the transcript literal.
	temperature := float32(0.1)
	response, err := client.Models.GenerateContent(ctx, modelName, contents, &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		log.Errorf("error: %v", err)
		return "", classify(modelName, err)
	}

	transcript := strings.TrimSpace(response.Text())
	if transcript == "" {
		err = errors.New("transcription response is empty")
		log.Errorf("error: %v", err)
		return "", utils.WrapIfNotNil(err)
	}

	applyResponseMetadata(meta, response)
	log.Infof("gemini.TranscribeFile done model=%q bytes=%d transcript_len=%d",
		modelName, len(audioBytes), len(transcript))
	return transcript, nil
}

func resolveAudioMIMEType(filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filePath)))
	if ext == "" {
		return "", utils.WrapIfNotNil(errors.New("audio file extension is required to determine mime type"))
	}

	switch ext {
	case ".wav":
		return "audio/wav", nil
	case ".mp3":
		return "audio/mpeg", nil
	case ".m4a":
		return "audio/mp4", nil
	case ".mp4":
		return "audio/mp4", nil
	case ".webm":
		return "audio/webm", nil
	case ".ogg":
		return "audio/ogg", nil
	case ".flac":
		return "audio/flac", nil
	case ".aac":
		return "audio/aac", nil
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "", utils.WrapIfNotNil(errors.New("unsupported audio file extension: " + ext))
	}

	// Strip parameters such as "; charset=utf-8".
	mimeType = strings.TrimSpace(strings.Split(mimeType, ";")[0])
	if !strings.HasPrefix(mimeType, "audio/") {
		return "", utils.WrapIfNotNil(errors.New("unsupported audio mime type: " + mimeType))
	}
	return mimeType, nil
}
