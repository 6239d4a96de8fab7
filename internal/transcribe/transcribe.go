// Package transcribe converts uploaded audio recordings to text.
package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/Nephrolytics-ai/medscribe/pkg/logging"
	"github.com/Nephrolytics-ai/medscribe/pkg/utils"
)

// FileTranscriber turns an audio file on disk into text.
type FileTranscriber interface {
	TranscribeFile(ctx context.Context, modelName string, filePath string) (string, error)
}

type Service struct {
	transcriber FileTranscriber
	modelName   string
}

func NewService(transcriber FileTranscriber, modelName string) *Service {
	return &Service{transcriber: transcriber, modelName: modelName}
}

// TranscribeUpload stages the uploaded audio in a temp file and transcribes
// it. The original filename only contributes its extension, which the
// transcriber uses for MIME type detection.
func (s *Service) TranscribeUpload(ctx context.Context, filename string, data []byte) (string, error) {
	log := logging.NewLogger(ctx)
	if len(data) == 0 {
		return "", utils.WrapIfNotNil(errors.New("audio upload is empty"))
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".wav"
	}
	temp, err := os.CreateTemp("", "medscribe-audio-*"+ext)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	defer os.Remove(temp.Name())

	if _, err := temp.Write(data); err != nil {
		temp.Close()
		return "", utils.WrapIfNotNil(err)
	}
	if err := temp.Close(); err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	log.Infof("transcribe: processing %s (%d bytes)", filename, len(data))
	transcript, err := s.transcriber.TranscribeFile(ctx, s.modelName, temp.Name())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(transcript), nil
}
