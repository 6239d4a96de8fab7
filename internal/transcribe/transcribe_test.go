package transcribe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	modelName string
	filePath  string
	output    string
	err       error
}

func (f *fakeTranscriber) TranscribeFile(_ context.Context, modelName, filePath string) (string, error) {
	f.modelName = modelName
	f.filePath = filePath
	return f.output, f.err
}

func TestTranscribeUpload(t *testing.T) {
	fake := &fakeTranscriber{output: "  Patient reports chest pain.  "}
	service := NewService(fake, "gemini-2.5-flash")

	transcript, err := service.TranscribeUpload(context.Background(), "visit.mp3", []byte("fake audio bytes"))
	require.NoError(t, err)
	assert.Equal(t, "Patient reports chest pain.", transcript)
	assert.Equal(t, "gemini-2.5-flash", fake.modelName)
	assert.Equal(t, ".mp3", filepath.Ext(fake.filePath))

	_, statErr := os.Stat(fake.filePath)
	assert.True(t, os.IsNotExist(statErr), "temp file must be removed after transcription")
}

func TestTranscribeUploadRejectsEmptyAudio(t *testing.T) {
	service := NewService(&fakeTranscriber{}, "gemini-2.5-flash")

	_, err := service.TranscribeUpload(context.Background(), "visit.wav", nil)
	assert.Error(t, err)
}

func TestTranscribeUploadDefaultsExtension(t *testing.T) {
	fake := &fakeTranscriber{output: "text"}
	service := NewService(fake, "gemini-2.5-flash")

	_, err := service.TranscribeUpload(context.Background(), "recording", []byte("audio"))
	require.NoError(t, err)
	assert.Equal(t, ".wav", filepath.Ext(fake.filePath))
}
