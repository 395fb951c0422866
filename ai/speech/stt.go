// Package speech wraps the transcription and synthesis collaborators.
package speech

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Transcriber converts recorded audio to text.
type Transcriber interface {
	// Transcribe transcribes an audio file from disk (wav/mp3/webm/ogg).
	Transcribe(ctx context.Context, filePath string) (string, error)

	// TranscribeBytes transcribes audio from raw bytes without touching disk.
	TranscribeBytes(ctx context.Context, data []byte, filename string) (string, error)
}

type whisperTranscriber struct {
	client *openai.Client
	model  string
}

// NewTranscriber creates a Whisper-backed transcriber.
func NewTranscriber(client *openai.Client, model string) Transcriber {
	if model == "" {
		model = "whisper-1"
	}
	return &whisperTranscriber{client: client, model: model}
}

func (t *whisperTranscriber) Transcribe(ctx context.Context, filePath string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filePath,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.Text, nil
}

func (t *whisperTranscriber) TranscribeBytes(ctx context.Context, data []byte, filename string) (string, error) {
	if filename == "" {
		filename = "audio.webm"
	}
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   bytes.NewReader(data),
		FilePath: filename,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.Text, nil
}
