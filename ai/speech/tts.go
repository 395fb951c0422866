package speech

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultFilename is used when a sanitized name comes out empty.
const DefaultFilename = "speech"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeFilename maps any string to one containing only [A-Za-z0-9._-],
// collapsing runs of other characters to a single underscore. An empty or
// all-invalid input falls back to the default name.
func SafeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	if strings.Trim(name, "_") == "" {
		return DefaultFilename
	}
	return name
}

// Synthesizer renders response text to an audio file.
type Synthesizer interface {
	// SynthesizeToFile writes spoken audio for text to outPath and returns
	// the path actually written (the extension may be normalized).
	SynthesizeToFile(ctx context.Context, text, outPath string) (string, error)
}

// SynthesizerConfig configures the OpenAI speech synthesizer.
type SynthesizerConfig struct {
	Model  string // default gpt-4o-mini-tts
	Voice  string // default alloy
	Format string // mp3 or wav, default mp3
}

type openaiSynthesizer struct {
	client *openai.Client
	cfg    SynthesizerConfig
}

// NewSynthesizer creates an OpenAI-backed speech synthesizer.
func NewSynthesizer(client *openai.Client, cfg SynthesizerConfig) Synthesizer {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini-tts"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.Format != "mp3" && cfg.Format != "wav" {
		cfg.Format = "mp3"
	}
	return &openaiSynthesizer{client: client, cfg: cfg}
}

func (s *openaiSynthesizer) SynthesizeToFile(ctx context.Context, text, outPath string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty text for speech synthesis")
	}

	desiredExt := "." + s.cfg.Format
	ext := strings.ToLower(filepath.Ext(outPath))
	if ext != ".mp3" && ext != ".wav" {
		outPath += desiredExt
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to prepare audio directory: %w", err)
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.cfg.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.cfg.Voice),
		ResponseFormat: openai.SpeechResponseFormat(s.cfg.Format),
	})
	if err != nil {
		return "", fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	return outPath, nil
}
