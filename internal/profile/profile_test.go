package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("BOOKSAGE_DSN", "postgres://localhost/booksage")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "gpt-4o-mini", p.LLMModel)
	assert.Equal(t, "text-embedding-3-small", p.EmbeddingModel)
	assert.Equal(t, 1536, p.EmbeddingDimensions)
	assert.Equal(t, "book_embedding", p.Collection)
	assert.Equal(t, 5, p.RetrieveK)
	assert.Equal(t, float32(0.3), p.LLMTemperature)
	assert.True(t, p.SafetyEnabled)
	assert.Equal(t, defaultSafetyReply, p.SafetyReply)
	assert.Equal(t, "whisper-1", p.STTModel)
	assert.Equal(t, "mp3", p.TTSFormat)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("ENABLE_SAFETY", "0")
	t.Setenv("SAFETY_REPLY", "custom reply")
	t.Setenv("BOOKSAGE_RETRIEVE_K", "8")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "gpt-4o", p.LLMModel)
	assert.False(t, p.SafetyEnabled)
	assert.Equal(t, "custom reply", p.SafetyReply)
	assert.Equal(t, 8, p.RetrieveK)
}

func TestValidate(t *testing.T) {
	t.Run("missing API key is fatal", func(t *testing.T) {
		p := &Profile{DSN: "postgres://localhost/booksage", StaticDir: t.TempDir()}
		assert.Error(t, p.Validate())
	})

	t.Run("missing DSN is fatal", func(t *testing.T) {
		p := &Profile{LLMAPIKey: "sk-test", StaticDir: t.TempDir()}
		assert.Error(t, p.Validate())
	})

	t.Run("valid profile fills defaults", func(t *testing.T) {
		dir := t.TempDir()
		p := &Profile{
			LLMAPIKey: "sk-test",
			DSN:       "postgres://localhost/booksage",
			StaticDir: dir,
		}
		require.NoError(t, p.Validate())
		assert.Equal(t, "dev", p.Mode)
		assert.Equal(t, 8080, p.Port)
		assert.Equal(t, filepath.Join(dir, "audio"), p.AudioDir())
		assert.DirExists(t, p.AudioDir())
	})
}
