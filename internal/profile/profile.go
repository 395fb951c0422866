package profile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol).
	LLMAPIKey      string  // Required. Shared with embedding and speech services.
	LLMBaseURL     string  // Optional override for OpenAI-compatible gateways.
	LLMModel       string  // Chat model, default gpt-4o-mini.
	LLMTemperature float32 // Low but non-zero so summaries stay natural.
	LLMTimeout     int     // Request timeout in seconds.

	// Embedding configuration.
	EmbeddingModel      string
	EmbeddingDimensions int

	// Vector index configuration.
	DSN        string // Postgres DSN, required (pgvector extension installed).
	Collection string // Table holding book embeddings.

	// Corpus and retrieval.
	CorpusPath string // Flat JSON corpus used by the indexer and title fallback.
	RetrieveK  int    // Candidates per query.

	// Safety filter.
	SafetyEnabled  bool
	SafetyWordlist string // Optional JSON file with extra patterns.
	SafetyReply    string

	// Speech services.
	STTModel  string
	TTSModel  string
	TTSVoice  string
	TTSFormat string

	// Server.
	Mode           string // dev, prod
	Addr           string
	Port           int
	StaticDir      string
	FrontendOrigin string
	Version        string
}

const defaultSafetyReply = "I can’t assist with messages that contain offensive language. " +
	"Please rephrase your request—I’m happy to help with book recommendations from our database."

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMAPIKey = getEnvOrDefault("OPENAI_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("OPENAI_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini")
	p.LLMTimeout = getEnvOrDefaultInt("LLM_TIMEOUT_SECONDS", 120)
	if p.LLMTemperature == 0 {
		p.LLMTemperature = 0.3
	}

	p.EmbeddingModel = getEnvOrDefault("EMBED_MODEL", "text-embedding-3-small")
	p.EmbeddingDimensions = getEnvOrDefaultInt("EMBED_DIMENSIONS", 1536)

	if p.DSN == "" {
		p.DSN = getEnvOrDefault("BOOKSAGE_DSN", "")
	}
	p.Collection = getEnvOrDefault("BOOKSAGE_COLLECTION", "book_embedding")
	if p.CorpusPath == "" {
		p.CorpusPath = getEnvOrDefault("BOOKSAGE_CORPUS", "books.json")
	}
	p.RetrieveK = getEnvOrDefaultInt("BOOKSAGE_RETRIEVE_K", 5)

	p.SafetyEnabled = getEnvOrDefault("ENABLE_SAFETY", "1") == "1"
	p.SafetyWordlist = getEnvOrDefault("SAFETY_WORDLIST", "")
	p.SafetyReply = getEnvOrDefault("SAFETY_REPLY", defaultSafetyReply)

	p.STTModel = getEnvOrDefault("STT_MODEL", "whisper-1")
	p.TTSModel = getEnvOrDefault("OPENAI_TTS_MODEL", "gpt-4o-mini-tts")
	p.TTSVoice = getEnvOrDefault("OPENAI_TTS_VOICE", "alloy")
	p.TTSFormat = strings.ToLower(getEnvOrDefault("OPENAI_TTS_FORMAT", "mp3"))

	if p.StaticDir == "" {
		p.StaticDir = getEnvOrDefault("STATIC_DIR", "./static")
	}
	p.FrontendOrigin = getEnvOrDefault("FRONTEND_ORIGIN", "http://localhost:5500")
}

// Validate checks that required configuration is present.
// Missing credentials are fatal at startup and are never retried.
func (p *Profile) Validate() error {
	if p.LLMAPIKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}
	if p.DSN == "" {
		return errors.New("BOOKSAGE_DSN is not set")
	}
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Port <= 0 {
		p.Port = 8080
	}
	staticDir, err := checkStaticDir(p.StaticDir)
	if err != nil {
		return err
	}
	p.StaticDir = staticDir
	return nil
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// AudioDir returns the directory where synthesized audio files are written.
func (p *Profile) AudioDir() string {
	return filepath.Join(p.StaticDir, "audio")
}

func checkStaticDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return "", err
		}
		dir = absDir
	}
	dir = strings.TrimRight(dir, "\\/")
	if err := os.MkdirAll(filepath.Join(dir, "audio"), 0o755); err != nil {
		return "", errors.Wrapf(err, "unable to prepare static folder %s", dir)
	}
	return dir, nil
}
