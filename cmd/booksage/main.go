package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/booksage/booksage/ai/embedding"
	"github.com/booksage/booksage/ai/llm"
	"github.com/booksage/booksage/ai/memory"
	"github.com/booksage/booksage/ai/metrics"
	"github.com/booksage/booksage/ai/orchestrator"
	"github.com/booksage/booksage/ai/retrieval"
	"github.com/booksage/booksage/ai/safety"
	"github.com/booksage/booksage/ai/speech"
	"github.com/booksage/booksage/ai/tools"
	"github.com/booksage/booksage/indexing"
	"github.com/booksage/booksage/internal/profile"
	"github.com/booksage/booksage/internal/version"
	"github.com/booksage/booksage/server"
	"github.com/booksage/booksage/store"
	"github.com/booksage/booksage/store/db/postgres"
)

var rootCmd = &cobra.Command{
	Use:   "booksage",
	Short: "A conversational book-recommendation assistant with semantic search over a book corpus.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Try to load .env from the current directory; absence is fine.
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		p := loadProfile()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		index, err := postgres.NewDB(p.DSN, p.Collection, p.EmbeddingDimensions)
		if err != nil {
			slog.Error("failed to connect vector index", "error", err)
			os.Exit(1)
		}
		defer index.Close()

		llmService, err := llm.NewService(&llm.Config{
			Model:       p.LLMModel,
			APIKey:      p.LLMAPIKey,
			BaseURL:     p.LLMBaseURL,
			Temperature: p.LLMTemperature,
			Timeout:     p.LLMTimeout,
		})
		if err != nil {
			slog.Error("failed to create LLM service", "error", err)
			os.Exit(1)
		}

		embedder, err := embedding.NewService(&embedding.Config{
			Model:      p.EmbeddingModel,
			APIKey:     p.LLMAPIKey,
			BaseURL:    p.LLMBaseURL,
			Dimensions: p.EmbeddingDimensions,
		})
		if err != nil {
			slog.Error("failed to create embedding service", "error", err)
			os.Exit(1)
		}

		summaryTool, err := tools.NewBookSummaryTool(index, tools.FileCorpusLoader(p.CorpusPath))
		if err != nil {
			slog.Error("failed to create title resolution tool", "error", err)
			os.Exit(1)
		}

		exporter := metrics.NewExporter()
		orch, err := orchestrator.New(
			llmService,
			retrieval.NewRetriever(embedder, index),
			tools.NewRegistry(summaryTool),
			safety.NewScreener(safety.Config{Enabled: p.SafetyEnabled, WordlistPath: p.SafetyWordlist}),
			memory.NewSessionStore(),
			exporter,
			orchestrator.Config{SafeReply: p.SafetyReply, RetrieveK: p.RetrieveK},
		)
		if err != nil {
			slog.Error("failed to create orchestrator", "error", err)
			os.Exit(1)
		}

		speechClient := newSpeechClient(p)
		s := server.NewServer(
			p,
			orch,
			speech.NewTranscriber(speechClient, p.STTModel),
			speech.NewSynthesizer(speechClient, speech.SynthesizerConfig{
				Model:  p.TTSModel,
				Voice:  p.TTSVoice,
				Format: p.TTSFormat,
			}),
			exporter,
		)

		c := make(chan os.Signal, 1)
		signal.Notify(c, terminationSignals...)
		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(p)
		if err := s.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
			cancel()
		}
		<-ctx.Done()
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the flat JSON corpus and upsert it into the vector index.",
	Run: func(_ *cobra.Command, _ []string) {
		p := loadProfile()

		corpus, err := store.LoadCorpus(p.CorpusPath)
		if err != nil {
			slog.Error("failed to load corpus", "error", err)
			os.Exit(1)
		}

		index, err := postgres.NewDB(p.DSN, p.Collection, p.EmbeddingDimensions)
		if err != nil {
			slog.Error("failed to connect vector index", "error", err)
			os.Exit(1)
		}
		defer index.Close()

		embedder, err := embedding.NewService(&embedding.Config{
			Model:      p.EmbeddingModel,
			APIKey:     p.LLMAPIKey,
			BaseURL:    p.LLMBaseURL,
			Dimensions: p.EmbeddingDimensions,
		})
		if err != nil {
			slog.Error("failed to create embedding service", "error", err)
			os.Exit(1)
		}

		n, err := indexing.NewIndexer(embedder, index).Run(context.Background(), corpus)
		if err != nil {
			slog.Error("indexing failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %d items into '%s'.\n", n, p.Collection)
	},
}

func loadProfile() *profile.Profile {
	p := &profile.Profile{
		Mode:       viper.GetString("mode"),
		Addr:       viper.GetString("addr"),
		Port:       viper.GetInt("port"),
		DSN:        viper.GetString("dsn"),
		CorpusPath: viper.GetString("corpus"),
		StaticDir:  viper.GetString("static-dir"),
		Version:    version.String(),
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		// Missing required credentials abort startup; they are never retried.
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	return p
}

func newSpeechClient(p *profile.Profile) *openai.Client {
	cfg := openai.DefaultConfig(p.LLMAPIKey)
	if p.LLMBaseURL != "" {
		cfg.BaseURL = p.LLMBaseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("Booksage %s started successfully!\n", p.Version)
	if p.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}
	fmt.Printf("Mode: %s\n", p.Mode)
	fmt.Printf("Static directory: %s\n", p.StaticDir)
	fmt.Printf("Listening on %s:%d\n", p.Addr, p.Port)
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("port", 8080)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8080, "port of server")
	rootCmd.PersistentFlags().String("dsn", "", "Postgres DSN of the vector index")
	rootCmd.PersistentFlags().String("corpus", "", "path to the flat JSON book corpus")
	rootCmd.PersistentFlags().String("static-dir", "", "directory of static web assets")

	for _, flag := range []string{"mode", "addr", "port", "dsn", "corpus", "static-dir"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("booksage")
	viper.AutomaticEnv()

	rootCmd.AddCommand(indexCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
