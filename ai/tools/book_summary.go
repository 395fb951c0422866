package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/booksage/booksage/store"
)

// BookSummaryToolName is the single tool registered for title resolution.
const BookSummaryToolName = "get_summary_by_title"

// Placeholder results for the resolution fallbacks. Tool output is always
// plain text for the LLM, so failures are worded, not raised.
const (
	emptyTitleResult    = "Error: 'title' is empty."
	noFullSummaryResult = "No full summary found for this title."
	unknownTitleResult  = "Title does not exist in the local database."
)

// CorpusLoader loads the flat JSON corpus for fallback resolution.
// It is invoked on demand, only when the vector index misses.
type CorpusLoader func() (*store.Corpus, error)

// FileCorpusLoader returns a loader reading the corpus file at path.
func FileCorpusLoader(path string) CorpusLoader {
	return func() (*store.Corpus, error) {
		return store.LoadCorpus(path)
	}
}

// BookSummaryTool resolves an exact book title to its full summary,
// consulting the vector index metadata first and the flat corpus second.
type BookSummaryTool struct {
	index      store.VectorIndex
	loadCorpus CorpusLoader
}

// NewBookSummaryTool creates the title resolution tool.
func NewBookSummaryTool(index store.VectorIndex, loader CorpusLoader) (*BookSummaryTool, error) {
	if index == nil {
		return nil, fmt.Errorf("vector index cannot be nil")
	}
	if loader == nil {
		return nil, fmt.Errorf("corpus loader cannot be nil")
	}
	return &BookSummaryTool{index: index, loadCorpus: loader}, nil
}

func (t *BookSummaryTool) Name() string {
	return BookSummaryToolName
}

func (t *BookSummaryTool) Description() string {
	return "Return the COMPLETE summary for an EXACT title (vector index -> corpus file)."
}

func (t *BookSummaryTool) Parameters() string {
	return `{
		"type": "object",
		"properties": {
			"title": {
				"type": "string",
				"description": "Exact book title, verbatim from RAG_CONTEXT"
			}
		},
		"required": ["title"],
		"additionalProperties": false
	}`
}

type bookSummaryInput struct {
	Title string `json:"title"`
}

// Run parses the JSON input and resolves the title.
func (t *BookSummaryTool) Run(ctx context.Context, input string) (string, error) {
	var in bookSummaryInput
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return "", fmt.Errorf("invalid JSON input: %w", err)
	}
	return t.Resolve(ctx, in.Title), nil
}

// Resolve returns the full summary for an exact title. Every failure path
// yields descriptive text rather than an error: the orchestrator always
// feeds the result back to the LLM as a tool message.
func (t *BookSummaryTool) Resolve(ctx context.Context, title string) string {
	exact := strings.TrimSpace(title)
	if exact == "" {
		return emptyTitleResult
	}

	// Stored metadata first, exact match as indexed.
	entry, err := t.index.GetByTitle(ctx, exact)
	if err != nil {
		slog.Warn("tools: index lookup failed, falling back to corpus", "title", exact, "error", err)
	} else if entry != nil {
		if fs := strings.TrimSpace(entry.FullSummary); fs != "" {
			return fs
		}
	}

	corpus, err := t.loadCorpus()
	if err != nil {
		return fmt.Sprintf("Error: could not load the book corpus: %v", err)
	}
	if book := corpus.FindByTitle(exact); book != nil {
		if full := strings.TrimSpace(book.FullSummary); full != "" {
			return full
		}
		if short := strings.TrimSpace(book.Summary); short != "" {
			return short
		}
		return noFullSummaryResult
	}
	return unknownTitleResult
}
