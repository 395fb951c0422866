package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booksage/booksage/ai/llm"
	"github.com/booksage/booksage/store"
)

type fakeIndex struct {
	entries map[string]*store.BookEmbedding
	err     error
}

func (f *fakeIndex) Migrate(context.Context) error                      { return nil }
func (f *fakeIndex) Upsert(context.Context, *store.BookEmbedding) error { return nil }
func (f *fakeIndex) Close() error                                       { return nil }

func (f *fakeIndex) Search(context.Context, []float32, int) ([]*store.SearchHit, error) {
	return nil, nil
}

func (f *fakeIndex) GetByTitle(_ context.Context, title string) (*store.BookEmbedding, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[title], nil
}

func staticCorpus(books ...*store.Book) CorpusLoader {
	return func() (*store.Corpus, error) {
		return store.NewCorpus(books), nil
	}
}

func TestBookSummaryTool_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("empty title", func(t *testing.T) {
		tool, err := NewBookSummaryTool(&fakeIndex{}, staticCorpus())
		require.NoError(t, err)
		assert.Equal(t, "Error: 'title' is empty.", tool.Resolve(ctx, "   "))
	})

	t.Run("index metadata wins", func(t *testing.T) {
		index := &fakeIndex{entries: map[string]*store.BookEmbedding{
			"The Hobbit": {Title: "The Hobbit", FullSummary: "Bilbo's full story."},
		}}
		tool, err := NewBookSummaryTool(index, staticCorpus(
			&store.Book{Title: "The Hobbit", FullSummary: "corpus copy, should not be used"},
		))
		require.NoError(t, err)
		assert.Equal(t, "Bilbo's full story.", tool.Resolve(ctx, " The Hobbit "))
	})

	t.Run("index error falls back to corpus", func(t *testing.T) {
		index := &fakeIndex{err: errors.New("connection refused")}
		tool, err := NewBookSummaryTool(index, staticCorpus(
			&store.Book{Title: "The Hobbit", FullSummary: "From the corpus."},
		))
		require.NoError(t, err)
		assert.Equal(t, "From the corpus.", tool.Resolve(ctx, "The Hobbit"))
	})

	t.Run("empty index metadata falls back to corpus", func(t *testing.T) {
		index := &fakeIndex{entries: map[string]*store.BookEmbedding{
			"Dune": {Title: "Dune", FullSummary: "   "},
		}}
		tool, err := NewBookSummaryTool(index, staticCorpus(
			&store.Book{Title: "Dune", Summary: "Short desert summary."},
		))
		require.NoError(t, err)
		assert.Equal(t, "Short desert summary.", tool.Resolve(ctx, "Dune"))
	})

	t.Run("corpus match is case insensitive", func(t *testing.T) {
		tool, err := NewBookSummaryTool(&fakeIndex{}, staticCorpus(
			&store.Book{Title: "The Name of the Wind", FullSummary: "Kvothe tells his story."},
		))
		require.NoError(t, err)
		assert.Equal(t, "Kvothe tells his story.", tool.Resolve(ctx, "the name of the wind"))
	})

	t.Run("record without any summary", func(t *testing.T) {
		tool, err := NewBookSummaryTool(&fakeIndex{}, staticCorpus(
			&store.Book{Title: "Mystery Book"},
		))
		require.NoError(t, err)
		assert.Equal(t, "No full summary found for this title.", tool.Resolve(ctx, "Mystery Book"))
	})

	t.Run("unknown title", func(t *testing.T) {
		tool, err := NewBookSummaryTool(&fakeIndex{}, staticCorpus())
		require.NoError(t, err)
		assert.Equal(t, "Title does not exist in the local database.", tool.Resolve(ctx, "Nonexistent"))
	})
}

func TestBookSummaryTool_Run(t *testing.T) {
	tool, err := NewBookSummaryTool(&fakeIndex{}, staticCorpus(
		&store.Book{Title: "Dune", FullSummary: "Full desert story."},
	))
	require.NoError(t, err)

	t.Run("valid input", func(t *testing.T) {
		out, err := tool.Run(context.Background(), `{"title": "Dune"}`)
		require.NoError(t, err)
		assert.Equal(t, "Full desert story.", out)
	})

	t.Run("malformed input", func(t *testing.T) {
		_, err := tool.Run(context.Background(), `{"title": `)
		assert.Error(t, err)
	})
}

func TestRegistry_Dispatch(t *testing.T) {
	tool, err := NewBookSummaryTool(&fakeIndex{}, staticCorpus(
		&store.Book{Title: "Dune", FullSummary: "Full desert story."},
	))
	require.NoError(t, err)
	registry := NewRegistry(tool)

	t.Run("descriptors expose the registered tool", func(t *testing.T) {
		descriptors := registry.Descriptors()
		require.Len(t, descriptors, 1)
		assert.Equal(t, BookSummaryToolName, descriptors[0].Name)
		assert.Contains(t, descriptors[0].Parameters, `"title"`)
	})

	t.Run("known tool", func(t *testing.T) {
		result := registry.Dispatch(context.Background(), llm.ToolCall{
			ID: "call-1",
			Function: llm.FunctionCall{
				Name:      BookSummaryToolName,
				Arguments: `{"title": "Dune"}`,
			},
		})
		assert.Equal(t, "Full desert story.", result)
	})

	t.Run("unknown tool yields synthetic error text", func(t *testing.T) {
		result := registry.Dispatch(context.Background(), llm.ToolCall{
			ID:       "call-2",
			Function: llm.FunctionCall{Name: "launch_rockets"},
		})
		assert.Equal(t, "Unknown tool: launch_rockets", result)
	})

	t.Run("tool failure becomes result text", func(t *testing.T) {
		result := registry.Dispatch(context.Background(), llm.ToolCall{
			ID: "call-3",
			Function: llm.FunctionCall{
				Name:      BookSummaryToolName,
				Arguments: `not json`,
			},
		})
		assert.Contains(t, result, "Tool error "+BookSummaryToolName)
	})
}
