// Package retrieval performs semantic search over the indexed book corpus.
package retrieval

import (
	"context"
	"log/slog"
	"strings"

	"github.com/booksage/booksage/ai/embedding"
	"github.com/booksage/booksage/store"
)

// Candidate is one retrieved book presented to the LLM as context.
type Candidate struct {
	Title    string
	Summary  string
	Distance float64
}

// Retriever embeds the query and searches the vector index. Both handles
// are constructed once at startup and shared read-only across requests.
type Retriever struct {
	embedder embedding.Service
	index    store.VectorIndex
}

// NewRetriever creates a retriever over the given embedder and index.
func NewRetriever(embedder embedding.Service, index store.VectorIndex) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve returns up to k candidates ordered by ascending cosine distance.
// A blank query yields an empty result rather than an error. Hits missing a
// title or summary after trimming are dropped.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := r.index.Search(ctx, vector, k)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		title := strings.TrimSpace(hit.Title)
		summary := strings.TrimSpace(hit.Summary)
		if title == "" || summary == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			Title:    title,
			Summary:  summary,
			Distance: hit.Distance,
		})
	}

	slog.Debug("retrieval: query served", "k", k, "candidates", len(candidates))
	return candidates, nil
}
