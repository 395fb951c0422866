package store

import "context"

// BookEmbedding is one indexed book: the embedded short summary plus the
// metadata needed for title resolution.
type BookEmbedding struct {
	ID          string
	Title       string
	Summary     string
	FullSummary string
	Embedding   []float32
	UpdatedTs   int64
}

// SearchHit is one similarity search result. Distance is cosine distance,
// smaller is more relevant.
type SearchHit struct {
	Title       string
	Summary     string
	FullSummary string
	Distance    float64
}

// VectorIndex is the persistent similarity index over the book corpus.
// It is constructed once at startup and shared read-only across requests;
// the only write path is the offline indexer.
type VectorIndex interface {
	// Migrate creates the embedding table and index if absent.
	Migrate(ctx context.Context) error

	// Upsert inserts or replaces one book embedding keyed by its stable ID.
	Upsert(ctx context.Context, embedding *BookEmbedding) error

	// Search returns up to limit hits ordered by ascending cosine distance.
	Search(ctx context.Context, vector []float32, limit int) ([]*SearchHit, error)

	// GetByTitle looks up one entry by exact title match, as stored.
	// Returns nil when no entry matches.
	GetByTitle(ctx context.Context, title string) (*BookEmbedding, error)

	Close() error
}
