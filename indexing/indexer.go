// Package indexing builds the vector index from the flat JSON corpus.
// It runs offline, via the `index` subcommand, never during serving.
package indexing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/booksage/booksage/ai/embedding"
	"github.com/booksage/booksage/store"
)

// BookID derives the stable deterministic index key for a title:
// UUIDv5 over the DNS namespace of the lowercased trimmed title. Re-running
// the indexer therefore updates rows in place instead of duplicating them.
func BookID(title string) string {
	key := strings.ToLower(strings.TrimSpace(title))
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(key)).String()
}

// Indexer embeds corpus summaries and upserts them into the vector index.
type Indexer struct {
	embedder embedding.Service
	index    store.VectorIndex
}

// NewIndexer creates an indexer.
func NewIndexer(embedder embedding.Service, index store.VectorIndex) *Indexer {
	return &Indexer{embedder: embedder, index: index}
}

// Run indexes every corpus entry that has both a title and a short summary;
// entries missing either are skipped. The short summary is the embedded
// document; title and full summary ride along as metadata. Returns the
// number of indexed books.
func (ix *Indexer) Run(ctx context.Context, corpus *store.Corpus) (int, error) {
	if err := ix.index.Migrate(ctx); err != nil {
		return 0, errors.Wrap(err, "failed to migrate vector index")
	}

	books := []*store.Book{}
	for _, b := range corpus.Books() {
		if strings.TrimSpace(b.Title) == "" || strings.TrimSpace(b.Summary) == "" {
			slog.Warn("indexing: skipping incomplete record", "title", b.Title)
			continue
		}
		books = append(books, b)
	}
	if len(books) == 0 {
		return 0, nil
	}

	texts := make([]string, len(books))
	for i, b := range books {
		texts[i] = strings.TrimSpace(b.Summary)
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, errors.Wrap(err, "failed to embed corpus summaries")
	}
	if len(vectors) != len(books) {
		return 0, errors.Errorf("embedding count mismatch: %d texts, %d vectors", len(books), len(vectors))
	}

	now := time.Now().Unix()
	for i, b := range books {
		title := strings.TrimSpace(b.Title)
		entry := &store.BookEmbedding{
			ID:          BookID(title),
			Title:       title,
			Summary:     strings.TrimSpace(b.Summary),
			FullSummary: strings.TrimSpace(b.FullSummary),
			Embedding:   vectors[i],
			UpdatedTs:   now,
		}
		if err := ix.index.Upsert(ctx, entry); err != nil {
			return i, errors.Wrapf(err, "failed to upsert %q", title)
		}
	}

	slog.Info("indexing: corpus indexed", "books", len(books))
	return len(books), nil
}
