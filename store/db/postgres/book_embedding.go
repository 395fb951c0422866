package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/booksage/booksage/store"
)

// Migrate creates the embedding table and its cosine index if absent.
// The pgvector extension must already be installed in the database.
func (d *DB) Migrate(ctx context.Context) error {
	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			summary TEXT NOT NULL,
			full_summary TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL,
			updated_ts BIGINT NOT NULL
		)`, d.collection, d.dimensions)
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to create embedding table")
	}

	idx := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_embedding
		ON %s USING hnsw (embedding vector_cosine_ops)`, d.collection, d.collection)
	if _, err := d.db.ExecContext(ctx, idx); err != nil {
		return errors.Wrap(err, "failed to create embedding index")
	}
	return nil
}

// Upsert inserts or replaces one book embedding keyed by its stable ID.
func (d *DB) Upsert(ctx context.Context, embedding *store.BookEmbedding) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, title, summary, full_summary, embedding, updated_ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			full_summary = EXCLUDED.full_summary,
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts`, d.collection)

	ts := embedding.UpdatedTs
	if ts == 0 {
		ts = time.Now().Unix()
	}
	_, err := d.db.ExecContext(ctx, stmt,
		embedding.ID,
		embedding.Title,
		embedding.Summary,
		embedding.FullSummary,
		pgvector.NewVector(embedding.Embedding),
		ts,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert book embedding")
	}
	return nil
}

// Search returns up to limit hits ordered by ascending cosine distance.
func (d *DB) Search(ctx context.Context, vector []float32, limit int) ([]*store.SearchHit, error) {
	query := fmt.Sprintf(`
		SELECT title, summary, full_summary, embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance ASC
		LIMIT $2`, d.collection)

	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search book embeddings")
	}
	defer rows.Close()

	hits := []*store.SearchHit{}
	for rows.Next() {
		var hit store.SearchHit
		if err := rows.Scan(&hit.Title, &hit.Summary, &hit.FullSummary, &hit.Distance); err != nil {
			return nil, errors.Wrap(err, "failed to scan search hit")
		}
		hits = append(hits, &hit)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate search hits")
	}
	return hits, nil
}

// GetByTitle looks up one entry by exact title, as stored.
func (d *DB) GetByTitle(ctx context.Context, title string) (*store.BookEmbedding, error) {
	query := fmt.Sprintf(`
		SELECT id, title, summary, full_summary, updated_ts
		FROM %s
		WHERE title = $1
		LIMIT 1`, d.collection)

	var embedding store.BookEmbedding
	err := d.db.QueryRowContext(ctx, query, title).Scan(
		&embedding.ID,
		&embedding.Title,
		&embedding.Summary,
		&embedding.FullSummary,
		&embedding.UpdatedTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get book embedding by title")
	}
	return &embedding, nil
}
