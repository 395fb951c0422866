// Package postgres implements the vector index on Postgres with the
// pgvector extension.
package postgres

import (
	"database/sql"
	"regexp"

	// Postgres driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DB wraps a Postgres connection serving one embedding collection.
type DB struct {
	db         *sql.DB
	collection string
	dimensions int
}

// NewDB opens a Postgres connection for the given collection (table) name.
// The collection name is interpolated into DDL/queries, so it must be a
// plain identifier.
func NewDB(dsn, collection string, dimensions int) (*DB, error) {
	if !identPattern.MatchString(collection) {
		return nil, errors.Errorf("invalid collection name %q", collection)
	}
	if dimensions <= 0 {
		return nil, errors.New("embedding dimensions must be positive")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	return &DB{db: db, collection: collection, dimensions: dimensions}, nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}
