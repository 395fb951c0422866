package store

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Book is one record of the flat JSON corpus. The corpus is immutable
// reference data; the serving path only ever reads it.
type Book struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	FullSummary string `json:"full_summary"`
}

// Corpus is the loaded flat JSON corpus.
type Corpus struct {
	books []*Book
}

// LoadCorpus reads the flat JSON array of book records from path.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read corpus %s", path)
	}
	var books []*Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, errors.Wrapf(err, "failed to parse corpus %s", path)
	}
	return &Corpus{books: books}, nil
}

// NewCorpus wraps an in-memory book list. Used by tests and the indexer.
func NewCorpus(books []*Book) *Corpus {
	return &Corpus{books: books}
}

// Books returns all records in corpus order.
func (c *Corpus) Books() []*Book {
	return c.books
}

// FindByTitle returns the record whose title equals the given title after
// trimming and lowercasing both sides, or nil when no record matches.
func (c *Corpus) FindByTitle(title string) *Book {
	norm := strings.ToLower(strings.TrimSpace(title))
	if norm == "" {
		return nil
	}
	for _, b := range c.books {
		if strings.ToLower(strings.TrimSpace(b.Title)) == norm {
			return b
		}
	}
	return nil
}
