// Package state persists uploaded documents. Only the latest upload of each
// document kind is kept; every derived view is recomputed from it.
package state

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrNoDocument is returned when no document of the requested kind exists.
var ErrNoDocument = errors.New("no document uploaded")

// Kind classifies uploaded documents.
type Kind string

// Document kinds.
const (
	KindReport       Kind = "report"
	KindModel        Kind = "model"
	KindDependencies Kind = "dependencies"
)

// Kinds lists every document kind.
var Kinds = []Kind{KindReport, KindModel, KindDependencies}

// Valid reports whether k is a known document kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Document is an uploaded artifact.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        Kind      `json:"kind"`
	Content     []byte    `json:"-"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store persists documents.
type Store interface {
	// Save stores doc, replacing any stored document of the same kind. An
	// empty ID and a zero CreatedAt are filled in.
	Save(ctx context.Context, doc *Document) error
	// Latest returns the stored document of the given kind.
	Latest(ctx context.Context, kind Kind) (*Document, error)
	// LatestAny returns the most recently stored document of any kind.
	LatestAny(ctx context.Context) (*Document, error)
	// List returns every stored document without content, newest first.
	List(ctx context.Context) ([]Document, error)
	// Close releases the underlying connection.
	Close() error
}

// Options selects and configures a store backend.
type Options struct {
	// Path is the SQLite database file. ":memory:" opens a private
	// in-memory database.
	Path string
	// DatabaseURL is a Postgres DSN. When set it takes precedence over Path.
	DatabaseURL string
}

// Open opens the store selected by opts and applies pending migrations.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	var (
		store *SQLStore
		err   error
	)
	if opts.DatabaseURL != "" {
		store, err = OpenPostgres(ctx, opts.DatabaseURL, logger)
	} else {
		store, err = OpenSQLite(ctx, opts.Path, logger)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
