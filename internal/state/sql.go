package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// dialect captures the differences between the SQL backends.
type dialect struct {
	name       string
	driver     string
	migrations string
	// numbered placeholders ($1, $2) instead of ?
	numbered bool
}

var (
	dialectSQLite   = dialect{name: "sqlite", driver: "sqlite", migrations: "migrations/sqlite"}
	dialectPostgres = dialect{name: "postgres", driver: "pgx", migrations: "migrations/postgres", numbered: true}
)

// rebind rewrites ? placeholders for the dialect.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
}

func newSQLStore(db *sql.DB, d dialect, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLStore{db: db, dialect: d, logger: logger}
}

// Dialect returns the backend name, "sqlite" or "postgres".
func (s *SQLStore) Dialect() string {
	return s.dialect.name
}

// DB returns the underlying connection pool.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const documentColumns = "id, name, kind, content, fingerprint, created_at"

// Save implements Store.
func (s *SQLStore) Save(ctx context.Context, doc *Document) error {
	if !doc.Kind.Valid() {
		return fmt.Errorf("invalid document kind %q", doc.Kind)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.dialect.rebind("DELETE FROM documents WHERE kind = ?"), string(doc.Kind))
	if err != nil {
		return fmt.Errorf("failed to delete previous %s document: %w", doc.Kind, err)
	}

	_, err = tx.ExecContext(ctx,
		s.dialect.rebind("INSERT INTO documents ("+documentColumns+") VALUES (?, ?, ?, ?, ?, ?)"),
		doc.ID, doc.Name, string(doc.Kind), doc.Content, doc.Fingerprint, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}

	replaced, _ := res.RowsAffected()
	s.logger.Debug("stored document",
		slog.String("id", doc.ID),
		slog.String("kind", string(doc.Kind)),
		slog.Int("bytes", len(doc.Content)),
		slog.Int64("replaced", replaced))
	return nil
}

// Latest implements Store.
func (s *SQLStore) Latest(ctx context.Context, kind Kind) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT "+documentColumns+" FROM documents WHERE kind = ? ORDER BY created_at DESC LIMIT 1"),
		string(kind))
	return scanDocument(row, string(kind))
}

// LatestAny implements Store.
func (s *SQLStore) LatestAny(ctx context.Context) (*Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY created_at DESC LIMIT 1")
	return scanDocument(row, "any")
}

func scanDocument(row *sql.Row, kind string) (*Document, error) {
	var doc Document
	var k string
	err := row.Scan(&doc.ID, &doc.Name, &k, &doc.Content, &doc.Fingerprint, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoDocument, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s document: %w", kind, err)
	}
	doc.Kind = Kind(k)
	return &doc, nil
}

// List implements Store.
func (s *SQLStore) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, kind, fingerprint, created_at FROM documents ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		var doc Document
		var k string
		if err := rows.Scan(&doc.ID, &doc.Name, &k, &doc.Fingerprint, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Kind = Kind(k)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}
