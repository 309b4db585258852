package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// OpenPostgres connects to the Postgres database at dsn and applies pending
// migrations.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open(dialectPostgres.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if err := migrate(db, dialectPostgres); err != nil {
		_ = db.Close()
		return nil, err
	}
	return newSQLStore(db, dialectPostgres, logger), nil
}

// NewPostgresStore wraps an open Postgres connection without migrating it.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *SQLStore {
	return newSQLStore(db, dialectPostgres, logger)
}
