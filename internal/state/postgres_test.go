package state

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// anyTime matches any time.Time argument.
type anyTime struct{}

func (anyTime) Match(v driver.Value) bool {
	_, ok := v.(time.Time)
	return ok
}

func TestDialect_Rebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect dialect
		query   string
		want    string
	}{
		{name: "sqlite unchanged", dialect: dialectSQLite, query: "SELECT ? , ?", want: "SELECT ? , ?"},
		{name: "postgres numbered", dialect: dialectPostgres, query: "INSERT INTO t VALUES (?, ?, ?)", want: "INSERT INTO t VALUES ($1, $2, $3)"},
		{name: "no placeholders", dialect: dialectPostgres, query: "SELECT 1", want: "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.rebind(tt.query))
		})
	}
}

func TestPostgresStore_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	store := NewPostgresStore(db, nil)
	defer store.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE kind = $1")).
		WithArgs("model").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents (id, name, kind, content, fingerprint, created_at) VALUES ($1, $2, $3, $4, $5, $6)")).
		WithArgs("doc-1", "model.bim", "model", []byte("{}"), "fp", anyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = store.Save(context.Background(), &Document{ID: "doc-1", Name: "model.bim", Kind: KindModel, Content: []byte("{}"), Fingerprint: "fp"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	store := NewPostgresStore(db, nil)
	defer store.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM documents").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO documents").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = store.Save(context.Background(), &Document{Name: "r.json", Kind: KindReport})
	require.ErrorContains(t, err, "failed to insert document")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Latest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	store := NewPostgresStore(db, nil)
	defer store.Close()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "kind", "content", "fingerprint", "created_at"}).
		AddRow("doc-1", "deps.tsv", "dependencies", []byte("a\tb"), "fp", created)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE kind = $1 ORDER BY created_at DESC LIMIT 1")).
		WithArgs("dependencies").
		WillReturnRows(rows)

	doc, err := store.Latest(context.Background(), KindDependencies)
	require.NoError(t, err)
	assert.Equal(t, &Document{
		ID:          "doc-1",
		Name:        "deps.tsv",
		Kind:        KindDependencies,
		Content:     []byte("a\tb"),
		Fingerprint: "fp",
		CreatedAt:   created,
	}, doc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	store := NewPostgresStore(db, nil)
	defer store.Close()

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "kind", "content", "fingerprint", "created_at"}))

	_, err = store.LatestAny(context.Background())
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.Equal(t, "postgres", store.Dialect())
}
