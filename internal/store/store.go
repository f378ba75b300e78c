// Package store persists the question bank through database/sql. The same
// queries run on PostgreSQL (lib/pq) and on an embedded SQLite file
// (modernc.org/sqlite); only the schema file and placeholder syntax differ.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Dialect names the SQL flavour of the underlying database.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Transactor runs fn inside a database transaction, committing when fn
// returns nil and rolling back otherwise. Both pkg/postgres.Client and
// pkg/sqlite.Client satisfy it.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Store is the question-bank storage collaborator.
type Store struct {
	db      *sql.DB
	tx      Transactor
	dialect Dialect
}

// New returns a Store over db that opens transactions through tx.
func New(db *sql.DB, tx Transactor, dialect Dialect) *Store {
	return &Store{db: db, tx: tx, dialect: dialect}
}

// Dialect reports which SQL flavour the store speaks.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Queries returns query methods bound to the connection pool.
func (s *Store) Queries() *Queries {
	return &Queries{db: s.db, dialect: s.dialect}
}

// InTx runs fn with queries bound to a single transaction. Every write fn
// performs is committed together or not at all.
func (s *Store) InTx(ctx context.Context, fn func(q *Queries) error) error {
	return s.tx.InTx(ctx, func(tx *sql.Tx) error {
		return fn(&Queries{db: tx, dialect: s.dialect})
	})
}

// InitSchema creates any missing tables. It is safe to run repeatedly.
func (s *Store) InitSchema(ctx context.Context) error {
	ddl, err := schemaFS.ReadFile(fmt.Sprintf("schema/%s.sql", s.dialect))
	if err != nil {
		return fmt.Errorf("reading %s schema: %w", s.dialect, err)
	}
	if _, err := s.db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("applying %s schema: %w", s.dialect, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
