// Package sqlstore persists the engine's aggregates in Postgres or SQLite
// through database/sql. Every unit of work is one SQL transaction; the outbox
// table is written in the same transaction as the aggregates.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects with the given dialect and applies embedded migrations.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}
	switch dialect {
	case Postgres, SQLite:
	default:
		return nil, fmt.Errorf("sqlstore: unknown dialect %q", dialect)
	}
	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", dialect, err)
	}
	if dialect == Postgres {
		db.SetMaxOpenConns(20)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", dialect, err)
	}
	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: run migrations: %w", err)
	}
	return s, nil
}

// OpenSQLite opens (or creates) a database file. Transactions take the write
// lock at BEGIN so concurrent writers queue instead of failing mid-way.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlstore: storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	return Open(ctx, SQLite, dsn)
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping backs the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
