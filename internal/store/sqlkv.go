package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/erazemk/powerlister/internal/db"
)

// SQLKV implements KV on the kv table of a SQLite or PostgreSQL database.
type SQLKV struct {
	db      *sql.DB
	dialect db.Dialect
}

// NewSQLKV returns a KV backed by database, which must already have the schema applied.
func NewSQLKV(database *sql.DB, dialect db.Dialect) *SQLKV {
	return &SQLKV{db: database, dialect: dialect}
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLKV) rebind(query string) string {
	if s.dialect != db.DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLKV) Get(ctx context.Context, key string) ([]byte, int64, error) {
	var value []byte
	var version int64
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT value, version FROM kv WHERE key = ?`), key,
	).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("getting %s: %w", key, err)
	}
	return value, version, nil
}

func (s *SQLKV) Put(ctx context.Context, key string, value []byte) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO kv (key, value, version, updated_at) VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET
		     value = excluded.value,
		     version = kv.version + 1,
		     updated_at = CURRENT_TIMESTAMP
		 RETURNING version`),
		key, value,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("putting %s: %w", key, err)
	}
	return version, nil
}

func (s *SQLKV) CompareAndSet(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	var row *sql.Row
	if expected == 0 {
		row = s.db.QueryRowContext(ctx, s.rebind(
			`INSERT INTO kv (key, value, version, updated_at) VALUES (?, ?, 1, CURRENT_TIMESTAMP)
			 ON CONFLICT (key) DO NOTHING
			 RETURNING version`),
			key, value,
		)
	} else {
		row = s.db.QueryRowContext(ctx, s.rebind(
			`UPDATE kv SET value = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
			 WHERE key = ? AND version = ?
			 RETURNING version`),
			value, key, expected,
		)
	}

	var version int64
	err := row.Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &ConflictError{Key: key, Expected: expected}
	}
	if err != nil {
		return 0, fmt.Errorf("writing %s: %w", key, err)
	}
	return version, nil
}

func (s *SQLKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM kv WHERE key = ?`), key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}
