package db

import (
	"database/sql"
	"fmt"
)

// The key-value table holds every persisted record as an opaque blob with a
// version that is bumped on each write.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    version    INTEGER NOT NULL DEFAULT 1,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    version    BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables if they don't exist. Idempotent.
func EnsureSchema(db *sql.DB, dialect Dialect) error {
	schema := sqliteSchema
	if dialect == DialectPostgres {
		schema = postgresSchema
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
