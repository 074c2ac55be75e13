package repo

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/grovekit/grove/internal/content"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on nodes.parent_path (covered by schema for new DBs)
const currentSchemaVersion = 1

// SQLiteRepository is a durable content repository backed by SQLite.
// Uses WAL mode for concurrent read access.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens a SQLite repository at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1) // Single writer to avoid SQLITE_BUSY errors
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	// The root node always exists.
	if _, err := db.Exec(`
		INSERT INTO nodes (path, parent_path, name, kind)
		VALUES ('/', NULL, '', ?)
		ON CONFLICT(path) DO NOTHING
	`, content.KindFolder); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed root node: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// NewSession acquires a session against the repository.
//
// SQLite sessions are write-through: each statement commits on its own, so
// Commit and Refresh are persistence-boundary markers only. The session is
// cheap; acquire one per deferred action.
func (r *SQLiteRepository) NewSession(ctx context.Context) (Session, error) {
	if err := r.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	return &sqliteSession{db: r.db}, nil
}

// Grant records an explicit privilege grant at path.
// Grants apply to the path and everything below it unless a nearer entry
// overrides them.
func (r *SQLiteRepository) Grant(path content.Path, privileges ...string) error {
	return r.writeACL(path, privileges, true)
}

// Deny records an explicit privilege denial at path.
func (r *SQLiteRepository) Deny(path content.Path, privileges ...string) error {
	return r.writeACL(path, privileges, false)
}

func (r *SQLiteRepository) writeACL(path content.Path, privileges []string, allowed bool) error {
	for _, priv := range privileges {
		if _, err := r.db.Exec(`
			INSERT INTO acl (path, privilege, allowed) VALUES (?, ?, ?)
			ON CONFLICT(path, privilege) DO UPDATE SET allowed = excluded.allowed
		`, path.String(), priv, boolToInt(allowed)); err != nil {
			return fmt.Errorf("write acl entry: %w", err)
		}
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		// CREATE INDEX IF NOT EXISTS is safe - no-op if index exists
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_path)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
