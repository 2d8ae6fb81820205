package directory

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDirectory reads merchant credentials from a SQLite database, the
// default backend for single-instance deployments.
type SQLiteDirectory struct {
	db *sql.DB
}

// NewSQLiteDirectory opens (and if necessary initializes) the merchant
// database at path.
func NewSQLiteDirectory(path string) (*SQLiteDirectory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open merchant database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to merchant database: %w", err)
	}

	d := &SQLiteDirectory{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

func (d *SQLiteDirectory) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS merchants (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL,
		api_key       TEXT NOT NULL UNIQUE,
		hashed_secret TEXT NOT NULL,
		environment   TEXT NOT NULL CHECK (environment IN ('sandbox', 'production')),
		active        INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_merchants_api_key ON merchants(api_key);`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize merchant schema: %w", err)
	}
	return nil
}

// LookupByAPIKey implements Directory.
func (d *SQLiteDirectory) LookupByAPIKey(ctx context.Context, apiKey string) (*Credential, error) {
	credential := &Credential{}
	err := d.db.QueryRowContext(ctx,
		`SELECT id, email, api_key, hashed_secret, environment, active
		 FROM merchants WHERE api_key = ?`, apiKey).
		Scan(&credential.ID, &credential.Email, &credential.APIKey,
			&credential.HashedSecret, &credential.Environment, &credential.Active)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}

	return credential, nil
}

// Insert stores a credential. Used by provisioning tooling and tests; the
// admission layer itself never writes.
func (d *SQLiteDirectory) Insert(ctx context.Context, credential *Credential) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO merchants (id, email, api_key, hashed_secret, environment, active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		credential.ID, credential.Email, credential.APIKey,
		credential.HashedSecret, credential.Environment, credential.Active)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (d *SQLiteDirectory) Close() error {
	return d.db.Close()
}
