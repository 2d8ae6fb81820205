package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory reads merchant credentials from PostgreSQL, for
// deployments sharing one merchant database between gateway instances.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory connects to the merchant database with the given
// DSN.
func NewPostgresDirectory(ctx context.Context, dsn string) (*PostgresDirectory, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to merchant database: %w", err)
	}

	d := &PostgresDirectory{pool: pool}
	if err := d.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return d, nil
}

func (d *PostgresDirectory) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS merchants (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL,
		api_key       TEXT NOT NULL UNIQUE,
		hashed_secret TEXT NOT NULL,
		environment   TEXT NOT NULL CHECK (environment IN ('sandbox', 'production')),
		active        BOOLEAN NOT NULL DEFAULT TRUE
	)`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize merchant schema: %w", err)
	}
	return nil
}

// LookupByAPIKey implements Directory.
func (d *PostgresDirectory) LookupByAPIKey(ctx context.Context, apiKey string) (*Credential, error) {
	credential := &Credential{}
	err := d.pool.QueryRow(ctx,
		`SELECT id, email, api_key, hashed_secret, environment, active
		 FROM merchants WHERE api_key = $1`, apiKey).
		Scan(&credential.ID, &credential.Email, &credential.APIKey,
			&credential.HashedSecret, &credential.Environment, &credential.Active)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}

	return credential, nil
}

// Insert stores a credential. Used by provisioning tooling; the admission
// layer itself never writes.
func (d *PostgresDirectory) Insert(ctx context.Context, credential *Credential) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO merchants (id, email, api_key, hashed_secret, environment, active)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		credential.ID, credential.Email, credential.APIKey,
		credential.HashedSecret, credential.Environment, credential.Active)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (d *PostgresDirectory) Close() {
	d.pool.Close()
}
