package checkpoint

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresSink persists snapshots as JSONB rows keyed by execution_id,
// supplementing spec.md §4.6's "pluggable sink" with a durable,
// multi-process-safe backend for production deployments.
type PostgresSink struct {
	pool *sql.DB
}

const migrationSQL = `
CREATE TABLE IF NOT EXISTS pipeline_checkpoints (
    execution_id TEXT PRIMARY KEY,
    snapshot     JSONB NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// NewPostgresSink opens a connection pool against databaseURL and ensures
// the checkpoint table exists.
func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.ExecContext(ctx, migrationSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run checkpoint migration: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// Close closes the underlying connection pool.
func (p *PostgresSink) Close() error {
	return p.pool.Close()
}

func (p *PostgresSink) Save(ctx context.Context, executionID string, snapshot []byte) error {
	_, err := p.pool.ExecContext(ctx,
		`INSERT INTO pipeline_checkpoints (execution_id, snapshot, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (execution_id) DO UPDATE SET snapshot = $2, updated_at = NOW()`,
		executionID, snapshot,
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (p *PostgresSink) Load(ctx context.Context, executionID string) ([]byte, error) {
	var snapshot []byte
	err := p.pool.QueryRowContext(ctx,
		`SELECT snapshot FROM pipeline_checkpoints WHERE execution_id = $1`, executionID,
	).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, &ErrNotFound{ExecutionID: executionID}
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return snapshot, nil
}
